package operation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cashdesk/pkg/denomination"
	"cashdesk/pkg/gateway"
	"cashdesk/pkg/journal"
	"cashdesk/pkg/logging"
	"cashdesk/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNonPositiveAmount is returned when the operation amount is zero or
	// negative.
	ErrNonPositiveAmount = errors.New("operation: amount must be positive")

	// ErrMissingAccount is returned when no account id was given.
	ErrMissingAccount = errors.New("operation: account id required")

	// ErrCountMismatch is returned when the counted denomination breakdown
	// does not reconcile against the operation amount.
	ErrCountMismatch = errors.New("operation: counted cash does not match amount")
)

// Withdrawal is a cash withdrawal as captured at the counter.
type Withdrawal struct {
	AccountID   string
	Amount      int64
	FeeAmount   int64
	Reference   string
	Description string
	Carrier     Carrier
}

// Validate checks the withdrawal's own fields.
func (w Withdrawal) Validate() error {
	if w.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if strings.TrimSpace(w.AccountID) == "" {
		return ErrMissingAccount
	}
	return w.Carrier.Validate()
}

// Deposit is a cash deposit as captured at the counter.
type Deposit struct {
	AccountID   string
	Amount      int64
	FeeAmount   int64
	Reference   string
	Description string
	Depositor   Carrier
}

// Validate checks the deposit's own fields.
func (d Deposit) Validate() error {
	if d.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if strings.TrimSpace(d.AccountID) == "" {
		return ErrMissingAccount
	}
	return d.Depositor.Validate()
}

// Result is the workstation-facing outcome of a submission. The supervisor
// validation code never appears here; it travels out of band.
type Result struct {
	Status           string `json:"status"`
	ReceiptRef       string `json:"receipt_ref,omitempty"`
	PendingRequestID string `json:"pending_request_id,omitempty"`
}

// ServiceConfig holds operation service configuration.
type ServiceConfig struct {
	// PendingTTL is how long a pending validation stays redeemable.
	// Default: 5 minutes.
	PendingTTL time.Duration

	// Dedup configures the duplicate-reference guard.
	Dedup DedupConfig
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PendingTTL: 5 * time.Minute,
		Dedup:      DefaultDedupConfig(),
	}
}

// pendingOperation is an operation held by the backend until a supervisor
// validates it at this workstation. The code is single use.
type pendingOperation struct {
	id        string
	code      string
	record    journal.Record
	expiresAt time.Time
}

// Service submits withdrawals and deposits through the gateway, guards
// against duplicate references and journals completed operations.
type Service struct {
	gw      gateway.Gateway
	journal journal.Journal
	dedup   *DedupGuard
	config  ServiceConfig
	metrics metrics.Collector
	logger  *logging.Logger

	mu      sync.Mutex
	pending map[string]*pendingOperation
}

// NewService creates an operation service. The dedup guard uses the journal
// as its authoritative duplicate source.
func NewService(gw gateway.Gateway, j journal.Journal, config ServiceConfig) *Service {
	return NewServiceWithMetrics(gw, j, config, metrics.NoOpCollector{})
}

// NewServiceWithMetrics creates an operation service with a custom metrics collector.
func NewServiceWithMetrics(gw gateway.Gateway, j journal.Journal, config ServiceConfig, metricsCollector metrics.Collector) *Service {
	if config.PendingTTL == 0 {
		config.PendingTTL = DefaultServiceConfig().PendingTTL
	}

	confirm := func(ctx context.Context, reference string) (bool, error) {
		_, err := j.GetByReference(ctx, reference)
		if err != nil {
			if journal.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	return &Service{
		gw:      gw,
		journal: j,
		dedup:   NewDedupGuardWithMetrics(config.Dedup, confirm, metricsCollector),
		config:  config,
		metrics: metricsCollector,
		logger:  logging.Global().Named("operation"),
		pending: make(map[string]*pendingOperation),
	}
}

// SubmitWithdrawal submits a withdrawal for the given drawer session. The
// ledger holds the bills counted out for the client and must reconcile
// against the amount.
func (s *Service) SubmitWithdrawal(ctx context.Context, drawerSessionID string, w Withdrawal, ledger *denomination.Ledger) (*Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := checkCount(ledger, w.Amount); err != nil {
		return nil, err
	}
	if err := s.dedup.Check(ctx, w.Reference); err != nil {
		return nil, err
	}

	record := journal.Record{
		ID:              uuid.NewString(),
		Type:            "withdrawal",
		DrawerSessionID: drawerSessionID,
		AccountID:       w.AccountID,
		Amount:          w.Amount,
		FeeAmount:       w.FeeAmount,
		Reference:       w.Reference,
		Description:     w.Description,
	}

	result, err := s.gw.SubmitWithdrawal(ctx, gateway.WithdrawalRequest{
		DrawerSessionID: drawerSessionID,
		AccountID:       w.AccountID,
		Amount:          w.Amount,
		FeeAmount:       w.FeeAmount,
		Reference:       w.Reference,
		Description:     w.Description,
		Carrier:         w.Carrier.record(),
		Breakdown:       gateway.Breakdown(ledger),
	})
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, record, result)
}

// SubmitDeposit submits a deposit for the given drawer session. The ledger
// holds the cash received from the client and must reconcile against the
// amount.
func (s *Service) SubmitDeposit(ctx context.Context, drawerSessionID string, d Deposit, ledger *denomination.Ledger) (*Result, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := checkCount(ledger, d.Amount); err != nil {
		return nil, err
	}
	if err := s.dedup.Check(ctx, d.Reference); err != nil {
		return nil, err
	}

	record := journal.Record{
		ID:              uuid.NewString(),
		Type:            "deposit",
		DrawerSessionID: drawerSessionID,
		AccountID:       d.AccountID,
		Amount:          d.Amount,
		FeeAmount:       d.FeeAmount,
		Reference:       d.Reference,
		Description:     d.Description,
	}

	result, err := s.gw.SubmitDeposit(ctx, gateway.DepositRequest{
		DrawerSessionID: drawerSessionID,
		AccountID:       d.AccountID,
		Amount:          d.Amount,
		FeeAmount:       d.FeeAmount,
		Reference:       d.Reference,
		Description:     d.Description,
		Depositor:       d.Depositor.record(),
		Breakdown:       gateway.Breakdown(ledger),
	})
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, record, result)
}

// settle routes a backend result either into the journal (completed) or the
// pending table (held for supervisor validation).
func (s *Service) settle(ctx context.Context, record journal.Record, result *gateway.OperationResult) (*Result, error) {
	if result.Status == gateway.StatusPendingValidation {
		s.mu.Lock()
		s.pending[result.PendingRequestID] = &pendingOperation{
			id:        result.PendingRequestID,
			code:      result.ValidationCode,
			record:    record,
			expiresAt: time.Now().Add(s.config.PendingTTL),
		}
		s.mu.Unlock()

		s.logger.Info("operation held for supervisor validation",
			zap.String("type", record.Type),
			zap.String("pending_request_id", result.PendingRequestID),
			zap.Int64("amount", record.Amount),
		)
		return &Result{
			Status:           result.Status,
			PendingRequestID: result.PendingRequestID,
		}, nil
	}

	return s.complete(ctx, record, result)
}

// complete journals a finished operation and remembers its reference.
func (s *Service) complete(ctx context.Context, record journal.Record, result *gateway.OperationResult) (*Result, error) {
	record.ReceiptRef = result.ReceiptRef
	record.CreatedAt = time.Now()

	if err := s.journal.Append(ctx, record); err != nil {
		// The backend committed the operation; a journal failure must not
		// look like an operation failure.
		s.logger.Error("failed to journal completed operation",
			zap.String("type", record.Type),
			zap.String("receipt_ref", record.ReceiptRef),
			zap.Error(err),
		)
	}
	s.dedup.Remember(record.Reference)

	s.logger.Info("operation completed",
		zap.String("type", record.Type),
		zap.String("receipt_ref", result.ReceiptRef),
		zap.Int64("amount", record.Amount),
	)
	return &Result{
		Status:     result.Status,
		ReceiptRef: result.ReceiptRef,
	}, nil
}

// checkCount verifies the counted breakdown reconciles against the amount.
func checkCount(ledger *denomination.Ledger, amount int64) error {
	if ledger.Target() != amount {
		return fmt.Errorf("%w: counting target %d, amount %d", ErrCountMismatch, ledger.Target(), amount)
	}
	rec := ledger.Reconcile()
	if rec.Status != denomination.Balanced {
		return fmt.Errorf("%w: %s", ErrCountMismatch, rec)
	}
	return nil
}
