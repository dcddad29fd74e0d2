package mock

import (
	"context"
	"sync/atomic"

	"cashdesk/pkg/gateway"
)

// MockGateway is a mock implementation of gateway.Gateway for testing.
// Each method can be overridden with a function hook; call counts are tracked
// with atomics so concurrent tests stay race-free.
//
// Default behavior without hooks: opens answer with canned sessions, closes
// succeed, operation submissions complete immediately with a fixed receipt.
type MockGateway struct {
	OpenAgencyFunc       func(ctx context.Context, req gateway.OpenAgencyRequest) (*gateway.AgencySession, error)
	CloseAgencyFunc      func(ctx context.Context, req gateway.CloseAgencyRequest) error
	OpenTillWindowFunc   func(ctx context.Context, req gateway.OpenTillWindowRequest) (*gateway.TillWindowSession, error)
	CloseTillWindowFunc  func(ctx context.Context, req gateway.CloseTillWindowRequest) error
	OpenCashDrawerFunc   func(ctx context.Context, req gateway.OpenCashDrawerRequest) (*gateway.CashDrawerSession, error)
	CloseCashDrawerFunc  func(ctx context.Context, req gateway.CloseCashDrawerRequest) error
	SubmitWithdrawalFunc func(ctx context.Context, req gateway.WithdrawalRequest) (*gateway.OperationResult, error)
	SubmitDepositFunc    func(ctx context.Context, req gateway.DepositRequest) (*gateway.OperationResult, error)
	ConfirmOperationFunc func(ctx context.Context, req gateway.ConfirmOperationRequest) (*gateway.OperationResult, error)

	openAgencyCalls       int64
	closeAgencyCalls      int64
	openTillWindowCalls   int64
	closeTillWindowCalls  int64
	openCashDrawerCalls   int64
	closeCashDrawerCalls  int64
	submitWithdrawalCalls int64
	submitDepositCalls    int64
	confirmCalls          int64
}

// NewMockGateway creates a MockGateway with default canned behavior.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// OpenAgency implements gateway.Gateway.
func (m *MockGateway) OpenAgency(ctx context.Context, req gateway.OpenAgencyRequest) (*gateway.AgencySession, error) {
	atomic.AddInt64(&m.openAgencyCalls, 1)
	if m.OpenAgencyFunc != nil {
		return m.OpenAgencyFunc(ctx, req)
	}
	return &gateway.AgencySession{
		SessionID:       "100",
		AccountingDayID: "day-1",
		AccountingDate:  req.AccountingDate,
		AgencyID:        req.AgencyID,
	}, nil
}

// CloseAgency implements gateway.Gateway.
func (m *MockGateway) CloseAgency(ctx context.Context, req gateway.CloseAgencyRequest) error {
	atomic.AddInt64(&m.closeAgencyCalls, 1)
	if m.CloseAgencyFunc != nil {
		return m.CloseAgencyFunc(ctx, req)
	}
	return nil
}

// OpenTillWindow implements gateway.Gateway.
func (m *MockGateway) OpenTillWindow(ctx context.Context, req gateway.OpenTillWindowRequest) (*gateway.TillWindowSession, error) {
	atomic.AddInt64(&m.openTillWindowCalls, 1)
	if m.OpenTillWindowFunc != nil {
		return m.OpenTillWindowFunc(ctx, req)
	}
	return &gateway.TillWindowSession{
		SessionID:    "200",
		TillWindowID: req.TillWindowID,
		Code:         "TW-" + req.TillWindowID,
	}, nil
}

// CloseTillWindow implements gateway.Gateway.
func (m *MockGateway) CloseTillWindow(ctx context.Context, req gateway.CloseTillWindowRequest) error {
	atomic.AddInt64(&m.closeTillWindowCalls, 1)
	if m.CloseTillWindowFunc != nil {
		return m.CloseTillWindowFunc(ctx, req)
	}
	return nil
}

// OpenCashDrawer implements gateway.Gateway.
func (m *MockGateway) OpenCashDrawer(ctx context.Context, req gateway.OpenCashDrawerRequest) (*gateway.CashDrawerSession, error) {
	atomic.AddInt64(&m.openCashDrawerCalls, 1)
	if m.OpenCashDrawerFunc != nil {
		return m.OpenCashDrawerFunc(ctx, req)
	}
	return &gateway.CashDrawerSession{
		SessionID:       "300",
		DrawerID:        req.DrawerID,
		Code:            "CD-" + req.DrawerID,
		DeclaredBalance: req.DeclaredBalance,
	}, nil
}

// CloseCashDrawer implements gateway.Gateway.
func (m *MockGateway) CloseCashDrawer(ctx context.Context, req gateway.CloseCashDrawerRequest) error {
	atomic.AddInt64(&m.closeCashDrawerCalls, 1)
	if m.CloseCashDrawerFunc != nil {
		return m.CloseCashDrawerFunc(ctx, req)
	}
	return nil
}

// SubmitWithdrawal implements gateway.Gateway.
func (m *MockGateway) SubmitWithdrawal(ctx context.Context, req gateway.WithdrawalRequest) (*gateway.OperationResult, error) {
	atomic.AddInt64(&m.submitWithdrawalCalls, 1)
	if m.SubmitWithdrawalFunc != nil {
		return m.SubmitWithdrawalFunc(ctx, req)
	}
	return &gateway.OperationResult{Status: gateway.StatusCompleted, ReceiptRef: "RCPT-1"}, nil
}

// SubmitDeposit implements gateway.Gateway.
func (m *MockGateway) SubmitDeposit(ctx context.Context, req gateway.DepositRequest) (*gateway.OperationResult, error) {
	atomic.AddInt64(&m.submitDepositCalls, 1)
	if m.SubmitDepositFunc != nil {
		return m.SubmitDepositFunc(ctx, req)
	}
	return &gateway.OperationResult{Status: gateway.StatusCompleted, ReceiptRef: "RCPT-1"}, nil
}

// ConfirmOperation implements gateway.Gateway.
func (m *MockGateway) ConfirmOperation(ctx context.Context, req gateway.ConfirmOperationRequest) (*gateway.OperationResult, error) {
	atomic.AddInt64(&m.confirmCalls, 1)
	if m.ConfirmOperationFunc != nil {
		return m.ConfirmOperationFunc(ctx, req)
	}
	return &gateway.OperationResult{Status: gateway.StatusCompleted, ReceiptRef: "RCPT-1"}, nil
}

// Name implements gateway.Gateway.
func (m *MockGateway) Name() string {
	return "mock"
}

// Close implements gateway.Gateway.
func (m *MockGateway) Close() error {
	return nil
}

// OpenAgencyCalls returns the number of OpenAgency calls (thread-safe).
func (m *MockGateway) OpenAgencyCalls() int { return int(atomic.LoadInt64(&m.openAgencyCalls)) }

// CloseAgencyCalls returns the number of CloseAgency calls (thread-safe).
func (m *MockGateway) CloseAgencyCalls() int { return int(atomic.LoadInt64(&m.closeAgencyCalls)) }

// OpenTillWindowCalls returns the number of OpenTillWindow calls (thread-safe).
func (m *MockGateway) OpenTillWindowCalls() int { return int(atomic.LoadInt64(&m.openTillWindowCalls)) }

// CloseTillWindowCalls returns the number of CloseTillWindow calls (thread-safe).
func (m *MockGateway) CloseTillWindowCalls() int {
	return int(atomic.LoadInt64(&m.closeTillWindowCalls))
}

// OpenCashDrawerCalls returns the number of OpenCashDrawer calls (thread-safe).
func (m *MockGateway) OpenCashDrawerCalls() int { return int(atomic.LoadInt64(&m.openCashDrawerCalls)) }

// CloseCashDrawerCalls returns the number of CloseCashDrawer calls (thread-safe).
func (m *MockGateway) CloseCashDrawerCalls() int {
	return int(atomic.LoadInt64(&m.closeCashDrawerCalls))
}

// SubmitWithdrawalCalls returns the number of SubmitWithdrawal calls (thread-safe).
func (m *MockGateway) SubmitWithdrawalCalls() int {
	return int(atomic.LoadInt64(&m.submitWithdrawalCalls))
}

// SubmitDepositCalls returns the number of SubmitDeposit calls (thread-safe).
func (m *MockGateway) SubmitDepositCalls() int { return int(atomic.LoadInt64(&m.submitDepositCalls)) }

// ConfirmOperationCalls returns the number of ConfirmOperation calls (thread-safe).
func (m *MockGateway) ConfirmOperationCalls() int { return int(atomic.LoadInt64(&m.confirmCalls)) }
