package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cashdesk/pkg/denomination"
	"cashdesk/pkg/gateway"
	"cashdesk/pkg/logging"
	"cashdesk/pkg/metrics"
	"cashdesk/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Level identifies one of the three nested session levels.
type Level int

const (
	// LevelAgency is the outermost level, one accounting day per agency.
	LevelAgency Level = iota
	// LevelTillWindow is a teller position under an open agency session.
	LevelTillWindow
	// LevelCashDrawer is the physical drawer under an open till window.
	LevelCashDrawer
)

// String returns the metric label for the level.
func (l Level) String() string {
	switch l {
	case LevelAgency:
		return "agency"
	case LevelTillWindow:
		return "till_window"
	case LevelCashDrawer:
		return "cash_drawer"
	default:
		return "unknown"
	}
}

// CascadePolicy decides what happens when a level is closed while a child
// level is still open.
type CascadePolicy int

const (
	// CascadeClear closes open child sessions through the backend before
	// closing the requested level.
	CascadeClear CascadePolicy = iota
	// CascadeRefuse rejects the close with ErrChildOpen while a child
	// session is open.
	CascadeRefuse
)

// AgencyState is the persisted identity of an open agency session.
type AgencyState struct {
	SessionID       string `json:"session_id"`
	AccountingDayID string `json:"accounting_day_id"`
	AccountingDate  string `json:"accounting_date"`
	AgencyID        string `json:"agency_id"`
}

// TillWindowState is the persisted identity of an open till-window session.
type TillWindowState struct {
	SessionID    string `json:"session_id"`
	TillWindowID string `json:"till_window_id"`
	Code         string `json:"code"`
}

// CashDrawerState is the persisted identity of an open cash-drawer session.
type CashDrawerState struct {
	SessionID       string `json:"session_id"`
	DrawerID        string `json:"drawer_id"`
	Code            string `json:"code"`
	DeclaredBalance int64  `json:"declared_balance"`
}

// State is a snapshot of all three levels. A nil level is closed.
type State struct {
	Agency     *AgencyState
	TillWindow *TillWindowState
	CashDrawer *CashDrawerState
}

// Config holds workflow configuration.
type Config struct {
	// KeyPrefix namespaces the persisted session keys in the store.
	KeyPrefix string

	// Cascade is the policy applied when closing a level with open children.
	Cascade CascadePolicy
}

// DefaultConfig returns the default workflow configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "workflow",
		Cascade:   CascadeClear,
	}
}

// Workflow drives the nested open/close session state machine. The backend
// gateway is the authority on every transition: state is persisted to the
// store only after the backend confirms, so a failed call leaves the
// workstation exactly where it was.
type Workflow struct {
	store   session.Store
	gw      gateway.Gateway
	config  Config
	ns      session.Namespace
	metrics metrics.Collector
	logger  *logging.Logger

	// mu serializes transitions; sf collapses concurrent duplicate requests
	// for the same transition (double-clicked buttons) into one backend call.
	mu sync.Mutex
	sf singleflight.Group
}

// New creates a workflow backed by the given store and gateway.
func New(store session.Store, gw gateway.Gateway, config Config) *Workflow {
	return NewWithMetrics(store, gw, config, metrics.NoOpCollector{})
}

// NewWithMetrics creates a workflow with a custom metrics collector.
func NewWithMetrics(store session.Store, gw gateway.Gateway, config Config, metricsCollector metrics.Collector) *Workflow {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Workflow{
		store:   store,
		gw:      gw,
		config:  config,
		ns:      session.NewNamespace(config.KeyPrefix),
		metrics: metricsCollector,
		logger:  logging.Global().Named("workflow"),
	}
}

// State loads the current snapshot of all three levels from the store.
func (w *Workflow) State(ctx context.Context) (*State, error) {
	state := &State{}

	if err := w.load(ctx, LevelAgency, &state.Agency); err != nil {
		return nil, err
	}
	if err := w.load(ctx, LevelTillWindow, &state.TillWindow); err != nil {
		return nil, err
	}
	if err := w.load(ctx, LevelCashDrawer, &state.CashDrawer); err != nil {
		return nil, err
	}

	return state, nil
}

// OpenAgency opens the agency accounting session for the given date.
func (w *Workflow) OpenAgency(ctx context.Context, agencyID, accountingDate string) (*AgencyState, error) {
	result, err, _ := w.sf.Do("open_agency:"+agencyID+":"+accountingDate, func() (interface{}, error) {
		return w.openAgency(ctx, agencyID, accountingDate)
	})
	if err != nil {
		return nil, err
	}
	return result.(*AgencyState), nil
}

func (w *Workflow) openAgency(ctx context.Context, agencyID, accountingDate string) (*AgencyState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Agency != nil {
		w.metrics.RecordTransition(LevelAgency.String(), "open", false)
		return nil, fmt.Errorf("%w: agency session %s", ErrAlreadyOpen, state.Agency.SessionID)
	}

	agencySession, err := w.gw.OpenAgency(ctx, gateway.OpenAgencyRequest{
		AgencyID:       agencyID,
		AccountingDate: accountingDate,
	})
	if err != nil {
		w.metrics.RecordTransition(LevelAgency.String(), "open", false)
		return nil, err
	}

	agency := &AgencyState{
		SessionID:       agencySession.SessionID,
		AccountingDayID: agencySession.AccountingDayID,
		AccountingDate:  agencySession.AccountingDate,
		AgencyID:        agencySession.AgencyID,
	}
	if err := w.persist(ctx, LevelAgency, agency); err != nil {
		return nil, err
	}

	w.metrics.RecordTransition(LevelAgency.String(), "open", true)
	w.logger.Info("agency session opened",
		zap.String("session_id", agency.SessionID),
		zap.String("agency_id", agency.AgencyID),
		zap.String("accounting_date", agency.AccountingDate),
	)
	return agency, nil
}

// CloseAgency closes the agency session. With CascadeClear, open child
// sessions are closed through the backend first, innermost out.
func (w *Workflow) CloseAgency(ctx context.Context) error {
	_, err, _ := w.sf.Do("close_agency", func() (interface{}, error) {
		return nil, w.closeAgency(ctx)
	})
	return err
}

func (w *Workflow) closeAgency(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.State(ctx)
	if err != nil {
		return err
	}
	if state.Agency == nil {
		w.metrics.RecordTransition(LevelAgency.String(), "close", false)
		return fmt.Errorf("%w: agency", ErrNotOpen)
	}

	if state.TillWindow != nil || state.CashDrawer != nil {
		if w.config.Cascade == CascadeRefuse {
			w.metrics.RecordTransition(LevelAgency.String(), "close", false)
			return fmt.Errorf("%w: close the till window first", ErrChildOpen)
		}
		if err := w.cascadeCloseChildren(ctx, state); err != nil {
			w.metrics.RecordTransition(LevelAgency.String(), "close", false)
			return err
		}
	}

	if err := w.gw.CloseAgency(ctx, gateway.CloseAgencyRequest{
		SessionID:       state.Agency.SessionID,
		AccountingDayID: state.Agency.AccountingDayID,
	}); err != nil {
		w.metrics.RecordTransition(LevelAgency.String(), "close", false)
		return err
	}

	if err := w.clear(ctx, LevelAgency); err != nil {
		return err
	}

	w.metrics.RecordTransition(LevelAgency.String(), "close", true)
	w.logger.Info("agency session closed", zap.String("session_id", state.Agency.SessionID))
	return nil
}

// OpenTillWindow opens a till-window session under the open agency session.
func (w *Workflow) OpenTillWindow(ctx context.Context, tillWindowID string) (*TillWindowState, error) {
	result, err, _ := w.sf.Do("open_till_window:"+tillWindowID, func() (interface{}, error) {
		return w.openTillWindow(ctx, tillWindowID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*TillWindowState), nil
}

func (w *Workflow) openTillWindow(ctx context.Context, tillWindowID string) (*TillWindowState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Agency == nil {
		w.metrics.RecordTransition(LevelTillWindow.String(), "open", false)
		return nil, fmt.Errorf("%w: agency session required before opening a till window", ErrParentClosed)
	}
	if state.TillWindow != nil {
		w.metrics.RecordTransition(LevelTillWindow.String(), "open", false)
		return nil, fmt.Errorf("%w: till window session %s", ErrAlreadyOpen, state.TillWindow.SessionID)
	}

	twSession, err := w.gw.OpenTillWindow(ctx, gateway.OpenTillWindowRequest{
		AgencySessionID: state.Agency.SessionID,
		TillWindowID:    tillWindowID,
	})
	if err != nil {
		w.metrics.RecordTransition(LevelTillWindow.String(), "open", false)
		return nil, err
	}

	tillWindow := &TillWindowState{
		SessionID:    twSession.SessionID,
		TillWindowID: twSession.TillWindowID,
		Code:         twSession.Code,
	}
	if err := w.persist(ctx, LevelTillWindow, tillWindow); err != nil {
		return nil, err
	}

	w.metrics.RecordTransition(LevelTillWindow.String(), "open", true)
	w.logger.Info("till window session opened",
		zap.String("session_id", tillWindow.SessionID),
		zap.String("till_window_id", tillWindow.TillWindowID),
	)
	return tillWindow, nil
}

// CloseTillWindow closes the till-window session, applying the cascade
// policy to an open cash drawer.
func (w *Workflow) CloseTillWindow(ctx context.Context) error {
	_, err, _ := w.sf.Do("close_till_window", func() (interface{}, error) {
		return nil, w.closeTillWindow(ctx)
	})
	return err
}

func (w *Workflow) closeTillWindow(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.State(ctx)
	if err != nil {
		return err
	}
	if state.TillWindow == nil {
		w.metrics.RecordTransition(LevelTillWindow.String(), "close", false)
		return fmt.Errorf("%w: till window", ErrNotOpen)
	}

	if state.CashDrawer != nil {
		if w.config.Cascade == CascadeRefuse {
			w.metrics.RecordTransition(LevelTillWindow.String(), "close", false)
			return fmt.Errorf("%w: close the cash drawer first", ErrChildOpen)
		}
		if err := w.closeDrawerSession(ctx, state.CashDrawer, gateway.CloseCashDrawerRequest{
			SessionID:      state.CashDrawer.SessionID,
			ClosingBalance: state.CashDrawer.DeclaredBalance,
		}); err != nil {
			w.metrics.RecordTransition(LevelTillWindow.String(), "close", false)
			return err
		}
	}

	if err := w.gw.CloseTillWindow(ctx, gateway.CloseTillWindowRequest{
		SessionID: state.TillWindow.SessionID,
	}); err != nil {
		w.metrics.RecordTransition(LevelTillWindow.String(), "close", false)
		return err
	}

	if err := w.clear(ctx, LevelTillWindow); err != nil {
		return err
	}

	w.metrics.RecordTransition(LevelTillWindow.String(), "close", true)
	w.logger.Info("till window session closed", zap.String("session_id", state.TillWindow.SessionID))
	return nil
}

// OpenCashDrawer opens a cash-drawer session. The ledger must reconcile
// against its target within tolerance; the counted total is declared to the
// backend together with the full denomination breakdown.
func (w *Workflow) OpenCashDrawer(ctx context.Context, drawerID string, ledger *denomination.Ledger) (*CashDrawerState, error) {
	result, err, _ := w.sf.Do("open_cash_drawer:"+drawerID, func() (interface{}, error) {
		return w.openCashDrawer(ctx, drawerID, ledger)
	})
	if err != nil {
		return nil, err
	}
	return result.(*CashDrawerState), nil
}

func (w *Workflow) openCashDrawer(ctx context.Context, drawerID string, ledger *denomination.Ledger) (*CashDrawerState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.TillWindow == nil {
		w.metrics.RecordTransition(LevelCashDrawer.String(), "open", false)
		return nil, fmt.Errorf("%w: till window session required before opening a cash drawer", ErrParentClosed)
	}
	if state.CashDrawer != nil {
		w.metrics.RecordTransition(LevelCashDrawer.String(), "open", false)
		return nil, fmt.Errorf("%w: cash drawer session %s", ErrAlreadyOpen, state.CashDrawer.SessionID)
	}

	rec := ledger.Reconcile()
	w.metrics.RecordReconciliation(rec.Status.String(), rec.Difference)
	if rec.Status != denomination.Balanced {
		w.metrics.RecordTransition(LevelCashDrawer.String(), "open", false)
		return nil, fmt.Errorf("%w: %s", ErrUnbalanced, rec)
	}

	drawerSession, err := w.gw.OpenCashDrawer(ctx, gateway.OpenCashDrawerRequest{
		TillWindowSessionID: state.TillWindow.SessionID,
		DrawerID:            drawerID,
		DeclaredBalance:     ledger.Total(),
		Breakdown:           gateway.Breakdown(ledger),
	})
	if err != nil {
		w.metrics.RecordTransition(LevelCashDrawer.String(), "open", false)
		return nil, err
	}

	drawer := &CashDrawerState{
		SessionID:       drawerSession.SessionID,
		DrawerID:        drawerSession.DrawerID,
		Code:            drawerSession.Code,
		DeclaredBalance: drawerSession.DeclaredBalance,
	}
	if err := w.persist(ctx, LevelCashDrawer, drawer); err != nil {
		return nil, err
	}

	w.metrics.RecordTransition(LevelCashDrawer.String(), "open", true)
	w.logger.Info("cash drawer session opened",
		zap.String("session_id", drawer.SessionID),
		zap.String("drawer_id", drawer.DrawerID),
		zap.Int64("declared_balance", drawer.DeclaredBalance),
	)
	return drawer, nil
}

// CloseCashDrawer closes the cash-drawer session with the counted closing
// balance. A short or excess count does not block the close; the difference
// is reported to the backend and recorded.
func (w *Workflow) CloseCashDrawer(ctx context.Context, ledger *denomination.Ledger) error {
	_, err, _ := w.sf.Do("close_cash_drawer", func() (interface{}, error) {
		return nil, w.closeCashDrawer(ctx, ledger)
	})
	return err
}

func (w *Workflow) closeCashDrawer(ctx context.Context, ledger *denomination.Ledger) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.State(ctx)
	if err != nil {
		return err
	}
	if state.CashDrawer == nil {
		w.metrics.RecordTransition(LevelCashDrawer.String(), "close", false)
		return fmt.Errorf("%w: cash drawer", ErrNotOpen)
	}

	rec := ledger.Reconcile()
	w.metrics.RecordReconciliation(rec.Status.String(), rec.Difference)
	if rec.Status != denomination.Balanced {
		w.logger.Warn("closing cash drawer with unbalanced count",
			zap.String("session_id", state.CashDrawer.SessionID),
			zap.String("reconciliation", rec.String()),
		)
	}

	if err := w.closeDrawerSession(ctx, state.CashDrawer, gateway.CloseCashDrawerRequest{
		SessionID:      state.CashDrawer.SessionID,
		ClosingBalance: ledger.Total(),
		Breakdown:      gateway.Breakdown(ledger),
	}); err != nil {
		w.metrics.RecordTransition(LevelCashDrawer.String(), "close", false)
		return err
	}

	w.metrics.RecordTransition(LevelCashDrawer.String(), "close", true)
	return nil
}

// closeDrawerSession closes one drawer session at the backend and clears its
// persisted state. The direct close passes the counted closing balance and
// its breakdown; the cascade path has no closing count, so it falls back to
// the declared opening balance.
func (w *Workflow) closeDrawerSession(ctx context.Context, drawer *CashDrawerState, req gateway.CloseCashDrawerRequest) error {
	if err := w.gw.CloseCashDrawer(ctx, req); err != nil {
		return err
	}
	if err := w.clear(ctx, LevelCashDrawer); err != nil {
		return err
	}
	w.logger.Info("cash drawer session closed", zap.String("session_id", drawer.SessionID))
	return nil
}

// cascadeCloseChildren closes the drawer then the till window, innermost out.
func (w *Workflow) cascadeCloseChildren(ctx context.Context, state *State) error {
	if state.CashDrawer != nil {
		if err := w.closeDrawerSession(ctx, state.CashDrawer, gateway.CloseCashDrawerRequest{
			SessionID:      state.CashDrawer.SessionID,
			ClosingBalance: state.CashDrawer.DeclaredBalance,
		}); err != nil {
			return err
		}
	}
	if state.TillWindow != nil {
		if err := w.gw.CloseTillWindow(ctx, gateway.CloseTillWindowRequest{
			SessionID: state.TillWindow.SessionID,
		}); err != nil {
			return err
		}
		if err := w.clear(ctx, LevelTillWindow); err != nil {
			return err
		}
		w.logger.Info("till window session closed", zap.String("session_id", state.TillWindow.SessionID))
	}
	return nil
}

// Reset drops all persisted session state without calling the backend.
// Recovery hatch for when the backend closed the sessions out of band.
func (w *Workflow) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.store.DeleteAll(ctx,
		w.ns.Key(LevelAgency.String()),
		w.ns.Key(LevelTillWindow.String()),
		w.ns.Key(LevelCashDrawer.String()),
	)
	if err != nil {
		return fmt.Errorf("workflow: reset: %w", err)
	}
	w.logger.Warn("workflow state reset")
	return nil
}

// load reads one level's state into dst, leaving dst nil when the level is
// closed. dst must be a pointer to a pointer to the state struct.
func (w *Workflow) load(ctx context.Context, level Level, dst interface{}) error {
	raw, err := w.store.Get(ctx, w.ns.Key(level.String()))
	if err != nil {
		if session.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("workflow: load %s: %w", level, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("workflow: decode %s state: %w", level, err)
	}
	return nil
}

// persist writes one level's state. Called only after the backend confirmed
// the transition.
func (w *Workflow) persist(ctx context.Context, level Level, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("workflow: encode %s state: %w", level, err)
	}
	if err := w.store.Set(ctx, w.ns.Key(level.String()), string(raw)); err != nil {
		return fmt.Errorf("workflow: persist %s: %w", level, err)
	}
	return nil
}

func (w *Workflow) clear(ctx context.Context, level Level) error {
	if err := w.store.Delete(ctx, w.ns.Key(level.String())); err != nil {
		return fmt.Errorf("workflow: clear %s: %w", level, err)
	}
	return nil
}
