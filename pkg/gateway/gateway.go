package gateway

import (
	"context"

	"cashdesk/pkg/denomination"
)

// Gateway is the backend session gateway: the single interface through which
// the workstation talks to the core banking REST API. The backend is the
// authority on every operation; nothing here is committed locally before the
// backend confirms it.
type Gateway interface {
	// OpenAgency opens an accounting session for an agency.
	OpenAgency(ctx context.Context, req OpenAgencyRequest) (*AgencySession, error)

	// CloseAgency closes the agency session identified by the request.
	CloseAgency(ctx context.Context, req CloseAgencyRequest) error

	// OpenTillWindow opens a till-window session under an open agency session.
	OpenTillWindow(ctx context.Context, req OpenTillWindowRequest) (*TillWindowSession, error)

	// CloseTillWindow closes a till-window session.
	CloseTillWindow(ctx context.Context, req CloseTillWindowRequest) error

	// OpenCashDrawer opens a cash-drawer session with a declared balance and
	// its denomination breakdown.
	OpenCashDrawer(ctx context.Context, req OpenCashDrawerRequest) (*CashDrawerSession, error)

	// CloseCashDrawer closes a cash-drawer session with the closing balance
	// and its denomination breakdown.
	CloseCashDrawer(ctx context.Context, req CloseCashDrawerRequest) error

	// SubmitWithdrawal submits a cash withdrawal. The result either carries a
	// receipt reference or signals that supervisor validation is required.
	SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (*OperationResult, error)

	// SubmitDeposit submits a cash deposit.
	SubmitDeposit(ctx context.Context, req DepositRequest) (*OperationResult, error)

	// ConfirmOperation completes an operation that was held for supervisor
	// validation, identified by its pending request id.
	ConfirmOperation(ctx context.Context, req ConfirmOperationRequest) (*OperationResult, error)

	// Name returns the identifier for this gateway. Used for logging and metrics.
	Name() string

	// Close releases any resources held by the gateway.
	Close() error
}

// CountLine is one row of a denomination breakdown as sent to the backend.
type CountLine struct {
	FaceValue int64  `json:"face_value"`
	Kind      string `json:"kind"`
	Count     int64  `json:"count"`
	Subtotal  int64  `json:"subtotal"`
}

// Breakdown converts a ledger into the wire representation of its counts.
// Zero-count rows are included so the backend sees the full table.
func Breakdown(l *denomination.Ledger) []CountLine {
	entries := l.Entries()
	lines := make([]CountLine, len(entries))
	for i, e := range entries {
		lines[i] = CountLine{
			FaceValue: e.FaceValue,
			Kind:      e.Kind.String(),
			Count:     e.Count,
			Subtotal:  e.Subtotal(),
		}
	}
	return lines
}

// OpenAgencyRequest opens an accounting session for an agency.
type OpenAgencyRequest struct {
	AgencyID       string `json:"agency_id"`
	AccountingDate string `json:"accounting_date"`
}

// AgencySession is the backend's answer to a successful agency open.
type AgencySession struct {
	SessionID       string `json:"session_id"`
	AccountingDayID string `json:"accounting_day_id"`
	AccountingDate  string `json:"accounting_date"`
	AgencyID        string `json:"agency_id"`
}

// CloseAgencyRequest closes an agency session.
type CloseAgencyRequest struct {
	SessionID       string `json:"session_id"`
	AccountingDayID string `json:"accounting_day_id"`
}

// OpenTillWindowRequest opens a till-window session.
type OpenTillWindowRequest struct {
	AgencySessionID string `json:"agency_session_id"`
	TillWindowID    string `json:"till_window_id"`
}

// TillWindowSession is the backend's answer to a successful till-window open.
type TillWindowSession struct {
	SessionID    string `json:"session_id"`
	TillWindowID string `json:"till_window_id"`
	Code         string `json:"code"`
}

// CloseTillWindowRequest closes a till-window session.
type CloseTillWindowRequest struct {
	SessionID string `json:"session_id"`
}

// OpenCashDrawerRequest opens a cash-drawer session.
type OpenCashDrawerRequest struct {
	TillWindowSessionID string      `json:"till_window_session_id"`
	DrawerID            string      `json:"drawer_id"`
	DeclaredBalance     int64       `json:"declared_balance"`
	Breakdown           []CountLine `json:"breakdown"`
}

// CashDrawerSession is the backend's answer to a successful drawer open.
// The backend echoes the declared balance it accepted.
type CashDrawerSession struct {
	SessionID       string `json:"session_id"`
	DrawerID        string `json:"drawer_id"`
	Code            string `json:"code"`
	DeclaredBalance int64  `json:"declared_balance"`
}

// CloseCashDrawerRequest closes a cash-drawer session.
type CloseCashDrawerRequest struct {
	SessionID      string      `json:"session_id"`
	ClosingBalance int64       `json:"closing_balance"`
	Breakdown      []CountLine `json:"breakdown"`
}

// CarrierRecord is the identity of the person physically handling the cash,
// as submitted with a withdrawal or deposit.
type CarrierRecord struct {
	Kind         string `json:"kind"`
	FullName     string `json:"full_name"`
	IDDocType    string `json:"id_doc_type"`
	IDDocNumber  string `json:"id_doc_number"`
	IDIssueDate  string `json:"id_issue_date"`
	IDIssuePlace string `json:"id_issue_place"`
}

// WithdrawalRequest submits a cash withdrawal.
type WithdrawalRequest struct {
	DrawerSessionID string        `json:"drawer_session_id"`
	AccountID       string        `json:"account_id"`
	Amount          int64         `json:"amount"`
	FeeAmount       int64         `json:"fee_amount"`
	Reference       string        `json:"reference"`
	Description     string        `json:"description"`
	Carrier         CarrierRecord `json:"carrier"`
	Breakdown       []CountLine   `json:"breakdown"`
}

// DepositRequest submits a cash deposit.
type DepositRequest struct {
	DrawerSessionID string        `json:"drawer_session_id"`
	AccountID       string        `json:"account_id"`
	Amount          int64         `json:"amount"`
	FeeAmount       int64         `json:"fee_amount"`
	Reference       string        `json:"reference"`
	Description     string        `json:"description"`
	Depositor       CarrierRecord `json:"depositor"`
	Breakdown       []CountLine   `json:"breakdown"`
}

// ConfirmOperationRequest completes a pending operation after supervisor
// validation succeeded on the workstation.
type ConfirmOperationRequest struct {
	PendingRequestID string `json:"pending_request_id"`
}

// Operation result statuses.
const (
	// StatusCompleted means the operation went through and a receipt
	// reference was issued.
	StatusCompleted = "completed"

	// StatusPendingValidation means a supervisor must validate the operation
	// before it completes.
	StatusPendingValidation = "pending_validation"
)

// OperationResult is the backend's answer to a withdrawal, deposit or
// confirmation. When Status is StatusPendingValidation, PendingRequestID
// identifies the held operation and ValidationCode is the code the
// supervisor hands to the teller.
type OperationResult struct {
	Status           string `json:"status"`
	ReceiptRef       string `json:"receipt_ref"`
	PendingRequestID string `json:"pending_request_id,omitempty"`
	ValidationCode   string `json:"validation_code,omitempty"`
}
