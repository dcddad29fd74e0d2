package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"cashdesk/pkg/denomination"
	"cashdesk/pkg/gateway"
	"cashdesk/pkg/operation"
	"cashdesk/pkg/workflow"

	"go.uber.org/zap"
)

// countPayload is one denomination count as sent by the front end.
type countPayload struct {
	FaceValue int64  `json:"face_value"`
	Kind      string `json:"kind"`
	Count     int64  `json:"count"`
}

// carrierPayload is the carrier identity as sent by the front end.
type carrierPayload struct {
	Kind              string `json:"kind"`
	FullName          string `json:"full_name"`
	IDDocType         string `json:"id_doc_type"`
	IDDocNumber       string `json:"id_doc_number"`
	IDIssueDate       string `json:"id_issue_date"`
	IDIssuePlace      string `json:"id_issue_place"`
	ReferenceIDNumber string `json:"reference_id_number"`
}

func parseKind(kind string) (denomination.Kind, error) {
	switch kind {
	case "bill":
		return denomination.Bill, nil
	case "coin":
		return denomination.Coin, nil
	default:
		return 0, fmt.Errorf("unknown denomination kind %q", kind)
	}
}

func parseCarrierKind(kind string) operation.CarrierKind {
	switch kind {
	case "proxy_agent":
		return operation.KindProxyAgent
	case "other":
		return operation.KindOther
	default:
		return operation.KindAccountHolder
	}
}

func toCarrier(p carrierPayload) operation.Carrier {
	return operation.Carrier{
		Kind:              parseCarrierKind(p.Kind),
		FullName:          p.FullName,
		IDDocType:         p.IDDocType,
		IDDocNumber:       p.IDDocNumber,
		IDIssueDate:       p.IDIssueDate,
		IDIssuePlace:      p.IDIssuePlace,
		ReferenceIDNumber: p.ReferenceIDNumber,
	}
}

// buildLedger turns a counts payload into a ledger over the given table.
func buildLedger(table denomination.Table, target int64, counts []countPayload) (*denomination.Ledger, error) {
	ledger, err := denomination.NewLedger(table, target)
	if err != nil {
		return nil, err
	}
	for _, line := range counts {
		kind, err := parseKind(line.Kind)
		if err != nil {
			return nil, err
		}
		if err := ledger.SetCountFor(line.FaceValue, kind, line.Count); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	state, err := s.workflow.State(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agency":      state.Agency,
		"till_window": state.TillWindow,
		"cash_drawer": state.CashDrawer,
	})
}

func (s *Server) handleOpenAgency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgencyID       string `json:"agency_id"`
		AccountingDate string `json:"accounting_date"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	agency, err := s.workflow.OpenAgency(r.Context(), req.AgencyID, req.AccountingDate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (s *Server) handleCloseAgency(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.CloseAgency(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleOpenTillWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TillWindowID string `json:"till_window_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	tillWindow, err := s.workflow.OpenTillWindow(r.Context(), req.TillWindowID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tillWindow)
}

func (s *Server) handleCloseTillWindow(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.CloseTillWindow(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleOpenCashDrawer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DrawerID      string         `json:"drawer_id"`
		TargetBalance int64          `json:"target_balance"`
		Counts        []countPayload `json:"counts"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	ledger, err := buildLedger(denomination.DrawerTable(), req.TargetBalance, req.Counts)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	drawer, err := s.workflow.OpenCashDrawer(r.Context(), req.DrawerID, ledger)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drawer)
}

func (s *Server) handleCloseCashDrawer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetBalance int64          `json:"target_balance"`
		Counts        []countPayload `json:"counts"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	ledger, err := buildLedger(denomination.DrawerTable(), req.TargetBalance, req.Counts)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.workflow.CloseCashDrawer(r.Context(), ledger); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "closed",
		"reconciliation": ledger.Reconcile().String(),
	})
}

// drawerSessionID resolves the open drawer session for an operation.
func (s *Server) drawerSessionID(r *http.Request) (string, error) {
	state, err := s.workflow.State(r.Context())
	if err != nil {
		return "", err
	}
	if state.CashDrawer == nil {
		return "", fmt.Errorf("%w: cash drawer", workflow.ErrNotOpen)
	}
	return state.CashDrawer.SessionID, nil
}

func (s *Server) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string         `json:"account_id"`
		Amount      int64          `json:"amount"`
		FeeAmount   int64          `json:"fee_amount"`
		Reference   string         `json:"reference"`
		Description string         `json:"description"`
		Carrier     carrierPayload `json:"carrier"`
		Counts      []countPayload `json:"counts"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	sessionID, err := s.drawerSessionID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ledger, err := buildLedger(denomination.WithdrawalTable(), req.Amount, req.Counts)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ops.SubmitWithdrawal(r.Context(), sessionID, operation.Withdrawal{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		FeeAmount:   req.FeeAmount,
		Reference:   req.Reference,
		Description: req.Description,
		Carrier:     toCarrier(req.Carrier),
	}, ledger)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string         `json:"account_id"`
		Amount      int64          `json:"amount"`
		FeeAmount   int64          `json:"fee_amount"`
		Reference   string         `json:"reference"`
		Description string         `json:"description"`
		Depositor   carrierPayload `json:"depositor"`
		Counts      []countPayload `json:"counts"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	sessionID, err := s.drawerSessionID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ledger, err := buildLedger(denomination.DrawerTable(), req.Amount, req.Counts)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ops.SubmitDeposit(r.Context(), sessionID, operation.Deposit{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		FeeAmount:   req.FeeAmount,
		Reference:   req.Reference,
		Description: req.Description,
		Depositor:   toCarrier(req.Depositor),
	}, ledger)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PendingRequestID string `json:"pending_request_id"`
		Code             string `json:"code"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.ops.ConfirmPending(r.Context(), req.PendingRequestID, req.Code)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid amount")
		return
	}

	table := denomination.WithdrawalTable()
	if r.URL.Query().Get("table") == "drawer" {
		table = denomination.DrawerTable()
	}

	ledger, err := denomination.NewLedger(table, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	suggestion, err := ledger.Suggest(amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"target":    suggestion.Target,
		"allocated": suggestion.Allocated,
		"remainder": suggestion.Remainder,
		"exact":     suggestion.Exact(),
		"counts":    gateway.Breakdown(ledger),
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("drawer_session_id")
	if sessionID == "" {
		var err error
		sessionID, err = s.drawerSessionID(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	records, err := s.journal.ListBySession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"drawer_session_id": sessionID,
		"records":           records,
	})
}

// decode reads a JSON body into dst, answering 400 on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case workflow.IsPrecondition(err):
		s.writeErrorStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, operation.ErrDuplicateReference):
		s.writeErrorStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, operation.ErrUnknownPending):
		s.writeErrorStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, operation.ErrNonPositiveAmount),
		errors.Is(err, operation.ErrMissingAccount),
		errors.Is(err, operation.ErrCountMismatch),
		errors.Is(err, operation.ErrCarrierIncomplete),
		errors.Is(err, operation.ErrCarrierIDMismatch),
		errors.Is(err, operation.ErrInvalidValidationCode),
		errors.Is(err, operation.ErrValidationExpired):
		s.writeErrorStatus(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, denomination.ErrNegativeTarget):
		s.writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case gateway.IsRejection(err):
		rej, _ := gateway.AsRejection(err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  rej.Message,
			"fields": rej.FieldErrors,
		})
	case gateway.IsCircuitOpen(err), gateway.IsUnavailable(err):
		s.writeErrorStatus(w, http.StatusServiceUnavailable, err.Error())
	case gateway.IsTimeout(err):
		s.writeErrorStatus(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		s.writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
