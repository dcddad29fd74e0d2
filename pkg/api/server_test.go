package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cashdesk/pkg/denomination"
	gwmock "cashdesk/pkg/gateway/mock"
	"cashdesk/pkg/journal"
	"cashdesk/pkg/operation"
	"cashdesk/pkg/session/memory"
	"cashdesk/pkg/workflow"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewMemoryStore(memory.DefaultMemoryStoreConfig())
	t.Cleanup(func() { store.Close() })

	mock := gwmock.NewMockGateway()
	j := journal.NewMemoryJournal()
	wf := workflow.New(store, mock, workflow.DefaultConfig())
	ops := operation.NewService(mock, j, operation.DefaultServiceConfig())

	return NewServer(wf, ops, j, nil, DefaultServerConfig())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// drawerCounts builds a counts payload for amount using the drawer table.
func drawerCounts(t *testing.T, amount int64) []map[string]interface{} {
	t.Helper()
	ledger, err := denomination.NewLedger(denomination.DrawerTable(), amount)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	if _, err := ledger.Suggest(amount); err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	var counts []map[string]interface{}
	for _, e := range ledger.Entries() {
		if e.Count == 0 {
			continue
		}
		counts = append(counts, map[string]interface{}{
			"face_value": e.FaceValue,
			"kind":       e.Kind.String(),
			"count":      e.Count,
		})
	}
	return counts
}

func openAll(t *testing.T, s *Server, target int64) {
	t.Helper()
	steps := []struct {
		path string
		body map[string]interface{}
	}{
		{"/api/v1/session/agency/open", map[string]interface{}{"agency_id": "1", "accounting_date": "2024-01-01"}},
		{"/api/v1/session/till-window/open", map[string]interface{}{"till_window_id": "7"}},
		{"/api/v1/session/cash-drawer/open", map[string]interface{}{
			"drawer_id":      "D1",
			"target_balance": target,
			"counts":         drawerCounts(t, target),
		}},
	}
	for _, step := range steps {
		rec := doJSON(t, s, http.MethodPost, step.path, step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST %s = %d: %s", step.path, rec.Code, rec.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	openAll(t, s, 17300)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /session = %d", rec.Code)
	}
	var state struct {
		Agency     *workflow.AgencyState     `json:"agency"`
		TillWindow *workflow.TillWindowState `json:"till_window"`
		CashDrawer *workflow.CashDrawerState `json:"cash_drawer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Agency == nil || state.TillWindow == nil || state.CashDrawer == nil {
		t.Errorf("state = %+v, want all levels open", state)
	}
	if state.CashDrawer.DeclaredBalance != 17300 {
		t.Errorf("DeclaredBalance = %d, want 17300", state.CashDrawer.DeclaredBalance)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/session/agency/close", map[string]interface{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("close agency = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPreconditionMapsToConflict(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/till-window/open",
		map[string]interface{}{"till_window_id": "7"})
	if rec.Code != http.StatusConflict {
		t.Errorf("open till window without agency = %d, want 409", rec.Code)
	}
}

func TestOpenDrawerUnbalanced(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/session/agency/open", "/api/v1/session/till-window/open"} {
		body := map[string]interface{}{"agency_id": "1", "accounting_date": "2024-01-01", "till_window_id": "7"}
		if rec := doJSON(t, s, http.MethodPost, path, body); rec.Code != http.StatusOK {
			t.Fatalf("POST %s = %d", path, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/cash-drawer/open", map[string]interface{}{
		"drawer_id":      "D1",
		"target_balance": 10000,
		"counts":         drawerCounts(t, 4000),
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("unbalanced open = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestSuggestEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/denominations/suggest?amount=17300", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("suggest = %d", rec.Code)
	}
	var resp struct {
		Target    int64 `json:"target"`
		Allocated int64 `json:"allocated"`
		Remainder int64 `json:"remainder"`
		Exact     bool  `json:"exact"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Exact || resp.Allocated != 17300 {
		t.Errorf("suggest 17300 = %+v", resp)
	}

	// Bills cannot represent 50; the remainder comes back as a warning.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/denominations/suggest?amount=17350", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Exact || resp.Remainder != 50 {
		t.Errorf("suggest 17350 = %+v", resp)
	}

	// The drawer table has coins and allocates fully.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/denominations/suggest?amount=17350&table=drawer", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Exact {
		t.Errorf("drawer suggest 17350 = %+v", resp)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/denominations/suggest?amount=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad amount = %d, want 400", rec.Code)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	s := newTestServer(t)
	openAll(t, s, 100000)

	// Bills only: 17300 = 1x10000 + 1x5000 + 1x2000 + 1x200 + 1x100.
	counts := []map[string]interface{}{
		{"face_value": 10000, "kind": "bill", "count": 1},
		{"face_value": 5000, "kind": "bill", "count": 1},
		{"face_value": 2000, "kind": "bill", "count": 1},
		{"face_value": 200, "kind": "bill", "count": 1},
		{"face_value": 100, "kind": "bill", "count": 1},
	}

	rec := doJSON(t, s, http.MethodPost, "/api/v1/operations/withdrawal", map[string]interface{}{
		"account_id": "ACC-1",
		"amount":     17300,
		"reference":  "W-1",
		"carrier": map[string]interface{}{
			"kind":          "account_holder",
			"full_name":     "Awa Diallo",
			"id_doc_number": "AB123456",
		},
		"counts": counts,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("withdrawal = %d: %s", rec.Code, rec.Body.String())
	}
	var result operation.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ReceiptRef != "RCPT-1" {
		t.Errorf("result = %+v", result)
	}

	// The journal endpoint shows the completed operation.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/journal", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("journal = %d", rec.Code)
	}
	var jr struct {
		Records []journal.Record `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &jr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jr.Records) != 1 || jr.Records[0].Reference != "W-1" {
		t.Errorf("journal records = %+v", jr.Records)
	}

	// Same reference again: conflict.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/operations/withdrawal", map[string]interface{}{
		"account_id": "ACC-1",
		"amount":     17300,
		"reference":  "W-1",
		"carrier": map[string]interface{}{
			"kind":          "account_holder",
			"full_name":     "Awa Diallo",
			"id_doc_number": "AB123456",
		},
		"counts": counts,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate reference = %d, want 409", rec.Code)
	}
}

func TestWithdrawalWithoutDrawer(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/operations/withdrawal", map[string]interface{}{
		"account_id": "ACC-1",
		"amount":     5000,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("withdrawal without drawer = %d, want 409", rec.Code)
	}
}

func TestCarrierMismatchMapsTo422(t *testing.T) {
	s := newTestServer(t)
	openAll(t, s, 100000)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/operations/withdrawal", map[string]interface{}{
		"account_id": "ACC-1",
		"amount":     5000,
		"carrier": map[string]interface{}{
			"kind":                "account_holder",
			"full_name":           "Awa Diallo",
			"id_doc_number":       "654321",
			"reference_id_number": "123456",
		},
		"counts": []map[string]interface{}{
			{"face_value": 5000, "kind": "bill", "count": 1},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("carrier mismatch = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownDenominationKind(t *testing.T) {
	s := newTestServer(t)
	openAll(t, s, 1000)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/cash-drawer/close", map[string]interface{}{
		"target_balance": 1000,
		"counts": []map[string]interface{}{
			{"face_value": 1000, "kind": "note", "count": 1},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/agency/open", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestJournalBySessionQuery(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/journal?drawer_session_id=300", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("journal with explicit session = %d", rec.Code)
	}
	var jr struct {
		DrawerSessionID string `json:"drawer_session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &jr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if jr.DrawerSessionID != "300" {
		t.Errorf("drawer_session_id = %q, want 300", jr.DrawerSessionID)
	}
}
