package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(DefaultClientConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, server
}

func TestClientOpenAgency(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/agency/open" {
			t.Errorf("path = %q, want /sessions/agency/open", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}

		var req OpenAgencyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.AgencyID != "1" || req.AccountingDate != "2024-01-01" {
			t.Errorf("unexpected request: %+v", req)
		}

		json.NewEncoder(w).Encode(AgencySession{
			SessionID:       "100",
			AccountingDayID: "day-7",
			AccountingDate:  req.AccountingDate,
			AgencyID:        req.AgencyID,
		})
	})

	session, err := client.OpenAgency(context.Background(), OpenAgencyRequest{
		AgencyID:       "1",
		AccountingDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("OpenAgency: %v", err)
	}
	if session.SessionID != "100" || session.AccountingDayID != "day-7" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestClientRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(errorPayload{
			Message:     "declared balance mismatch",
			FieldErrors: map[string]string{"declared_balance": "does not match counted total"},
		})
	})

	_, err := client.OpenCashDrawer(context.Background(), OpenCashDrawerRequest{})
	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("error = %v, want RejectionError", err)
	}
	if rej.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", rej.StatusCode)
	}
	if rej.Message != "declared balance mismatch" {
		t.Errorf("Message = %q", rej.Message)
	}
	if rej.FieldErrors["declared_balance"] == "" {
		t.Errorf("missing field error, got %+v", rej.FieldErrors)
	}
	if Classify(err) != "rejected" {
		t.Errorf("Classify = %q, want rejected", Classify(err))
	}
}

func TestClientRejectionWithoutBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.CloseAgency(context.Background(), CloseAgencyRequest{SessionID: "100"})
	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("error = %v, want RejectionError", err)
	}
	if rej.Message != http.StatusText(http.StatusBadRequest) {
		t.Errorf("Message = %q, want status text fallback", rej.Message)
	}
}

func TestClientServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.CloseTillWindow(context.Background(), CloseTillWindowRequest{SessionID: "200"})
	if !IsUnavailable(err) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if IsRejection(err) {
		t.Error("5xx must not be classified as a rejection")
	}
	if Classify(err) != "unavailable" {
		t.Errorf("Classify = %q, want unavailable", Classify(err))
	}
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close() // connection refused from here on

	client, err := NewClient(DefaultClientConfig(url))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.SubmitWithdrawal(context.Background(), WithdrawalRequest{})
	if !IsUnavailable(err) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestClientTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can watch for the client going away;
		// with an unread body it never cancels r.Context() and Close hangs.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.SubmitDeposit(ctx, DepositRequest{})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("NewClient without base URL should fail")
	}
}

func TestRejectionErrorString(t *testing.T) {
	err := &RejectionError{
		StatusCode:  400,
		Message:     "invalid request",
		FieldErrors: map[string]string{"amount": "must be positive", "account_id": "required"},
	}

	want := "gateway: rejected: invalid request (account_id: required; amount: must be positive)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
