package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cashdesk/pkg/gateway"
	gwmock "cashdesk/pkg/gateway/mock"
	memmetrics "cashdesk/pkg/metrics/memory"
)

func failingConfig() ResilientConfig {
	config := DefaultResilientConfig()
	config.CircuitBreakerConfig.ReadyToTrip = func(counts Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return config
}

func TestResilientGatewayPassthrough(t *testing.T) {
	mock := gwmock.NewMockGateway()
	rg := NewResilientGateway(mock, DefaultResilientConfig())

	session, err := rg.OpenAgency(context.Background(), gateway.OpenAgencyRequest{AgencyID: "1"})
	if err != nil {
		t.Fatalf("OpenAgency: %v", err)
	}
	if session.SessionID != "100" {
		t.Errorf("SessionID = %q, want 100", session.SessionID)
	}
	if mock.OpenAgencyCalls() != 1 {
		t.Errorf("OpenAgencyCalls = %d, want 1", mock.OpenAgencyCalls())
	}
}

func TestResilientGatewayTripsOnTransportFailures(t *testing.T) {
	mock := gwmock.NewMockGateway()
	mock.OpenAgencyFunc = func(ctx context.Context, req gateway.OpenAgencyRequest) (*gateway.AgencySession, error) {
		return nil, fmt.Errorf("dial: %w", gateway.ErrUnavailable)
	}

	rg := NewResilientGateway(mock, failingConfig())

	for i := 0; i < 3; i++ {
		_, err := rg.OpenAgency(context.Background(), gateway.OpenAgencyRequest{})
		if !gateway.IsUnavailable(err) {
			t.Fatalf("call %d: error = %v, want ErrUnavailable", i, err)
		}
	}

	// Breaker is now open: the backend must not be called again.
	before := mock.OpenAgencyCalls()
	_, err := rg.OpenAgency(context.Background(), gateway.OpenAgencyRequest{})
	if !errors.Is(err, gateway.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if mock.OpenAgencyCalls() != before {
		t.Errorf("backend called while circuit open")
	}
}

func TestResilientGatewayRejectionsDoNotTrip(t *testing.T) {
	mock := gwmock.NewMockGateway()
	mock.OpenCashDrawerFunc = func(ctx context.Context, req gateway.OpenCashDrawerRequest) (*gateway.CashDrawerSession, error) {
		return nil, &gateway.RejectionError{StatusCode: 422, Message: "declared balance mismatch"}
	}

	rg := NewResilientGateway(mock, failingConfig())

	for i := 0; i < 10; i++ {
		_, err := rg.OpenCashDrawer(context.Background(), gateway.OpenCashDrawerRequest{})
		if !gateway.IsRejection(err) {
			t.Fatalf("call %d: error = %v, want RejectionError", i, err)
		}
	}

	// Rejections are answered requests; the breaker must still be closed.
	if mock.OpenCashDrawerCalls() != 10 {
		t.Errorf("OpenCashDrawerCalls = %d, want 10", mock.OpenCashDrawerCalls())
	}
}

func TestResilientGatewayTimeout(t *testing.T) {
	mock := gwmock.NewMockGateway()
	mock.SubmitWithdrawalFunc = func(ctx context.Context, req gateway.WithdrawalRequest) (*gateway.OperationResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	config := DefaultResilientConfig().WithTimeout(30 * time.Millisecond)
	rg := NewResilientGateway(mock, config)

	_, err := rg.SubmitWithdrawal(context.Background(), gateway.WithdrawalRequest{})
	if !errors.Is(err, gateway.ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestResilientGatewayMetrics(t *testing.T) {
	mock := gwmock.NewMockGateway()
	mock.CloseAgencyFunc = func(ctx context.Context, req gateway.CloseAgencyRequest) error {
		return &gateway.RejectionError{StatusCode: 409, Message: "till windows still open"}
	}

	collector := memmetrics.NewMemoryCollector()
	rg := NewResilientGatewayWithMetrics(mock, DefaultResilientConfig(), collector)

	if _, err := rg.OpenAgency(context.Background(), gateway.OpenAgencyRequest{}); err != nil {
		t.Fatalf("OpenAgency: %v", err)
	}
	if err := rg.CloseAgency(context.Background(), gateway.CloseAgencyRequest{}); !gateway.IsRejection(err) {
		t.Fatalf("CloseAgency error = %v, want RejectionError", err)
	}

	snapshot := collector.Snapshot()
	open := snapshot.GatewayCalls["open_agency"]
	if open.Calls != 1 || open.Errors != 0 {
		t.Errorf("open_agency metrics = %+v", open)
	}
	closeM := snapshot.GatewayCalls["close_agency"]
	if closeM.Calls != 1 || closeM.ByClass["rejected"] != 1 {
		t.Errorf("close_agency metrics = %+v", closeM)
	}
}

func TestResilientGatewayName(t *testing.T) {
	rg := NewResilientGateway(gwmock.NewMockGateway(), DefaultResilientConfig())
	if rg.Name() != "mock" {
		t.Errorf("Name = %q, want mock", rg.Name())
	}
}
