package resilience

import (
	"context"
	"time"

	"cashdesk/pkg/gateway"
	"cashdesk/pkg/logging"
	"cashdesk/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ResilientGateway wraps a Gateway with circuit breaker and timeout
// protection. All backend calls share one breaker: the workstation talks to a
// single core banking backend, so when it is down every operation suffers.
//
// Business rejections (4xx) count as breaker successes. The backend answered;
// only transport-level failures and 5xx responses should trip the breaker.
type ResilientGateway struct {
	gw      gateway.Gateway
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// rejected carries a business rejection through the breaker as a success.
type rejected struct {
	err error
}

// NewResilientGateway creates a new resilient wrapper around the given gateway.
func NewResilientGateway(gw gateway.Gateway, config ResilientConfig) *ResilientGateway {
	return NewResilientGatewayWithMetrics(gw, config, metrics.NoOpCollector{})
}

// NewResilientGatewayWithMetrics creates a new resilient wrapper with a custom metrics collector.
func NewResilientGatewayWithMetrics(gw gateway.Gateway, config ResilientConfig, metricsCollector metrics.Collector) *ResilientGateway {
	logger := logging.Global().Named("resilience").Named(gw.Name())

	rg := &ResilientGateway{
		gw:      gw,
		timeout: config.Timeout,
		metrics: metricsCollector,
		logger:  logger,
	}

	logger.Info("resilient gateway initialized",
		zap.String("gateway", gw.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_interval", config.CircuitBreakerConfig.Interval),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	settings := gobreaker.Settings{
		Name:        gw.Name(),
		MaxRequests: config.CircuitBreakerConfig.MaxRequests,
		Interval:    config.CircuitBreakerConfig.Interval,
		Timeout:     config.CircuitBreakerConfig.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if config.CircuitBreakerConfig.ReadyToTrip != nil {
				return config.CircuitBreakerConfig.ReadyToTrip(Counts{
					Requests:             counts.Requests,
					TotalSuccesses:       counts.TotalSuccesses,
					TotalFailures:        counts.TotalFailures,
					ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
					ConsecutiveFailures:  counts.ConsecutiveFailures,
				})
			}
			// Default: trip after 5 consecutive failures
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("gateway", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			rg.metrics.RecordCircuitState(gw.Name(), state)
		},
	}

	rg.cb = gobreaker.NewCircuitBreaker(settings)

	return rg
}

// execute runs fn through the circuit breaker with timeout enforcement and
// maps breaker and deadline errors onto the gateway error taxonomy.
func (rg *ResilientGateway) execute(ctx context.Context, operation string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	start := time.Now()

	if rg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rg.timeout)
		defer cancel()
	}

	result, err := rg.cb.Execute(func() (interface{}, error) {
		res, err := fn(ctx)
		if err != nil && gateway.IsRejection(err) {
			// The backend answered and refused. Not a breaker failure.
			return rejected{err: err}, nil
		}
		return res, err
	})

	duration := time.Since(start)

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			rg.logger.Warn("circuit breaker open - request rejected",
				zap.String("operation", operation),
			)
			err = gateway.ErrCircuitOpen
		} else if ctx.Err() == context.DeadlineExceeded {
			rg.logger.Warn("operation timeout",
				zap.String("operation", operation),
				zap.Duration("timeout", rg.timeout),
				zap.Duration("elapsed", duration),
			)
			err = gateway.ErrTimeout
		} else {
			rg.logger.Error("gateway operation failed",
				zap.String("operation", operation),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		}
		rg.metrics.RecordGatewayCall(operation, gateway.Classify(err), duration)
		return nil, err
	}

	if rej, ok := result.(rejected); ok {
		rg.logger.Warn("operation rejected by backend",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(rej.err),
		)
		rg.metrics.RecordGatewayCall(operation, gateway.Classify(rej.err), duration)
		return nil, rej.err
	}

	rg.metrics.RecordGatewayCall(operation, "none", duration)
	return result, nil
}

// OpenAgency implements gateway.Gateway.
func (rg *ResilientGateway) OpenAgency(ctx context.Context, req gateway.OpenAgencyRequest) (*gateway.AgencySession, error) {
	result, err := rg.execute(ctx, "open_agency", func(ctx context.Context) (interface{}, error) {
		return rg.gw.OpenAgency(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*gateway.AgencySession), nil
}

// CloseAgency implements gateway.Gateway.
func (rg *ResilientGateway) CloseAgency(ctx context.Context, req gateway.CloseAgencyRequest) error {
	_, err := rg.execute(ctx, "close_agency", func(ctx context.Context) (interface{}, error) {
		return nil, rg.gw.CloseAgency(ctx, req)
	})
	return err
}

// OpenTillWindow implements gateway.Gateway.
func (rg *ResilientGateway) OpenTillWindow(ctx context.Context, req gateway.OpenTillWindowRequest) (*gateway.TillWindowSession, error) {
	result, err := rg.execute(ctx, "open_till_window", func(ctx context.Context) (interface{}, error) {
		return rg.gw.OpenTillWindow(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*gateway.TillWindowSession), nil
}

// CloseTillWindow implements gateway.Gateway.
func (rg *ResilientGateway) CloseTillWindow(ctx context.Context, req gateway.CloseTillWindowRequest) error {
	_, err := rg.execute(ctx, "close_till_window", func(ctx context.Context) (interface{}, error) {
		return nil, rg.gw.CloseTillWindow(ctx, req)
	})
	return err
}

// OpenCashDrawer implements gateway.Gateway.
func (rg *ResilientGateway) OpenCashDrawer(ctx context.Context, req gateway.OpenCashDrawerRequest) (*gateway.CashDrawerSession, error) {
	result, err := rg.execute(ctx, "open_cash_drawer", func(ctx context.Context) (interface{}, error) {
		return rg.gw.OpenCashDrawer(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*gateway.CashDrawerSession), nil
}

// CloseCashDrawer implements gateway.Gateway.
func (rg *ResilientGateway) CloseCashDrawer(ctx context.Context, req gateway.CloseCashDrawerRequest) error {
	_, err := rg.execute(ctx, "close_cash_drawer", func(ctx context.Context) (interface{}, error) {
		return nil, rg.gw.CloseCashDrawer(ctx, req)
	})
	return err
}

// SubmitWithdrawal implements gateway.Gateway.
func (rg *ResilientGateway) SubmitWithdrawal(ctx context.Context, req gateway.WithdrawalRequest) (*gateway.OperationResult, error) {
	result, err := rg.execute(ctx, "submit_withdrawal", func(ctx context.Context) (interface{}, error) {
		return rg.gw.SubmitWithdrawal(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*gateway.OperationResult), nil
}

// SubmitDeposit implements gateway.Gateway.
func (rg *ResilientGateway) SubmitDeposit(ctx context.Context, req gateway.DepositRequest) (*gateway.OperationResult, error) {
	result, err := rg.execute(ctx, "submit_deposit", func(ctx context.Context) (interface{}, error) {
		return rg.gw.SubmitDeposit(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*gateway.OperationResult), nil
}

// ConfirmOperation implements gateway.Gateway.
func (rg *ResilientGateway) ConfirmOperation(ctx context.Context, req gateway.ConfirmOperationRequest) (*gateway.OperationResult, error) {
	result, err := rg.execute(ctx, "confirm_operation", func(ctx context.Context) (interface{}, error) {
		return rg.gw.ConfirmOperation(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*gateway.OperationResult), nil
}

// Name returns the name of the underlying gateway.
func (rg *ResilientGateway) Name() string {
	return rg.gw.Name()
}

// Close closes the underlying gateway.
func (rg *ResilientGateway) Close() error {
	return rg.gw.Close()
}
