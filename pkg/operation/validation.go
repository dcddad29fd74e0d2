package operation

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"cashdesk/pkg/gateway"

	"go.uber.org/zap"
)

var (
	// ErrUnknownPending is returned when no pending operation matches the id.
	ErrUnknownPending = errors.New("operation: unknown pending request")

	// ErrValidationExpired is returned when the pending operation's
	// validation window has passed. The operation must be resubmitted.
	ErrValidationExpired = errors.New("operation: validation window expired")

	// ErrInvalidValidationCode is returned when the supplied code does not
	// match the code issued for the pending operation.
	ErrInvalidValidationCode = errors.New("operation: invalid validation code")
)

// ConfirmPending completes an operation held for supervisor validation. The
// code the supervisor hands over is checked locally in constant time; only a
// correct code reaches the backend. The code is single use: after a
// successful confirmation the pending entry is gone.
func (s *Service) ConfirmPending(ctx context.Context, pendingRequestID, code string) (*Result, error) {
	s.mu.Lock()
	p, exists := s.pending[pendingRequestID]
	if exists && time.Now().After(p.expiresAt) {
		delete(s.pending, pendingRequestID)
		s.mu.Unlock()
		s.logger.Warn("pending validation expired",
			zap.String("pending_request_id", pendingRequestID),
		)
		return nil, ErrValidationExpired
	}
	s.mu.Unlock()

	if !exists {
		return nil, ErrUnknownPending
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(p.code)) != 1 {
		s.logger.Warn("validation code rejected",
			zap.String("pending_request_id", pendingRequestID),
		)
		return nil, ErrInvalidValidationCode
	}

	result, err := s.gw.ConfirmOperation(ctx, gateway.ConfirmOperationRequest{
		PendingRequestID: pendingRequestID,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, pendingRequestID)
	s.mu.Unlock()

	return s.complete(ctx, p.record, result)
}

// PendingCount returns the number of operations awaiting validation,
// dropping expired entries on the way.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, id)
		}
	}
	return len(s.pending)
}
