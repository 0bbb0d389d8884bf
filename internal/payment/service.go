package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/guestlink/guestlink/pkg/metrics"
	"github.com/guestlink/guestlink/pkg/models"
)

// Result classifies the outcome of a settlement attempt.
type Result string

const (
	ResultSettled            Result = "settled"
	ResultAlreadySettled     Result = "already_settled"
	ResultVerificationFailed Result = "verification_failed"
	ResultOrderNotFound      Result = "order_not_found"
	ResultStoreError         Result = "store_error"
)

// ErrOrderNotFound is returned by OrderStore lookups for unknown references.
var ErrOrderNotFound = errors.New("order not found")

// SettlementRequest is the inbound gateway callback payload. It is consumed
// once and never persisted.
type SettlementRequest struct {
	OrderReference   string `json:"orderReference" binding:"required,max=64"`
	PaymentReference string `json:"paymentReference" binding:"required,max=64"`
	Signature        string `json:"signature" binding:"required,hexadecimal,max=128"`
}

// OrderStore is the persistence collaborator for settlement.
type OrderStore interface {
	// FindByReference returns the order with the given gateway reference,
	// or ErrOrderNotFound.
	FindByReference(ctx context.Context, ref string) (*models.Order, error)

	// SettleIfPending atomically marks the order paid/completed and attaches
	// payment details, but only if the order is still pending. It reports
	// whether the update was applied. Two concurrent calls for the same
	// reference must never both report true.
	SettleIfPending(ctx context.Context, ref, paymentRef, signature string, paidAt time.Time) (bool, error)
}

// Service applies the one-time settlement transition for verified callbacks.
type Service struct {
	verifier *Verifier
	store    OrderStore
	logger   *zap.Logger
}

// NewService creates a settlement service.
func NewService(verifier *Verifier, store OrderStore, logger *zap.Logger) *Service {
	return &Service{verifier: verifier, store: store, logger: logger}
}

// Settle verifies the callback signature and transitions the referenced
// order pending -> completed exactly once. Repeated callbacks for an
// already-completed order return ResultAlreadySettled without touching the
// stored payment details. The returned error is non-nil only for
// ResultStoreError.
func (s *Service) Settle(ctx context.Context, req *SettlementRequest) (Result, error) {
	start := time.Now()
	result, err := s.settle(ctx, req)
	metrics.SettlementResults.WithLabelValues(string(result)).Inc()
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	return result, err
}

func (s *Service) settle(ctx context.Context, req *SettlementRequest) (Result, error) {
	if !s.verifier.Verify(req.OrderReference, req.PaymentReference, req.Signature) {
		// Reference only: never log the secret or a signature value.
		s.logger.Warn("payment signature mismatch",
			zap.String("order_reference", req.OrderReference),
			zap.String("payment_reference", req.PaymentReference))
		return ResultVerificationFailed, nil
	}

	order, err := s.store.FindByReference(ctx, req.OrderReference)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.logger.Warn("settlement for unknown order",
				zap.String("order_reference", req.OrderReference))
			return ResultOrderNotFound, nil
		}
		return ResultStoreError, fmt.Errorf("failed to look up order: %w", err)
	}

	// Idempotence guard: gateway retries of a processed callback succeed
	// without rewriting payment details.
	if order.Status == models.OrderStatusCompleted {
		return ResultAlreadySettled, nil
	}

	applied, err := s.store.SettleIfPending(ctx, req.OrderReference, req.PaymentReference, req.Signature, time.Now().UTC())
	if err != nil {
		return ResultStoreError, fmt.Errorf("failed to settle order: %w", err)
	}
	if applied {
		s.logger.Info("order settled",
			zap.String("order_reference", req.OrderReference),
			zap.String("payment_reference", req.PaymentReference))
		return ResultSettled, nil
	}

	// The conditional update lost a race or the order left the pending
	// state through another path. Re-read to distinguish.
	order, err = s.store.FindByReference(ctx, req.OrderReference)
	if err != nil {
		return ResultStoreError, fmt.Errorf("failed to re-read order after conditional update: %w", err)
	}
	if order.Status == models.OrderStatusCompleted {
		return ResultAlreadySettled, nil
	}
	return ResultStoreError, fmt.Errorf("order %s in state %q cannot be settled", req.OrderReference, order.Status)
}
