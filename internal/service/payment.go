package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeResult is a successful capture.
type ChargeResult struct {
	Reference string
}

// PaymentGateway is the external payment collaborator. Charge must be safe
// to retry with the same idempotency key. Declines come back as
// *models.PaymentDeclinedError, transient provider failures as
// *models.PaymentGatewayError.
type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, currency, idempotencyKey string) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount int64) error
}

// gatewayRetryBackoff is the pause before the single retry allowed for
// transient gateway errors.
const gatewayRetryBackoff = 500 * time.Millisecond

// chargeWithRetry calls the gateway, retrying once on a transient error.
// The idempotency key makes the retried call safe. Declines are never
// retried.
func chargeWithRetry(ctx context.Context, gw PaymentGateway, amount int64, currency, key string, logger *zap.Logger) (*ChargeResult, error) {
	res, err := gw.Charge(ctx, amount, currency, key)
	if err == nil {
		return res, nil
	}

	var gwErr *models.PaymentGatewayError
	if !errors.As(err, &gwErr) {
		return nil, err
	}

	logger.Warn("Transient gateway error, retrying charge",
		zap.String("idempotency_key", key),
		zap.Error(err))
	util.PaymentRetriesTotal.Inc()

	select {
	case <-ctx.Done():
		return nil, &models.PaymentGatewayError{Err: ctx.Err()}
	case <-time.After(gatewayRetryBackoff):
	}

	return gw.Charge(ctx, amount, currency, key)
}

// MockGateway simulates a payment provider for development and tests.
type MockGateway struct {
	logger *zap.Logger

	// DeclineAll makes every charge fail as a decline.
	DeclineAll bool
}

// NewMockGateway creates a mock gateway that approves everything.
func NewMockGateway() *MockGateway {
	return &MockGateway{logger: util.GetLogger()}
}

// Charge simulates a capture.
func (g *MockGateway) Charge(ctx context.Context, amount int64, currency, idempotencyKey string) (*ChargeResult, error) {
	if g.DeclineAll {
		return nil, &models.PaymentDeclinedError{Reason: "card declined"}
	}

	ref := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
	g.logger.Info("Mock charge captured",
		zap.Int64("amount", amount),
		zap.String("currency", currency),
		zap.String("reference", ref))
	return &ChargeResult{Reference: ref}, nil
}

// Refund simulates a refund.
func (g *MockGateway) Refund(ctx context.Context, reference string, amount int64) error {
	g.logger.Info("Mock refund issued",
		zap.String("reference", reference),
		zap.Int64("amount", amount))
	return nil
}
