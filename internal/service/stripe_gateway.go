package service

import (
	"context"
	"errors"

	"booking-service/internal/models"
	"booking-service/internal/util"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeGateway charges upfront fees through Stripe PaymentIntents and
// issues compensating refunds through the Refunds API.
type StripeGateway struct {
	api           *client.API
	paymentMethod string
	logger        *zap.Logger
}

// NewStripeGateway creates a gateway bound to an API key. paymentMethod is
// the payment method attached to created intents (test environments use
// Stripe's test methods).
func NewStripeGateway(apiKey, paymentMethod string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{
		api:           api,
		paymentMethod: paymentMethod,
		logger:        util.GetLogger(),
	}
}

// Charge creates and confirms a PaymentIntent for the amount. The
// idempotency key makes a retried call return the original intent instead
// of double-charging.
func (g *StripeGateway) Charge(ctx context.Context, amount int64, currency, idempotencyKey string) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		Confirm:       stripe.Bool(true),
		PaymentMethod: stripe.String(g.paymentMethod),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String(idempotencyKey)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.logger.Warn("PaymentIntent did not succeed",
			zap.String("intent", pi.ID),
			zap.String("status", string(pi.Status)))
		return nil, &models.PaymentDeclinedError{Reason: string(pi.Status)}
	}

	g.logger.Info("Stripe charge captured",
		zap.String("intent", pi.ID),
		zap.Int64("amount", amount))
	return &ChargeResult{Reference: pi.ID}, nil
}

// Refund reverses a captured PaymentIntent, fully or partially.
func (g *StripeGateway) Refund(ctx context.Context, reference string, amount int64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx

	if _, err := g.api.Refunds.New(params); err != nil {
		return mapStripeError(err)
	}

	g.logger.Info("Stripe refund issued",
		zap.String("reference", reference),
		zap.Int64("amount", amount))
	return nil
}

// mapStripeError translates Stripe errors into the service taxonomy:
// card errors are user-correctable declines, everything else is a
// transient gateway failure.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeCard {
			reason := string(stripeErr.DeclineCode)
			if reason == "" {
				reason = stripeErr.Msg
			}
			return &models.PaymentDeclinedError{Reason: reason}
		}
	}
	return &models.PaymentGatewayError{Err: err}
}
