package booking

import (
	"context"
	"fmt"

	"appispot/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
)

// PaymentGateway abstracts the payment processor so the workflow can be
// exercised without network calls.
type PaymentGateway interface {
	// CreateIntent opens a payment intent for the amount in cents and
	// returns its ID and client secret.
	CreateIntent(ctx context.Context, amount int64, bookingID string) (id, clientSecret string, err error)
	// ConfirmIntent reports whether the intent has succeeded.
	ConfirmIntent(ctx context.Context, intentID string) (bool, error)
	// Refund returns the given amount in cents to the payer.
	Refund(ctx context.Context, intentID string, amount int64) error
}

// StripeGateway implements PaymentGateway against Stripe.
type StripeGateway struct{}

func (StripeGateway) CreateIntent(ctx context.Context, amount int64, bookingID string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(config.AppConfig.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("bookingId", bookingID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return pi.ID, pi.ClientSecret, nil
}

func (StripeGateway) ConfirmIntent(ctx context.Context, intentID string) (bool, error) {
	pi, err := paymentintent.Get(intentID, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch payment intent: %w", err)
	}
	return pi.Status == stripe.PaymentIntentStatusSucceeded, nil
}

func (StripeGateway) Refund(ctx context.Context, intentID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amount),
	}
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund failed: %w", err)
	}
	return nil
}
