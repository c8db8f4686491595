// Package billing integrates the payment provider: checkout session creation
// and the out-of-band webhook events that flip subscription state.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/esyasil/clearroom/internal/config"
	"github.com/esyasil/clearroom/internal/logging"
	"github.com/esyasil/clearroom/internal/metrics"
)

// ErrInvalidSignature indicates a webhook delivery failed verification and
// was dropped without any state change
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event types this service reconciles
const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionDeleted = "customer.subscription.deleted"
)

// SubscriptionLedger is the entitlement surface mutated by payment events
type SubscriptionLedger interface {
	GrantSubscription(ctx context.Context, userID, customerID string) error
	RevokeSubscriptionByCustomer(ctx context.Context, customerID string) error
}

// Service wraps the Stripe API and reconciles its webhook events into the
// entitlement ledger
type Service struct {
	client *stripeclient.API
	ledger SubscriptionLedger
	cfg    config.StripeConfig
	logger *logging.Logger
}

// NewService creates a new billing service
func NewService(cfg config.StripeConfig, ledger SubscriptionLedger, logger *logging.Logger) *Service {
	sc := &stripeclient.API{}
	sc.Init(cfg.SecretKey, nil)

	return &Service{
		client: sc,
		ledger: ledger,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCheckoutSession starts a subscription checkout for the user and
// returns the redirect URL. The user id rides along as the client reference
// so the completed-checkout webhook can find the account.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(s.cfg.ProductName),
					},
					UnitAmount: stripe.Int64(s.cfg.MonthlyAmount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
	}

	session, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return session.URL, nil
}

// HandleWebhook verifies and applies one webhook delivery. The signature is
// checked against the shared secret over the raw body before anything else;
// a failed check mutates nothing and the provider is expected to retry.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.cfg.WebhookSecret)
	if err != nil {
		metrics.RecordSignatureFailure()
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	metrics.RecordSubscriptionEvent(string(event.Type))

	switch string(event.Type) {
	case eventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case eventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	default:
		// Acknowledge everything else so the provider stops retrying
		s.logger.Debugf("Ignoring webhook event type %s", event.Type)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	if session.ClientReferenceID == "" {
		s.logger.Warn("Checkout completed without a client reference, skipping")
		return nil
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	s.logger.LogPaymentEvent(eventCheckoutCompleted, session.ClientReferenceID, customerID)
	return s.ledger.GrantSubscription(ctx, session.ClientReferenceID, customerID)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	if subscription.Customer == nil || subscription.Customer.ID == "" {
		s.logger.Warn("Subscription deleted without a customer reference, skipping")
		return nil
	}

	s.logger.LogPaymentEvent(eventSubscriptionDeleted, "", subscription.Customer.ID)
	return s.ledger.RevokeSubscriptionByCustomer(ctx, subscription.Customer.ID)
}
