package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esyasil/clearroom/internal/config"
	"github.com/esyasil/clearroom/internal/logging"
)

const testWebhookSecret = "whsec_test_secret"

type fakeLedger struct {
	granted  []string
	customer []string
	revoked  []string
}

func (f *fakeLedger) GrantSubscription(ctx context.Context, userID, customerID string) error {
	f.granted = append(f.granted, userID)
	f.customer = append(f.customer, customerID)
	return nil
}

func (f *fakeLedger) RevokeSubscriptionByCustomer(ctx context.Context, customerID string) error {
	f.revoked = append(f.revoked, customerID)
	return nil
}

func newTestService(ledger *fakeLedger) *Service {
	return NewService(config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
	}, ledger, logging.NewTestLogger(io.Discard))
}

// signPayload builds a Stripe-Signature header the way the provider does:
// HMAC-SHA256 over "<timestamp>.<payload>" with the shared secret
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	ledger := &fakeLedger{}
	service := newTestService(ledger)

	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"client_reference_id": "user-1",
				"customer": "cus_123"
			}
		}
	}`)

	sig := signPayload(payload, testWebhookSecret, time.Now())
	err := service.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)

	require.Len(t, ledger.granted, 1)
	assert.Equal(t, "user-1", ledger.granted[0])
	assert.Equal(t, "cus_123", ledger.customer[0])
}

func TestHandleWebhookSubscriptionDeleted(t *testing.T) {
	ledger := &fakeLedger{}
	service := newTestService(ledger)

	payload := []byte(`{
		"type": "customer.subscription.deleted",
		"data": {
			"object": {
				"customer": "cus_456"
			}
		}
	}`)

	sig := signPayload(payload, testWebhookSecret, time.Now())
	err := service.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)

	require.Len(t, ledger.revoked, 1)
	assert.Equal(t, "cus_456", ledger.revoked[0])
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	ledger := &fakeLedger{}
	service := newTestService(ledger)

	payload := []byte(`{"type": "checkout.session.completed"}`)

	tests := []struct {
		name string
		sig  string
	}{
		{
			name: "missing header",
			sig:  "",
		},
		{
			name: "wrong secret",
			sig:  signPayload(payload, "whsec_wrong", time.Now()),
		},
		{
			name: "stale timestamp",
			sig:  signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)),
		},
		{
			name: "tampered payload",
			sig:  signPayload([]byte(`{"type":"other"}`), testWebhookSecret, time.Now()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.HandleWebhook(context.Background(), payload, tt.sig)
			assert.ErrorIs(t, err, ErrInvalidSignature)
			assert.Empty(t, ledger.granted, "Rejected delivery must not mutate state")
			assert.Empty(t, ledger.revoked, "Rejected delivery must not mutate state")
		})
	}
}

func TestHandleWebhookIgnoresUnknownEvents(t *testing.T) {
	ledger := &fakeLedger{}
	service := newTestService(ledger)

	payload := []byte(`{"type": "invoice.paid", "data": {"object": {}}}`)

	sig := signPayload(payload, testWebhookSecret, time.Now())
	err := service.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)

	assert.Empty(t, ledger.granted)
	assert.Empty(t, ledger.revoked)
}

func TestHandleWebhookCheckoutWithoutReference(t *testing.T) {
	ledger := &fakeLedger{}
	service := newTestService(ledger)

	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"customer": "cus_123"}}
	}`)

	sig := signPayload(payload, testWebhookSecret, time.Now())
	err := service.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)

	assert.Empty(t, ledger.granted, "No reference means no account to grant")
}
