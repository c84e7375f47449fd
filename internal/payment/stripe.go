package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"food-delivery/config"
	"food-delivery/internal/models"
	"food-delivery/internal/util"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Webhook event types the service acts on
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Intent is a created payment intent
type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
}

// WebhookEvent is a verified provider callback. OrderID is 0 when the
// event carries no usable order reference.
type WebhookEvent struct {
	ID              string
	Type            string
	OrderID         int64
	PaymentIntentID string
}

// StripeGateway creates payment intents and verifies webhooks
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	logger        *zap.Logger
}

// NewStripeGateway creates a gateway against the live Stripe API
func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	return NewStripeGatewayWithBackends(cfg, nil)
}

// NewStripeGatewayWithBackends creates a gateway with custom API backends
func NewStripeGatewayWithBackends(cfg config.StripeConfig, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		logger:        util.GetLogger(),
	}
}

// CreatePaymentIntent creates an intent for amountCents tagged with the order id
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, orderID int64) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatInt(orderID, 10))

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("Failed to create payment intent",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: failed to create payment intent: %v", models.ErrPaymentProvider, err)
	}

	g.logger.Info("Created payment intent",
		zap.Int64("order_id", orderID),
		zap.String("payment_intent_id", pi.ID))

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the order
// reference. Any verification or shape failure wraps models.ErrInvalidWebhook.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidWebhook, err)
	}

	result := &WebhookEvent{ID: event.ID, Type: string(event.Type)}

	if !strings.HasPrefix(result.Type, "payment_intent.") {
		return result, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", models.ErrInvalidWebhook, event.ID)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: malformed payment intent: %v", models.ErrInvalidWebhook, err)
	}
	result.PaymentIntentID = pi.ID

	if raw, ok := pi.Metadata["order_id"]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			result.OrderID = id
		}
	}
	return result, nil
}
