package webhook_handlers

import (
	"context"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/application"
	"storepulse-ingestion-layer/internal/domain"
)

// CheckoutHandler handles checkout-related webhook events.
type CheckoutHandler struct {
	ingest *application.IngestService
	logger zerolog.Logger
}

// NewCheckoutHandler creates a new checkout webhook handler
func NewCheckoutHandler(ingest *application.IngestService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		ingest: ingest,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CheckoutHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCheckoutsCreate ||
		topic == domain.TopicCheckoutsUpdate
}

// Handle processes a checkout webhook event. An update without an email
// keeps whatever address an earlier delivery stored; completion is owned by
// the order path, never by checkout updates.
func (h *CheckoutHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload domain.CheckoutPayload
	if err := domain.DecodePayload(event.Payload, &payload); err != nil {
		return err
	}

	intent, err := payload.Intent()
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.ShopDomain).
		Int64("checkoutId", intent.ID).
		Msg("Checkout upsert event")

	return h.ingest.UpsertCheckout(ctx, event.TenantID, intent)
}
