package webhook_handlers

import (
	"context"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/application"
	"storepulse-ingestion-layer/internal/domain"
)

// CustomerHandler handles customer-related webhook events.
type CustomerHandler struct {
	ingest *application.IngestService
	logger zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(ingest *application.IngestService, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		ingest: ingest,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersCreate ||
		topic == domain.TopicCustomersUpdate
}

// Handle processes a customer webhook event. The incoming orders_count only
// seeds a brand-new row; an existing row's counter belongs to the
// order-creation path and is never overwritten here.
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload domain.CustomerPayload
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
		Int64("customerId", intent.ID).
		Str("email", intent.Email).
		Msg("Customer upsert event")

	return h.ingest.UpsertCustomer(ctx, event.TenantID, intent)
}
