package webhook_handlers

import (
	"context"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/application"
	"storepulse-ingestion-layer/internal/domain"
)

// OrderHandler handles orders/create webhook events. The platform may
// deliver the same order several times and may deliver it before the
// customer's own webhook; both cases are absorbed by the engine's
// transactional create.
type OrderHandler struct {
	ingest *application.IngestService
	logger zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(ingest *application.IngestService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		ingest: ingest,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return topic == domain.TopicOrdersCreate
}

// Handle processes an order webhook event
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload domain.OrderPayload
	if err := domain.DecodePayload(event.Payload, &payload); err != nil {
		return err
	}

	intent, err := payload.Intent()
	if err != nil {
		return err
	}

	created, err := h.ingest.CreateOrder(ctx, event.TenantID, intent)
	if err != nil {
		return err
	}

	if created {
		h.logger.Info().
			Str("shop", event.ShopDomain).
			Int64("orderId", intent.ID).
			Str("totalPrice", intent.TotalPrice.String()).
			Str("currency", intent.Currency).
			Msg("Order created")
	} else {
		h.logger.Info().
			Str("shop", event.ShopDomain).
			Int64("orderId", intent.ID).
			Msg("Duplicate order delivery, financial state refreshed")
	}
	return nil
}
