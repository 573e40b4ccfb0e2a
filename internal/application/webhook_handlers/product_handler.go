package webhook_handlers

import (
	"context"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/application"
	"storepulse-ingestion-layer/internal/domain"
)

// ProductHandler handles product-related webhook events. The create and
// update topics share one upsert path: which of the two the platform chose
// to deliver carries no information the store needs.
type ProductHandler struct {
	ingest *application.IngestService
	logger zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(ingest *application.IngestService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		ingest: ingest,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.TopicProductsCreate ||
		topic == domain.TopicProductsUpdate ||
		topic == domain.TopicProductsDelete
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload domain.ProductPayload
	if err := domain.DecodePayload(event.Payload, &payload); err != nil {
		return err
	}

	if event.Topic == domain.TopicProductsDelete {
		// Delete payloads carry only the id. Deleting a product the store
		// never saw is fine.
		h.logger.Info().
			Str("shop", event.ShopDomain).
			Int64("productId", payload.ID).
			Msg("Product delete event")
		return h.ingest.DeleteProduct(ctx, event.TenantID, payload.ID)
	}

	intent, err := payload.Intent()
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.ShopDomain).
		Int64("productId", intent.ID).
		Str("title", intent.Title).
		Msg("Product upsert event")

	return h.ingest.UpsertProduct(ctx, event.TenantID, intent)
}
