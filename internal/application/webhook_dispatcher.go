package application

import (
	"context"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/domain"
)

// WebhookHandler processes webhook events for the topics it claims.
type WebhookHandler interface {
	// CanHandle returns true if this handler can process the given topic
	CanHandle(topic string) bool
	// Handle processes a webhook event
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes a verified webhook event to the handler
// registered for its topic. Topics with no handler are ignored, not
// errors: the platform's topic set evolves and unknown topics must not
// break ingestion.
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates an empty dispatcher.
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler to the dispatch chain.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch hands the event to the first handler claiming its topic.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	for _, handler := range d.handlers {
		if handler.CanHandle(event.Topic) {
			return handler.Handle(ctx, event)
		}
	}

	d.logger.Debug().
		Str("topic", event.Topic).
		Str("shop", event.ShopDomain).
		Msg("Ignoring webhook topic with no handler")
	return nil
}
