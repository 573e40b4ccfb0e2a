package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/ports"
)

// WebhookRegistrar subscribes the platform to push the fixed topic set at a
// tenant-scoped callback URL. Each topic is an independent request: one
// failure is logged and the rest are still attempted, so a partial
// registration can be repaired by re-running.
type WebhookRegistrar struct {
	gateway         ports.StorefrontGateway
	logger          zerolog.Logger
	callbackBaseURL string
}

// NewWebhookRegistrar creates a registrar posting callbacks under
// callbackBaseURL (e.g. https://app.example.com/webhooks).
func NewWebhookRegistrar(gateway ports.StorefrontGateway, logger zerolog.Logger, callbackBaseURL string) *WebhookRegistrar {
	return &WebhookRegistrar{
		gateway:         gateway,
		logger:          logger,
		callbackBaseURL: callbackBaseURL,
	}
}

// RegisterAll subscribes every topic for the tenant and returns how many
// subscriptions succeeded.
func (r *WebhookRegistrar) RegisterAll(ctx context.Context, tenant *domain.Tenant) int {
	address := fmt.Sprintf("%s/%s", r.callbackBaseURL, tenant.ID)

	registered := 0
	for _, topic := range domain.SubscriptionTopics {
		if err := r.gateway.CreateWebhook(ctx, tenant.StoreURL, tenant.AccessToken, topic, address); err != nil {
			r.logger.Error().
				Err(err).
				Str("topic", topic).
				Str("shop", tenant.StoreURL).
				Msg("Failed to register webhook")
			continue
		}
		registered++
		r.logger.Info().
			Str("topic", topic).
			Str("shop", tenant.StoreURL).
			Msg("Registered webhook")
	}

	if registered < len(domain.SubscriptionTopics) {
		r.logger.Warn().
			Str("shop", tenant.StoreURL).
			Int("registered", registered).
			Int("total", len(domain.SubscriptionTopics)).
			Msg("Partial webhook registration, re-run registration to repair")
	}
	return registered
}
