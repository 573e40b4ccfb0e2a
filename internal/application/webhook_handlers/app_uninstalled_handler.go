package webhook_handlers

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/application"
	"storepulse-ingestion-layer/internal/domain"
)

// AppUninstalledHandler purges all of a tenant's data when the merchant
// uninstalls the app.
type AppUninstalledHandler struct {
	ingest *application.IngestService
	logger zerolog.Logger
}

// NewAppUninstalledHandler creates a new app/uninstalled webhook handler
func NewAppUninstalledHandler(ingest *application.IngestService, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		ingest: ingest,
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle processes an app uninstallation. The platform may redeliver the
// event after the purge already ran, so an unknown tenant is a no-op.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Info().
		Str("shop", event.ShopDomain).
		Stringer("tenantId", event.TenantID).
		Msg("App uninstalled, purging tenant data")

	err := h.ingest.PurgeTenant(ctx, event.TenantID)
	if errors.Is(err, domain.ErrUnknownTenant) {
		h.logger.Warn().
			Stringer("tenantId", event.TenantID).
			Msg("Uninstall delivery for already purged tenant")
		return nil
	}
	return err
}
