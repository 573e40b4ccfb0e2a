package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/ports"
)

// TenantService handles tenant lifecycle: onboarding after OAuth, explicit
// deletion, and the aggregate reads the dashboard consumes.
type TenantService struct {
	store     ports.TenantStore
	registrar *WebhookRegistrar
	logger    zerolog.Logger
}

// NewTenantService creates a new tenant service.
func NewTenantService(store ports.TenantStore, registrar *WebhookRegistrar, logger zerolog.Logger) *TenantService {
	return &TenantService{
		store:     store,
		registrar: registrar,
		logger:    logger,
	}
}

// Onboard upserts the tenant for a freshly authorized store (refreshing the
// token on reinstall) and registers the webhook topic set. Partial webhook
// registration does not fail onboarding; it is repaired by reinstalling or
// re-running registration.
func (s *TenantService) Onboard(ctx context.Context, storeURL, accessToken string) (*domain.Tenant, error) {
	tenant, err := s.store.UpsertTenant(ctx, storeURL, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to onboard %s: %w", storeURL, err)
	}

	s.logger.Info().
		Stringer("tenantId", tenant.ID).
		Str("shop", tenant.StoreURL).
		Msg("Tenant onboarded")

	s.registrar.RegisterAll(ctx, tenant)
	return tenant, nil
}

// Delete purges the tenant and everything it owns.
func (s *TenantService) Delete(ctx context.Context, tenantID uuid.UUID) error {
	return s.store.PurgeTenant(ctx, tenantID)
}

// Overview returns the tenant's denormalized aggregates.
func (s *TenantService) Overview(ctx context.Context, tenantID uuid.UUID) (*domain.TenantOverview, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.Overview(ctx, tenantID)
}

// CheckoutStats returns the tenant's checkout abandonment aggregate.
func (s *TenantService) CheckoutStats(ctx context.Context, tenantID uuid.UUID) (*domain.CheckoutStats, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.CheckoutStats(ctx, tenantID)
}
