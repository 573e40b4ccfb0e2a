package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/infrastructure/metrics"
	"storepulse-ingestion-layer/internal/ports"
)

// IngestService is the reconciliation engine. It applies mutation intents
// to the tenant store regardless of whether they came from a webhook
// delivery or a bulk fetch page; the store's idempotent upserts and
// transactional order creation make the final state independent of
// delivery order and duplication.
type IngestService struct {
	store  ports.TenantStore
	logger zerolog.Logger
}

// NewIngestService creates the reconciliation engine over a store handle.
func NewIngestService(store ports.TenantStore, logger zerolog.Logger) *IngestService {
	return &IngestService{
		store:  store,
		logger: logger,
	}
}

func (s *IngestService) UpsertProduct(ctx context.Context, tenantID uuid.UUID, intent domain.ProductUpsert) error {
	if err := s.store.UpsertProduct(ctx, tenantID, intent); err != nil {
		metrics.IngestFailures.WithLabelValues("upsert_product").Inc()
		return err
	}
	s.logger.Debug().
		Stringer("tenantId", tenantID).
		Int64("productId", intent.ID).
		Msg("Product upserted")
	return nil
}

func (s *IngestService) DeleteProduct(ctx context.Context, tenantID uuid.UUID, productID int64) error {
	if err := s.store.DeleteProduct(ctx, tenantID, productID); err != nil {
		metrics.IngestFailures.WithLabelValues("delete_product").Inc()
		return err
	}
	s.logger.Debug().
		Stringer("tenantId", tenantID).
		Int64("productId", productID).
		Msg("Product deleted")
	return nil
}

func (s *IngestService) UpsertCustomer(ctx context.Context, tenantID uuid.UUID, intent domain.CustomerUpsert) error {
	if err := s.store.UpsertCustomer(ctx, tenantID, intent); err != nil {
		metrics.IngestFailures.WithLabelValues("upsert_customer").Inc()
		return err
	}
	s.logger.Debug().
		Stringer("tenantId", tenantID).
		Int64("customerId", intent.ID).
		Msg("Customer upserted")
	return nil
}

// CreateOrder ingests one order. created reports whether the order was new;
// a duplicate delivery only refreshes financial state and is not an error.
func (s *IngestService) CreateOrder(ctx context.Context, tenantID uuid.UUID, intent domain.OrderCreate) (bool, error) {
	created, err := s.store.CreateOrder(ctx, tenantID, intent)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("create_order").Inc()
		return false, err
	}
	s.logger.Debug().
		Stringer("tenantId", tenantID).
		Int64("orderId", intent.ID).
		Bool("created", created).
		Int("lineItems", len(intent.LineItems)).
		Msg("Order ingested")
	return created, nil
}

func (s *IngestService) UpsertCheckout(ctx context.Context, tenantID uuid.UUID, intent domain.CheckoutUpsert) error {
	if err := s.store.UpsertCheckout(ctx, tenantID, intent); err != nil {
		metrics.IngestFailures.WithLabelValues("upsert_checkout").Inc()
		return err
	}
	s.logger.Debug().
		Stringer("tenantId", tenantID).
		Int64("checkoutId", intent.ID).
		Msg("Checkout upserted")
	return nil
}

func (s *IngestService) PurgeTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := s.store.PurgeTenant(ctx, tenantID); err != nil {
		metrics.IngestFailures.WithLabelValues("purge_tenant").Inc()
		return err
	}
	s.logger.Info().
		Stringer("tenantId", tenantID).
		Msg("Tenant purged")
	return nil
}
