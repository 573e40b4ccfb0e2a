package ports

import (
	"context"

	"github.com/google/uuid"

	"storepulse-ingestion-layer/internal/domain"
)

// TenantStore is the transactional relational store holding all tenant
// data. Implementations must make every multi-step operation atomic:
// CreateOrder and PurgeTenant either commit completely or leave no trace.
// All upserts are idempotent on the composite (id, tenantID) key.
type TenantStore interface {
	// UpsertTenant creates or refreshes a tenant keyed by store URL. A
	// reinstall of the same store replaces the access token in place.
	UpsertTenant(ctx context.Context, storeURL, accessToken string) (*domain.Tenant, error)

	// GetTenant returns domain.ErrUnknownTenant when no such tenant exists.
	GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)

	ListTenants(ctx context.Context) ([]*domain.Tenant, error)

	UpsertProduct(ctx context.Context, tenantID uuid.UUID, intent domain.ProductUpsert) error

	// DeleteProduct succeeds silently when the product does not exist.
	DeleteProduct(ctx context.Context, tenantID uuid.UUID, productID int64) error

	// UpsertCustomer never writes the incoming OrdersCount over an existing
	// row's counter; the counter only moves through the order-creation path.
	UpsertCustomer(ctx context.Context, tenantID uuid.UUID, intent domain.CustomerUpsert) error

	// CreateOrder runs one transaction that inserts the order, its line
	// items and any stub products, upserts the attached customer with an
	// atomic order-count increment, and completes the referenced checkout.
	// When the order id already exists the call instead refreshes the
	// order's financial status and total price, with no increment and no
	// line-item rewrite; created reports which path was taken.
	CreateOrder(ctx context.Context, tenantID uuid.UUID, intent domain.OrderCreate) (created bool, err error)

	// UpsertCheckout never clears a stored email with an absent incoming
	// value and never un-completes a completed checkout.
	UpsertCheckout(ctx context.Context, tenantID uuid.UUID, intent domain.CheckoutUpsert) error

	// PurgeTenant deletes line items, orders, customers, products,
	// checkouts and the tenant row in one transaction.
	PurgeTenant(ctx context.Context, tenantID uuid.UUID) error

	Overview(ctx context.Context, tenantID uuid.UUID) (*domain.TenantOverview, error)
	CheckoutStats(ctx context.Context, tenantID uuid.UUID) (*domain.CheckoutStats, error)
}
