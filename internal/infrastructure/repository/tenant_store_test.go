package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storepulse-ingestion-layer/internal/domain"
)

func newTestStore(t *testing.T) *GormTenantStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewGormTenantStore(db)
	require.NoError(t, store.Migrate())
	return store
}

func newTestTenant(t *testing.T, store *GormTenantStore) *domain.Tenant {
	t.Helper()
	tenant, err := store.UpsertTenant(context.Background(), "test-store.myshopify.com", "token-1")
	require.NoError(t, err)
	return tenant
}

func int64Ptr(v int64) *int64 { return &v }

func TestUpsertTenantReinstallKeepsIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertTenant(ctx, "acme.myshopify.com", "token-a")
	require.NoError(t, err)

	second, err := store.UpsertTenant(ctx, "acme.myshopify.com", "token-b")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "reinstall must keep the tenant id")
	assert.Equal(t, "token-b", second.AccessToken, "reinstall must refresh the token")

	tenants, err := store.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func TestGetTenantUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTenant(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnknownTenant)
}

func TestUpsertProductIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	intent := domain.ProductUpsert{ID: 100, Title: "Desk Lamp", Vendor: "Lumen", ProductType: "lighting"}
	require.NoError(t, store.UpsertProduct(ctx, tenant.ID, intent))
	require.NoError(t, store.UpsertProduct(ctx, tenant.ID, intent))

	overview, err := store.Overview(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.Products)
}

func TestUpsertProductRefreshesFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	require.NoError(t, store.UpsertProduct(ctx, tenant.ID, domain.ProductUpsert{ID: 100, Title: "Desk Lamp"}))
	require.NoError(t, store.UpsertProduct(ctx, tenant.ID, domain.ProductUpsert{ID: 100, Title: "Desk Lamp v2", Vendor: "Lumen"}))

	var product domain.Product
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 100, tenant.ID).First(&product).Error)
	assert.Equal(t, "Desk Lamp v2", product.Title)
	assert.Equal(t, "Lumen", product.Vendor)
}

func TestProductsScopedByTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tenantA, err := store.UpsertTenant(ctx, "a.myshopify.com", "token-a")
	require.NoError(t, err)
	tenantB, err := store.UpsertTenant(ctx, "b.myshopify.com", "token-b")
	require.NoError(t, err)

	// Same external id under both tenants must coexist.
	require.NoError(t, store.UpsertProduct(ctx, tenantA.ID, domain.ProductUpsert{ID: 100, Title: "A's product"}))
	require.NoError(t, store.UpsertProduct(ctx, tenantB.ID, domain.ProductUpsert{ID: 100, Title: "B's product"}))

	overviewA, err := store.Overview(ctx, tenantA.ID)
	require.NoError(t, err)
	overviewB, err := store.Overview(ctx, tenantB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overviewA.Products)
	assert.Equal(t, int64(1), overviewB.Products)

	var productA domain.Product
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 100, tenantA.ID).First(&productA).Error)
	assert.Equal(t, "A's product", productA.Title)
}

func TestDeleteProductAbsentIsNoop(t *testing.T) {
	store := newTestStore(t)
	tenant := newTestTenant(t, store)

	assert.NoError(t, store.DeleteProduct(context.Background(), tenant.ID, 9999))
}

func TestUpsertCustomerSeedsCounterOnInsertOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	require.NoError(t, store.UpsertCustomer(ctx, tenant.ID, domain.CustomerUpsert{
		ID: 7, FirstName: "Ada", OrdersCount: int64Ptr(5),
	}))

	var customer domain.Customer
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 7, tenant.ID).First(&customer).Error)
	assert.Equal(t, int64(5), customer.OrderCount)

	// A later update with a stale counter must not clobber it.
	require.NoError(t, store.UpsertCustomer(ctx, tenant.ID, domain.CustomerUpsert{
		ID: 7, FirstName: "Ada", LastName: "Lovelace", OrdersCount: int64Ptr(0),
	}))

	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 7, tenant.ID).First(&customer).Error)
	assert.Equal(t, int64(5), customer.OrderCount, "update must not touch order_count")
	assert.Equal(t, "Lovelace", customer.LastName)
}

func TestCreateOrderIncrementsCustomerCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	order := domain.OrderCreate{
		ID:              1001,
		TotalPrice:      decimal.RequireFromString("49.90"),
		Currency:        "USD",
		FinancialStatus: "pending",
		Customer:        &domain.CustomerUpsert{ID: 7, FirstName: "Ada"},
	}
	created, err := store.CreateOrder(ctx, tenant.ID, order)
	require.NoError(t, err)
	assert.True(t, created)

	var customer domain.Customer
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 7, tenant.ID).First(&customer).Error)
	assert.Equal(t, int64(1), customer.OrderCount)

	// Second distinct order for the same customer.
	order.ID = 1002
	created, err = store.CreateOrder(ctx, tenant.ID, order)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 7, tenant.ID).First(&customer).Error)
	assert.Equal(t, int64(2), customer.OrderCount)
}

func TestCreateOrderDuplicateRefreshesWithoutIncrement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	order := domain.OrderCreate{
		ID:              1001,
		TotalPrice:      decimal.RequireFromString("49.90"),
		Currency:        "USD",
		FinancialStatus: "pending",
		Customer:        &domain.CustomerUpsert{ID: 7, FirstName: "Ada"},
		LineItems: []domain.LineItemUpsert{
			{ID: 1, ProductID: int64Ptr(100), Title: "Desk Lamp", Quantity: 2},
		},
	}
	created, err := store.CreateOrder(ctx, tenant.ID, order)
	require.NoError(t, err)
	require.True(t, created)

	// Redelivery of the same order with a newer financial status.
	order.FinancialStatus = "paid"
	order.TotalPrice = decimal.RequireFromString("49.90")
	created, err = store.CreateOrder(ctx, tenant.ID, order)
	require.NoError(t, err)
	assert.False(t, created)

	var stored domain.Order
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 1001, tenant.ID).First(&stored).Error)
	assert.Equal(t, "paid", stored.FinancialStatus)

	var customer domain.Customer
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 7, tenant.ID).First(&customer).Error)
	assert.Equal(t, int64(1), customer.OrderCount, "duplicate delivery must not double-count")

	var lines int64
	require.NoError(t, store.db.Model(&domain.LineItem{}).
		Where("order_id = ? AND tenant_id = ?", 1001, tenant.ID).Count(&lines).Error)
	assert.Equal(t, int64(1), lines, "duplicate delivery must not rewrite line items")
}

func TestCreateOrderStubsUnknownProducts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	order := domain.OrderCreate{
		ID:         1001,
		TotalPrice: decimal.RequireFromString("15.00"),
		Currency:   "USD",
		LineItems: []domain.LineItemUpsert{
			{ID: 1, ProductID: int64Ptr(200), Title: "Novel Tea", Vendor: "Brews", Quantity: 1},
			{ID: 2, ProductID: nil, Title: "Custom engraving", Quantity: 1},
		},
	}
	created, err := store.CreateOrder(ctx, tenant.ID, order)
	require.NoError(t, err)
	require.True(t, created)

	var product domain.Product
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 200, tenant.ID).First(&product).Error)
	assert.Equal(t, "Novel Tea", product.Title)
	assert.Equal(t, "Brews", product.Vendor)

	var lines int64
	require.NoError(t, store.db.Model(&domain.LineItem{}).
		Where("order_id = ? AND tenant_id = ?", 1001, tenant.ID).Count(&lines).Error)
	assert.Equal(t, int64(2), lines)
}

func TestCreateOrderIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	// Duplicate line-item ids violate the primary key mid-transaction; the
	// whole order, including the customer increment, must roll back.
	order := domain.OrderCreate{
		ID:         1001,
		TotalPrice: decimal.RequireFromString("10.00"),
		Customer:   &domain.CustomerUpsert{ID: 7, FirstName: "Ada"},
		LineItems: []domain.LineItemUpsert{
			{ID: 1, Title: "one", Quantity: 1},
			{ID: 1, Title: "dup", Quantity: 1},
		},
	}
	_, err := store.CreateOrder(ctx, tenant.ID, order)
	require.Error(t, err)

	var orders int64
	require.NoError(t, store.db.Model(&domain.Order{}).Where("tenant_id = ?", tenant.ID).Count(&orders).Error)
	assert.Equal(t, int64(0), orders)

	var customers int64
	require.NoError(t, store.db.Model(&domain.Customer{}).Where("tenant_id = ?", tenant.ID).Count(&customers).Error)
	assert.Equal(t, int64(0), customers, "customer upsert must roll back with the order")
}

func TestCreateOrderCompletesCheckout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: 555, Email: "ada@example.com"}))

	order := domain.OrderCreate{
		ID:                  1001,
		TotalPrice:          decimal.RequireFromString("20.00"),
		CompletesCheckoutID: int64Ptr(555),
	}
	created, err := store.CreateOrder(ctx, tenant.ID, order)
	require.NoError(t, err)
	require.True(t, created)

	stats, err := store.CheckoutStats(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(0), stats.Abandoned)

	// A late checkouts/update must not reopen the checkout.
	require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: 555, Email: ""}))
	stats, err = store.CheckoutStats(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Abandoned)
}

func TestOrderBeforeCustomerWebhookRace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	// orders/create arrives first: customer row is created with count 1.
	created, err := store.CreateOrder(ctx, tenant.ID, domain.OrderCreate{
		ID:         1001,
		TotalPrice: decimal.RequireFromString("5.00"),
		Customer:   &domain.CustomerUpsert{ID: 7},
	})
	require.NoError(t, err)
	require.True(t, created)

	// The delayed customers/create delivery fills in the profile but must
	// not reset the counter.
	require.NoError(t, store.UpsertCustomer(ctx, tenant.ID, domain.CustomerUpsert{
		ID: 7, FirstName: "Ada", Email: "ada@example.com", OrdersCount: int64Ptr(0),
	}))

	var customer domain.Customer
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 7, tenant.ID).First(&customer).Error)
	assert.Equal(t, "Ada", customer.FirstName)
	assert.Equal(t, int64(1), customer.OrderCount)
}

func TestUpsertCheckoutEmptyEmailKeepsStored(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: 555, Email: "ada@example.com"}))
	require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: 555, Email: ""}))

	var checkout domain.Checkout
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 555, tenant.ID).First(&checkout).Error)
	assert.Equal(t, "ada@example.com", checkout.Email)

	require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: 555, Email: "new@example.com"}))
	require.NoError(t, store.db.Where("id = ? AND tenant_id = ?", 555, tenant.ID).First(&checkout).Error)
	assert.Equal(t, "new@example.com", checkout.Email)
}

func TestPurgeTenantRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tenant := newTestTenant(t, store)
	other, err := store.UpsertTenant(ctx, "other.myshopify.com", "token-o")
	require.NoError(t, err)

	require.NoError(t, store.UpsertProduct(ctx, tenant.ID, domain.ProductUpsert{ID: 100, Title: "Lamp"}))
	require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: 555}))
	_, err = store.CreateOrder(ctx, tenant.ID, domain.OrderCreate{
		ID:         1001,
		TotalPrice: decimal.RequireFromString("5.00"),
		Customer:   &domain.CustomerUpsert{ID: 7},
		LineItems:  []domain.LineItemUpsert{{ID: 1, Title: "Lamp", Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, store.UpsertProduct(ctx, other.ID, domain.ProductUpsert{ID: 100, Title: "Other's lamp"}))

	require.NoError(t, store.PurgeTenant(ctx, tenant.ID))

	_, err = store.GetTenant(ctx, tenant.ID)
	assert.ErrorIs(t, err, domain.ErrUnknownTenant)

	for _, model := range []interface{}{
		&domain.Product{}, &domain.Customer{}, &domain.Order{}, &domain.LineItem{}, &domain.Checkout{},
	} {
		var count int64
		require.NoError(t, store.db.Model(model).Where("tenant_id = ?", tenant.ID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	}

	// The other tenant's data survives.
	overview, err := store.Overview(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.Products)
}

func TestPurgeTenantUnknown(t *testing.T) {
	store := newTestStore(t)

	err := store.PurgeTenant(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnknownTenant)
}

func TestOverviewSumsRevenue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	_, err := store.CreateOrder(ctx, tenant.ID, domain.OrderCreate{
		ID: 1001, TotalPrice: decimal.RequireFromString("10.50"),
	})
	require.NoError(t, err)
	_, err = store.CreateOrder(ctx, tenant.ID, domain.OrderCreate{
		ID: 1002, TotalPrice: decimal.RequireFromString("4.25"),
	})
	require.NoError(t, err)

	overview, err := store.Overview(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.Orders)
	assert.True(t, overview.Revenue.Equal(decimal.RequireFromString("14.75")),
		"got revenue %s", overview.Revenue)
}

func TestOverviewEmptyTenant(t *testing.T) {
	store := newTestStore(t)
	tenant := newTestTenant(t, store)

	overview, err := store.Overview(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), overview.Orders)
	assert.True(t, overview.Revenue.IsZero())
}

func TestCheckoutStatsAbandonmentRate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, store)

	for id := int64(1); id <= 4; id++ {
		require.NoError(t, store.UpsertCheckout(ctx, tenant.ID, domain.CheckoutUpsert{ID: id}))
	}
	_, err := store.CreateOrder(ctx, tenant.ID, domain.OrderCreate{
		ID: 1001, TotalPrice: decimal.RequireFromString("1.00"), CompletesCheckoutID: int64Ptr(2),
	})
	require.NoError(t, err)

	stats, err := store.CheckoutStats(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.Abandoned)
	assert.InDelta(t, 75.0, stats.AbandonmentRate, 0.001)
}
