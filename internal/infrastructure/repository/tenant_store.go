package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/ports"
)

var compositeKey = []clause.Column{{Name: "id"}, {Name: "tenant_id"}}

// GormTenantStore implements ports.TenantStore using GORM.
type GormTenantStore struct {
	db *gorm.DB
}

// NewGormTenantStore creates a new GormTenantStore.
func NewGormTenantStore(db *gorm.DB) *GormTenantStore {
	return &GormTenantStore{db: db}
}

// Migrate creates or updates the schema for every entity table.
func (s *GormTenantStore) Migrate() error {
	return s.db.AutoMigrate(
		&domain.Tenant{},
		&domain.Product{},
		&domain.Customer{},
		&domain.Order{},
		&domain.LineItem{},
		&domain.Checkout{},
	)
}

// UpsertTenant creates a tenant for a newly installed store, or refreshes
// the access token when the store reinstalls.
func (s *GormTenantStore) UpsertTenant(ctx context.Context, storeURL, accessToken string) (*domain.Tenant, error) {
	tenant := domain.Tenant{ID: uuid.New(), StoreURL: storeURL, AccessToken: accessToken}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_url"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "updated_at"}),
	}).Create(&tenant).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tenant: %w", err)
	}

	// The generated id is discarded on conflict, so read the row back.
	var out domain.Tenant
	if err := s.db.WithContext(ctx).Where("store_url = ?", storeURL).First(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return &out, nil
}

func (s *GormTenantStore) GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownTenant
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}

func (s *GormTenantStore) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

// UpsertProduct is idempotent on (id, tenant_id): re-applying the same
// payload leaves the row unchanged. The stored created_at survives updates.
func (s *GormTenantStore) UpsertProduct(ctx context.Context, tenantID uuid.UUID, intent domain.ProductUpsert) error {
	product := domain.Product{
		ID:          intent.ID,
		TenantID:    tenantID,
		Title:       intent.Title,
		Vendor:      intent.Vendor,
		ProductType: intent.ProductType,
		CreatedAt:   intent.CreatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   compositeKey,
		DoUpdates: clause.AssignmentColumns([]string{"title", "vendor", "product_type"}),
	}).Create(&product).Error
	if err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", intent.ID, err)
	}
	return nil
}

// DeleteProduct removes a product; deleting an absent product succeeds.
func (s *GormTenantStore) DeleteProduct(ctx context.Context, tenantID uuid.UUID, productID int64) error {
	err := s.db.WithContext(ctx).
		Delete(&domain.Product{}, "id = ? AND tenant_id = ?", productID, tenantID).Error
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", productID, err)
	}
	return nil
}

// UpsertCustomer creates or refreshes a customer. The denormalized
// order_count is seeded from the intent on first insert only; updates never
// touch it, so a stale delivery cannot clobber the authoritative counter.
func (s *GormTenantStore) UpsertCustomer(ctx context.Context, tenantID uuid.UUID, intent domain.CustomerUpsert) error {
	var seed int64
	if intent.OrdersCount != nil {
		seed = *intent.OrdersCount
	}
	customer := domain.Customer{
		ID:         intent.ID,
		TenantID:   tenantID,
		FirstName:  intent.FirstName,
		LastName:   intent.LastName,
		Email:      intent.Email,
		Phone:      intent.Phone,
		OrderCount: seed,
		CreatedAt:  intent.CreatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   compositeKey,
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "email", "phone"}),
	}).Create(&customer).Error
	if err != nil {
		return fmt.Errorf("failed to upsert customer %d: %w", intent.ID, err)
	}
	return nil
}

// CreateOrder ingests one order atomically. The insert uses ON CONFLICT DO
// NOTHING on the composite key: a duplicate delivery only refreshes the
// order's financial status and total price, with no second order-count
// increment and no line-item rewrite. On a genuine insert the attached
// customer is upserted with an atomic +1, stub products are created for
// line items referencing unknown products, and the completing checkout is
// marked done — all in the same transaction.
func (s *GormTenantStore) CreateOrder(ctx context.Context, tenantID uuid.UUID, intent domain.OrderCreate) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order := domain.Order{
			ID:              intent.ID,
			TenantID:        tenantID,
			TotalPrice:      intent.TotalPrice,
			Currency:        intent.Currency,
			FinancialStatus: intent.FinancialStatus,
			CreatedAt:       intent.CreatedAt,
		}
		if intent.Customer != nil {
			order.CustomerID = &intent.Customer.ID
		}

		res := tx.Clauses(clause.OnConflict{
			Columns:   compositeKey,
			DoNothing: true,
		}).Create(&order)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.Model(&domain.Order{}).
				Where("id = ? AND tenant_id = ?", intent.ID, tenantID).
				Updates(map[string]interface{}{
					"financial_status": intent.FinancialStatus,
					"total_price":      intent.TotalPrice,
				}).Error
		}
		created = true

		if intent.Customer != nil {
			if err := upsertCustomerWithIncrement(tx, tenantID, *intent.Customer); err != nil {
				return err
			}
		}

		for _, item := range intent.LineItems {
			if item.ProductID != nil {
				stub := domain.Product{
					ID:        *item.ProductID,
					TenantID:  tenantID,
					Title:     item.Title,
					Vendor:    item.Vendor,
					CreatedAt: intent.CreatedAt,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   compositeKey,
					DoUpdates: clause.AssignmentColumns([]string{"title", "vendor"}),
				}).Create(&stub).Error; err != nil {
					return err
				}
			}

			line := domain.LineItem{
				ID:        item.ID,
				TenantID:  tenantID,
				OrderID:   intent.ID,
				ProductID: item.ProductID,
				Name:      item.Name,
				Title:     item.Title,
				Vendor:    item.Vendor,
				Quantity:  item.Quantity,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}

		if intent.CompletesCheckoutID != nil {
			if err := tx.Model(&domain.Checkout{}).
				Where("id = ? AND tenant_id = ?", *intent.CompletesCheckoutID, tenantID).
				Update("is_completed", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create order %d: %w", intent.ID, err)
	}
	return created, nil
}

// upsertCustomerWithIncrement runs inside the order-creation transaction. A
// brand-new customer row starts at order_count = 1; an existing row gets an
// atomic in-database +1, never an application-level read-modify-write.
func upsertCustomerWithIncrement(tx *gorm.DB, tenantID uuid.UUID, intent domain.CustomerUpsert) error {
	customer := domain.Customer{
		ID:         intent.ID,
		TenantID:   tenantID,
		FirstName:  intent.FirstName,
		LastName:   intent.LastName,
		Email:      intent.Email,
		Phone:      intent.Phone,
		OrderCount: 1,
		CreatedAt:  intent.CreatedAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: compositeKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"first_name":  intent.FirstName,
			"last_name":   intent.LastName,
			"email":       intent.Email,
			"phone":       intent.Phone,
			"order_count": gorm.Expr("customers.order_count + 1"),
		}),
	}).Create(&customer).Error
}

// UpsertCheckout creates or refreshes a checkout. An update with an empty
// email keeps the stored address, and is_completed is untouched on update
// so a late checkouts/update can never un-complete a checkout.
func (s *GormTenantStore) UpsertCheckout(ctx context.Context, tenantID uuid.UUID, intent domain.CheckoutUpsert) error {
	checkout := domain.Checkout{
		ID:        intent.ID,
		TenantID:  tenantID,
		Email:     intent.Email,
		CreatedAt: intent.CreatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: compositeKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"email": gorm.Expr("COALESCE(NULLIF(excluded.email, ''), checkouts.email)"),
		}),
	}).Create(&checkout).Error
	if err != nil {
		return fmt.Errorf("failed to upsert checkout %d: %w", intent.ID, err)
	}
	return nil
}

// PurgeTenant deletes everything the tenant owns in FK-safe order, then the
// tenant row itself, in a single transaction.
func (s *GormTenantStore) PurgeTenant(ctx context.Context, tenantID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&domain.LineItem{},
			&domain.Order{},
			&domain.Customer{},
			&domain.Product{},
			&domain.Checkout{},
		} {
			if err := tx.Where("tenant_id = ?", tenantID).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&domain.Tenant{}, "id = ?", tenantID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUnknownTenant
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTenant) {
			return domain.ErrUnknownTenant
		}
		return fmt.Errorf("failed to purge tenant %s: %w", tenantID, err)
	}
	return nil
}

func (s *GormTenantStore) Overview(ctx context.Context, tenantID uuid.UUID) (*domain.TenantOverview, error) {
	var overview domain.TenantOverview
	db := s.db.WithContext(ctx)

	if err := db.Model(&domain.Product{}).Where("tenant_id = ?", tenantID).Count(&overview.Products).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := db.Model(&domain.Customer{}).Where("tenant_id = ?", tenantID).Count(&overview.Customers).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if err := db.Model(&domain.Order{}).Where("tenant_id = ?", tenantID).Count(&overview.Orders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var revenue decimal.NullDecimal
	if err := db.Model(&domain.Order{}).
		Where("tenant_id = ?", tenantID).
		Select("SUM(total_price)").
		Scan(&revenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if revenue.Valid {
		overview.Revenue = revenue.Decimal
	} else {
		overview.Revenue = decimal.Zero
	}
	return &overview, nil
}

func (s *GormTenantStore) CheckoutStats(ctx context.Context, tenantID uuid.UUID) (*domain.CheckoutStats, error) {
	var stats domain.CheckoutStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&domain.Checkout{}).Where("tenant_id = ?", tenantID).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count checkouts: %w", err)
	}
	if err := db.Model(&domain.Checkout{}).
		Where("tenant_id = ? AND is_completed = ?", tenantID, false).
		Count(&stats.Abandoned).Error; err != nil {
		return nil, fmt.Errorf("failed to count abandoned checkouts: %w", err)
	}
	if stats.Total > 0 {
		stats.AbandonmentRate = float64(stats.Abandoned) / float64(stats.Total) * 100
	}
	return &stats, nil
}

// Ensure GormTenantStore implements TenantStore
var _ ports.TenantStore = (*GormTenantStore)(nil)
