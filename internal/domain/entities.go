package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is one connected Shopify store. Every other entity hangs off a
// tenant and is deleted with it.
type Tenant struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	StoreURL    string    `json:"store_url" gorm:"uniqueIndex;not null"`
	AccessToken string    `json:"-" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a storefront product. The primary key is composite on the
// external Shopify id and the tenant, so the same external id space can
// appear under multiple tenants without colliding.
type Product struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;primaryKey"`
	Title       string    `json:"title"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Customer is a storefront customer. OrderCount is a denormalized counter
// maintained transactionally by the order-creation path; it is never
// recomputed from the orders table and never overwritten by update intents.
type Customer struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID   uuid.UUID `json:"tenant_id" gorm:"type:uuid;primaryKey"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	OrderCount int64     `json:"order_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
}

// Order is a storefront order. CustomerID is a weak reference: it may point
// at a customer row that arrives later, or at no row at all.
type Order struct {
	ID              int64           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID        uuid.UUID       `json:"tenant_id" gorm:"type:uuid;primaryKey"`
	TotalPrice      decimal.Decimal `json:"total_price" gorm:"type:numeric(14,2)"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financial_status"`
	CustomerID      *int64          `json:"customer_id" gorm:"index"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LineItem is owned by exactly one Order and deleted with it. ProductID is a
// weak reference to the product the line was sold from.
type LineItem struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;primaryKey"`
	OrderID   int64     `json:"order_id" gorm:"index;not null"`
	ProductID *int64    `json:"product_id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Vendor    string    `json:"vendor"`
	Quantity  int       `json:"quantity"`
}

// Checkout tracks an in-progress checkout. IsCompleted flips to true exactly
// once, as a side effect of creating the order that references it, and never
// transitions back.
type Checkout struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;primaryKey"`
	Email       string    `json:"email"`
	IsCompleted bool      `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// TenantOverview is the denormalized aggregate the dashboard reads.
type TenantOverview struct {
	Products  int64           `json:"products"`
	Customers int64           `json:"customers"`
	Orders    int64           `json:"orders"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CheckoutStats summarizes checkout abandonment for one tenant.
type CheckoutStats struct {
	Total           int64   `json:"total_checkouts"`
	Abandoned       int64   `json:"abandoned_checkouts"`
	AbandonmentRate float64 `json:"abandonment_rate"`
}
