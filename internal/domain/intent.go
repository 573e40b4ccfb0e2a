package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intents are normalized descriptions of single entity mutations,
// independent of whether they originated from a webhook delivery or a bulk
// fetch page. The reconciliation engine only ever sees intents.

// ProductUpsert creates or refreshes a product. The create and update
// webhook topics both map here; the distinction carries no semantics.
type ProductUpsert struct {
	ID          int64
	Title       string
	Vendor      string
	ProductType string
	CreatedAt   time.Time
}

// CustomerUpsert creates or refreshes a customer. OrdersCount seeds the
// denormalized counter on first insert only; when nil the counter starts at
// zero. Updates never touch the counter.
type CustomerUpsert struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	OrdersCount *int64
	CreatedAt   time.Time
}

// OrderCreate ingests an order with its line items in one transaction.
// Customer, when present, is upserted with an order-count increment as part
// of that transaction; CompletesCheckoutID marks the referenced checkout
// completed.
type OrderCreate struct {
	ID                  int64
	TotalPrice          decimal.Decimal
	Currency            string
	FinancialStatus     string
	CreatedAt           time.Time
	Customer            *CustomerUpsert
	LineItems           []LineItemUpsert
	CompletesCheckoutID *int64
}

// LineItemUpsert is one order line. ProductID may reference a product the
// store has never seen; the engine creates a stub product from the line's
// title and vendor.
type LineItemUpsert struct {
	ID        int64
	ProductID *int64
	Name      string
	Title     string
	Vendor    string
	Quantity  int
}

// CheckoutUpsert creates or refreshes a checkout. An empty Email never
// clears a previously stored address.
type CheckoutUpsert struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}
