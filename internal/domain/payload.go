package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Shopify resource payloads as delivered by webhooks and by the Admin REST
// API. Both ingestion paths decode into these types and convert through the
// same Intent constructors, so they cannot drift apart in how they read a
// record. Money fields decode strictly: a non-numeric total_price fails the
// whole payload instead of propagating garbage into the store.

// ProductPayload is the products/* webhook body and the bulk products.json
// element.
type ProductPayload struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// CustomerPayload is the customers/* webhook body and the bulk
// customers.json element.
type CustomerPayload struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	OrdersCount *int64    `json:"orders_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// LineItemPayload is one element of an order's line_items.
type LineItemPayload struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Vendor    string `json:"vendor"`
	Quantity  int    `json:"quantity"`
}

// OrderPayload is the orders/create webhook body and the bulk orders.json
// element.
type OrderPayload struct {
	ID              int64             `json:"id"`
	TotalPrice      decimal.Decimal   `json:"total_price"`
	Currency        string            `json:"currency"`
	FinancialStatus string            `json:"financial_status"`
	CheckoutID      *int64            `json:"checkout_id"`
	Customer        *CustomerPayload  `json:"customer"`
	LineItems       []LineItemPayload `json:"line_items"`
	CreatedAt       time.Time         `json:"created_at"`
}

// CheckoutPayload is the checkouts/* webhook body.
type CheckoutPayload struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// DecodePayload decodes a raw webhook or API body into one of the payload
// types. Any decode failure, including a malformed money or timestamp
// field, is reported as ErrMalformedPayload.
func DecodePayload(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// Intent converts the payload into its mutation intent.
func (p *ProductPayload) Intent() (ProductUpsert, error) {
	if p.ID == 0 {
		return ProductUpsert{}, fmt.Errorf("%w: product payload missing id", ErrMalformedPayload)
	}
	return ProductUpsert{
		ID:          p.ID,
		Title:       p.Title,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		CreatedAt:   p.CreatedAt,
	}, nil
}

// Intent converts the payload into its mutation intent.
func (c *CustomerPayload) Intent() (CustomerUpsert, error) {
	if c.ID == 0 {
		return CustomerUpsert{}, fmt.Errorf("%w: customer payload missing id", ErrMalformedPayload)
	}
	return CustomerUpsert{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		OrdersCount: c.OrdersCount,
		CreatedAt:   c.CreatedAt,
	}, nil
}

// Intent converts the payload into its mutation intent. The embedded
// customer and line items are converted through their own constructors so
// webhook and bulk ingestion read them identically.
func (o *OrderPayload) Intent() (OrderCreate, error) {
	if o.ID == 0 {
		return OrderCreate{}, fmt.Errorf("%w: order payload missing id", ErrMalformedPayload)
	}
	intent := OrderCreate{
		ID:                  o.ID,
		TotalPrice:          o.TotalPrice,
		Currency:            o.Currency,
		FinancialStatus:     o.FinancialStatus,
		CreatedAt:           o.CreatedAt,
		CompletesCheckoutID: o.CheckoutID,
	}
	if o.Customer != nil {
		customer, err := o.Customer.Intent()
		if err != nil {
			return OrderCreate{}, err
		}
		intent.Customer = &customer
	}
	for _, item := range o.LineItems {
		if item.ID == 0 {
			return OrderCreate{}, fmt.Errorf("%w: line item missing id on order %d", ErrMalformedPayload, o.ID)
		}
		intent.LineItems = append(intent.LineItems, LineItemUpsert{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Title:     item.Title,
			Vendor:    item.Vendor,
			Quantity:  item.Quantity,
		})
	}
	return intent, nil
}

// Intent converts the payload into its mutation intent.
func (c *CheckoutPayload) Intent() (CheckoutUpsert, error) {
	if c.ID == 0 {
		return CheckoutUpsert{}, fmt.Errorf("%w: checkout payload missing id", ErrMalformedPayload)
	}
	return CheckoutUpsert{
		ID:        c.ID,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}, nil
}
