package ports

import (
	"context"

	"storepulse-ingestion-layer/internal/domain"
)

// StorefrontGateway talks to the external platform's Admin REST API with a
// tenant's access token. Fetch methods walk every page, invoking the
// callback once per page, until the upstream signals no further pages; any
// page failure surfaces as *domain.UpstreamFetchError and stops that
// resource's iteration.
type StorefrontGateway interface {
	FetchProducts(ctx context.Context, storeURL, accessToken string, fn func([]domain.ProductPayload) error) error
	FetchCustomers(ctx context.Context, storeURL, accessToken string, fn func([]domain.CustomerPayload) error) error
	FetchOrders(ctx context.Context, storeURL, accessToken string, fn func([]domain.OrderPayload) error) error

	// CreateWebhook registers one topic subscription pointed at address.
	CreateWebhook(ctx context.Context, storeURL, accessToken, topic, address string) error
}

// TokenExchanger completes the OAuth handshake, trading an authorization
// code for a permanent access token.
type TokenExchanger interface {
	ExchangeToken(ctx context.Context, shop, code string) (string, error)
}

// SessionStore holds in-flight OAuth sessions keyed by state.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, state string) (*domain.Session, error)
	DeleteSession(ctx context.Context, state string) error
}

// WebhookLog records every verified delivery for operational visibility.
// Logging failures never block ingestion.
type WebhookLog interface {
	LogDelivery(ctx context.Context, event *domain.WebhookEvent) error
}

// DeliveryCache deduplicates webhook deliveries by the platform's delivery
// id. MarkDelivery reports whether the id was seen for the first time; on
// cache failure callers fall back to processing anyway, since idempotent
// upserts make duplicates safe.
type DeliveryCache interface {
	MarkDelivery(ctx context.Context, deliveryID string) (first bool, err error)
}
