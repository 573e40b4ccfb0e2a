package domain

import (
	"time"

	"github.com/google/uuid"
)

// Webhook topics this system subscribes to and understands. Anything else
// delivered by the platform is ignored.
const (
	TopicProductsCreate  = "products/create"
	TopicProductsUpdate  = "products/update"
	TopicProductsDelete  = "products/delete"
	TopicCustomersCreate = "customers/create"
	TopicCustomersUpdate = "customers/update"
	TopicOrdersCreate    = "orders/create"
	TopicCheckoutsCreate = "checkouts/create"
	TopicCheckoutsUpdate = "checkouts/update"
	TopicAppUninstalled  = "app/uninstalled"
)

// SubscriptionTopics is the fixed set registered for every tenant at
// onboarding.
var SubscriptionTopics = []string{
	TopicProductsCreate,
	TopicProductsUpdate,
	TopicProductsDelete,
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicOrdersCreate,
	TopicCheckoutsCreate,
	TopicCheckoutsUpdate,
	TopicAppUninstalled,
}

// WebhookEvent is one verified delivery from the platform. TenantID comes
// from the callback URL and is authoritative; ShopDomain is the
// X-Shopify-Shop-Domain header and is kept for logging only.
type WebhookEvent struct {
	DeliveryID string
	Topic      string
	TenantID   uuid.UUID
	ShopDomain string
	Payload    []byte
	ReceivedAt time.Time
}
