package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/ports"
)

// webhookDeliveryDoc is the stored form of one verified webhook delivery.
// The raw payload is kept so a delivery can be inspected or replayed by an
// operator after the fact.
type webhookDeliveryDoc struct {
	DeliveryID string    `bson:"delivery_id"`
	Topic      string    `bson:"topic"`
	TenantID   string    `bson:"tenant_id"`
	ShopDomain string    `bson:"shop_domain"`
	Payload    bson.Raw  `bson:"payload,omitempty"`
	ReceivedAt time.Time `bson:"received_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

// WebhookLogRepository records every verified webhook delivery in MongoDB
// for operational visibility. A logging failure never blocks ingestion.
type WebhookLogRepository struct {
	collection *mongo.Collection
}

// NewWebhookLogRepository creates a new webhook log repository.
func NewWebhookLogRepository(db *mongo.Database) *WebhookLogRepository {
	return &WebhookLogRepository{
		collection: db.Collection("webhook_deliveries"),
	}
}

func (r *WebhookLogRepository) LogDelivery(ctx context.Context, event *domain.WebhookEvent) error {
	doc := webhookDeliveryDoc{
		DeliveryID: event.DeliveryID,
		Topic:      event.Topic,
		TenantID:   event.TenantID.String(),
		ShopDomain: event.ShopDomain,
		ReceivedAt: event.ReceivedAt,
		CreatedAt:  time.Now(),
	}
	// Payloads are JSON documents; store them as BSON when they parse,
	// otherwise drop the body and keep the envelope.
	if len(event.Payload) > 0 {
		var raw bson.Raw
		if err := bson.UnmarshalExtJSON(event.Payload, true, &raw); err == nil {
			doc.Payload = raw
		}
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook delivery: %w", err)
	}
	return nil
}

var _ ports.WebhookLog = (*WebhookLogRepository)(nil)
