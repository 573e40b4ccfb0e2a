package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storepulse-ingestion-layer/internal/ports"
)

// deliveryTTL bounds how long a delivery id is remembered. The platform
// stops redelivering well inside this window.
const deliveryTTL = 48 * time.Hour

// RedisDeliveryCache deduplicates webhook deliveries with SET NX on the
// platform's delivery id.
type RedisDeliveryCache struct {
	client *redis.Client
}

// NewRedisDeliveryCache creates a new delivery cache.
func NewRedisDeliveryCache(client *redis.Client) *RedisDeliveryCache {
	return &RedisDeliveryCache{client: client}
}

// MarkDelivery records the delivery id and reports whether this is the
// first time it was seen.
func (c *RedisDeliveryCache) MarkDelivery(ctx context.Context, deliveryID string) (bool, error) {
	first, err := c.client.SetNX(ctx, "webhook:delivery:"+deliveryID, 1, deliveryTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery %s: %w", deliveryID, err)
	}
	return first, nil
}

var _ ports.DeliveryCache = (*RedisDeliveryCache)(nil)
