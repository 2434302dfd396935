package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/pkg/config"
	"github.com/TNZtims/bazaar-pos-sub000/prometheus"

	"github.com/redis/go-redis/v9"
)

// InventoryEvent is published whenever a stock ledger primitive succeeds, so
// POS terminals and public shop sessions can refresh without polling.
type InventoryEvent struct {
	ProductID         uint      `json:"product_id"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	Timestamp         time.Time `json:"timestamp"`
}

// Broadcaster publishes inventory events to a store-scoped channel.
// Delivery is fire-and-forget: callers log publish errors but never fail the
// primary operation on them.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, event InventoryEvent) error
}

// StoreChannel returns the broadcast channel name for a store
func StoreChannel(storeID uint) string {
	return fmt.Sprintf("store:%d:inventory", storeID)
}

// RedisBroadcaster publishes events over redis pub/sub
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster connects a redis client and verifies the connection
func NewRedisBroadcaster(cfg *config.RedisConfig) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBroadcaster{client: client}, nil
}

// Publish sends the event as JSON on the given channel
func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, event InventoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		prometheus.BroadcastFailuresCounter.Inc()
		return err
	}
	return nil
}

// Close releases the underlying redis connection
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}

// NopBroadcaster discards every event. Used when redis is disabled.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(ctx context.Context, channel string, event InventoryEvent) error {
	return nil
}
