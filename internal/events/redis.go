package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auction-engine/utils"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts events over Redis pub/sub, one channel per
// auction. Redis preserves publish order per connection, which matches the
// engine publishing synchronously in commit order.
type RedisPublisher struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisClient connects and pings a Redis server.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// NewRedisPublisher wraps an established client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, timeout: 2 * time.Second}
}

// ChannelFor returns the pub/sub channel name for an auction.
func ChannelFor(auctionID string) string {
	return fmt.Sprintf("auction:%s", auctionID)
}

// Publish marshals and publishes the event. Delivery failures are logged,
// not surfaced: notification fan-out is downstream of a committed bid and
// must never fail the submission.
func (p *RedisPublisher) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		utils.Error("failed to marshal event", map[string]any{
			"auction_id": ev.AuctionID,
			"type":       string(ev.Type),
			"error":      err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, ChannelFor(ev.AuctionID), payload).Err(); err != nil {
		utils.Error("failed to publish event to redis", map[string]any{
			"auction_id": ev.AuctionID,
			"type":       string(ev.Type),
			"error":      err.Error(),
		})
	}
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
