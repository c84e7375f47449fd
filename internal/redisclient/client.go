package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-delivery/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_location.lua
var setLocationScript string

// RelayChannelPrefix prefixes every pub/sub channel carrying relay traffic
const RelayChannelPrefix = "relay:"

const locationTTL = 10 * time.Minute

type Client struct {
	rdb            *redis.Client
	locationScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(rdb), nil
}

// New wraps an existing redis client
func New(rdb *redis.Client) *Client {
	return &Client{
		rdb:            rdb,
		locationScript: redis.NewScript(setLocationScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func locationKey(riderID int64) string {
	return fmt.Sprintf("rider:location:%d", riderID)
}

// CacheRiderLocation stores the sample as the rider's latest position unless
// a newer one is already cached. Returns true if the cache was updated.
func (c *Client) CacheRiderLocation(ctx context.Context, loc *models.RiderLocation) (bool, error) {
	data, err := json.Marshal(loc)
	if err != nil {
		return false, err
	}

	result, err := c.locationScript.Run(ctx, c.rdb,
		[]string{locationKey(loc.RiderID)},
		loc.Timestamp.UnixMilli(), data, int(locationTTL.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("set location script failed: %w", err)
	}

	stored, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return stored == 1, nil
}

// GetRiderLocation returns the cached latest position, nil if none
func (c *Client) GetRiderLocation(ctx context.Context, riderID int64) (*models.RiderLocation, error) {
	data, err := c.rdb.HGet(ctx, locationKey(riderID), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var loc models.RiderLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("failed to decode cached location: %w", err)
	}
	return &loc, nil
}

// ClaimIdempotencyKey records key if absent. Returns false when it was
// already claimed.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), "1", ttl).Result()
}

// ReleaseIdempotencyKey forgets key so it can be claimed again
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s", key)).Err()
}

// PublishRelay publishes an encoded relay message for other instances
func (c *Client) PublishRelay(ctx context.Context, topic string, payload []byte) error {
	return c.rdb.Publish(ctx, RelayChannelPrefix+topic, payload).Err()
}

// SubscribeRelay subscribes to every relay channel
func (c *Client) SubscribeRelay(ctx context.Context) *redis.PubSub {
	return c.rdb.PSubscribe(ctx, RelayChannelPrefix+"*")
}
