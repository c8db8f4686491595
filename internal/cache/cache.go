package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/esyasil/clearroom/pkg/models"
)

// Cache provides read-through caching for account profiles and admin stats
// using Redis. The ledger invalidates entries on every write path so stale
// balances never gate a batch.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks Redis connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func accountKey(userID string) string {
	return fmt.Sprintf("account:%s", userID)
}

const statsKey = "admin:stats"

// SetAccount caches an account profile
func (c *Cache) SetAccount(ctx context.Context, account *models.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	return c.client.Set(ctx, accountKey(account.ID), data, c.ttl).Err()
}

// GetAccount retrieves an account profile from cache; nil on miss
func (c *Cache) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	data, err := c.client.Get(ctx, accountKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get account from cache: %w", err)
	}

	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

// InvalidateAccount removes an account profile from cache
func (c *Cache) InvalidateAccount(ctx context.Context, userID string) error {
	return c.client.Del(ctx, accountKey(userID)).Err()
}

// SetAdminStats caches aggregate usage stats
func (c *Cache) SetAdminStats(ctx context.Context, stats *models.AdminStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	return c.client.Set(ctx, statsKey, data, c.ttl).Err()
}

// GetAdminStats retrieves cached stats; nil on miss
func (c *Cache) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	data, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get stats from cache: %w", err)
	}

	var stats models.AdminStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	return &stats, nil
}
