package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a concurrent calculation did not finish in time
var ErrLockTimeout = errors.New("timeout waiting for lock")

// ResultCache stores calculation results keyed by a hash of their inputs
type ResultCache struct {
	client   redis.UniversalClient
	ttl      time.Duration
	mutexTTL time.Duration
	poll     time.Duration
}

// NewResultCache wraps a Redis client. ttl bounds how long a result lives,
// mutexTTL how long a calculation may hold its lock.
func NewResultCache(client redis.UniversalClient, ttl, mutexTTL time.Duration) *ResultCache {
	return &ResultCache{
		client:   client,
		ttl:      ttl,
		mutexTTL: mutexTTL,
		poll:     100 * time.Millisecond,
	}
}

type cacheInput struct {
	Lines    []models.BusLineData `json:"lines"`
	Params   models.GlobalParams  `json:"params"`
	Calendar models.CalendarData  `json:"calendar"`
	Strict   bool                 `json:"strict"`
}

// InputKey derives a deterministic key from the calculation inputs.
// encoding/json sorts map keys, so equal inputs hash equally.
func InputKey(lines []models.BusLineData, params models.GlobalParams, calendar models.CalendarData, strict bool) (string, error) {
	data, err := json.Marshal(cacheInput{Lines: lines, Params: params, Calendar: calendar, Strict: strict})
	if err != nil {
		return "", fmt.Errorf("failed to encode cache input: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("fleet:result:%x", hash[:16]), nil
}

// LockKey generates the mutex key guarding a result key
func LockKey(resultKey string) string {
	return fmt.Sprintf("lock:%s", resultKey)
}

// Get returns a cached result, or nil on a miss
func (c *ResultCache) Get(ctx context.Context, key string) (*models.CalculatedData, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.CalculatedData
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	return &result, nil
}

// Set caches a result for the configured TTL
func (c *ResultCache) Set(ctx context.Context, key string, result *models.CalculatedData) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// AcquireLock tries to take the calculation lock for a result key.
// Returns true if the lock was acquired, false if already held.
func (c *ResultCache) AcquireLock(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, LockKey(key), "1", c.mutexTTL).Result()
}

// ReleaseLock releases the calculation lock for a result key
func (c *ResultCache) ReleaseLock(ctx context.Context, key string) error {
	return c.client.Del(ctx, LockKey(key)).Err()
}

// WaitForResult polls until the lock holder has released the lock and
// returns whatever it cached. A nil result means the holder failed.
func (c *ResultCache) WaitForResult(ctx context.Context, key string, maxWait time.Duration) (*models.CalculatedData, error) {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		exists, err := c.client.Exists(ctx, LockKey(key)).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		if exists == 0 {
			return c.Get(ctx, key)
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}
