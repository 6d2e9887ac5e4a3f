package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/novamoderation/novamod/internal/config"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// AccountSnapshot is the cached view served by the account endpoint. It is a
// read-path convenience only; quota enforcement always hits the store.
type AccountSnapshot struct {
	AccountID        uint64        `json:"account_id"`
	Name             string        `json:"name"`
	Active           bool          `json:"active"`
	TokenBalance     int64         `json:"token_balance"`
	ModerationsTotal int64         `json:"moderations_total"`
	Keys             []KeySnapshot `json:"keys"`
	FetchedAt        time.Time     `json:"fetched_at"`
}

// KeySnapshot is the read-only key view inside an account snapshot. The key
// material itself is never echoed back.
type KeySnapshot struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SnapshotCache caches account snapshots in Redis with a bounded TTL.
// A nil cache is valid and disables caching entirely.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache builds a cache from the redis configuration. An empty
// address disables the cache.
func NewSnapshotCache(cfg config.RedisConfig) *SnapshotCache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &SnapshotCache{client: client, ttl: cfg.TTL()}
}

func snapshotKey(accountID uint64) string {
	return fmt.Sprintf("novamod:account:%d", accountID)
}

// Get returns the cached snapshot when present and fresh.
func (c *SnapshotCache) Get(ctx context.Context, accountID uint64) (*AccountSnapshot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, errGet := c.client.Get(ctx, snapshotKey(accountID)).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.WithError(errGet).Warn("account snapshot cache read failed")
		}
		return nil, false
	}
	var snapshot AccountSnapshot
	if errUnmarshal := json.Unmarshal(data, &snapshot); errUnmarshal != nil {
		log.WithError(errUnmarshal).Warn("account snapshot cache decode failed")
		return nil, false
	}
	return &snapshot, true
}

// Set stores a snapshot. Failures are logged and ignored.
func (c *SnapshotCache) Set(ctx context.Context, snapshot *AccountSnapshot) {
	if c == nil || c.client == nil || snapshot == nil {
		return
	}
	data, errMarshal := json.Marshal(snapshot)
	if errMarshal != nil {
		return
	}
	if errSet := c.client.Set(ctx, snapshotKey(snapshot.AccountID), data, c.ttl).Err(); errSet != nil {
		log.WithError(errSet).Warn("account snapshot cache write failed")
	}
}

// Invalidate drops the snapshot for an account, typically after a debit.
func (c *SnapshotCache) Invalidate(ctx context.Context, accountID uint64) {
	if c == nil || c.client == nil {
		return
	}
	if errDel := c.client.Del(ctx, snapshotKey(accountID)).Err(); errDel != nil {
		log.WithError(errDel).Warn("account snapshot cache invalidate failed")
	}
}
