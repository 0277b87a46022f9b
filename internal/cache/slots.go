package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"slotwise/backend/internal/domain"
)

// SlotCache memoizes slot-query results in Redis. Each provider-day carries
// a version counter that every commit-time mutation bumps. The version is
// part of the value key and is captured at Get time and handed back to Set,
// so invalidation is a single INCR and a reader that raced a mutation
// writes its stale result under the superseded version, never the current
// one.
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *SlotCache {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SlotCache{rdb: rdb, ttl: ttl, log: log.With(slog.String("component", "cache.slots"))}
}

// Get returns the cached slots and the provider-day version it read. The
// version is reported on a miss too; callers pass it back to Set. A
// negative version means the version key itself was unreadable and the
// result must not be written back.
func (c *SlotCache) Get(ctx context.Context, providerID, date, serviceID string, duration, granularity time.Duration) ([]domain.Slot, int64, bool) {
	ver, err := c.version(ctx, providerID, date)
	if err != nil {
		c.logMiss("version read failed", err)
		return nil, -1, false
	}

	raw, err := c.rdb.Get(ctx, c.valueKey(providerID, date, serviceID, duration, granularity, ver)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logMiss("value read failed", err)
		}
		return nil, ver, false
	}

	var slots []domain.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logMiss("value decode failed", err)
		return nil, ver, false
	}
	return slots, ver, true
}

// Set stores slots under the version observed by the preceding Get. If an
// invalidation bumped the version in between, the entry lands under the old
// version key and ages out unread.
func (c *SlotCache) Set(ctx context.Context, providerID, date, serviceID string, duration, granularity time.Duration, version int64, slots []domain.Slot) {
	if version < 0 {
		return
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.valueKey(providerID, date, serviceID, duration, granularity, version), raw, c.ttl).Err(); err != nil {
		c.log.Warn("slot cache write failed", slog.Any("err", err))
	}
}

// Invalidate bumps the provider-day version. Old entries age out via TTL.
func (c *SlotCache) Invalidate(ctx context.Context, providerID, date string) {
	key := c.versionKey(providerID, date)
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		c.log.Warn("slot cache invalidate failed", slog.Any("err", err), slog.String("provider_id", providerID))
		return
	}
	_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
}

func (c *SlotCache) version(ctx context.Context, providerID, date string) (int64, error) {
	v, err := c.rdb.Get(ctx, c.versionKey(providerID, date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *SlotCache) versionKey(providerID, date string) string {
	return fmt.Sprintf("slots:ver:%s:%s", providerID, date)
}

func (c *SlotCache) valueKey(providerID, date, serviceID string, duration, granularity time.Duration, ver int64) string {
	return fmt.Sprintf("slots:%s:%s:%d:%s:%d:%d", providerID, date, ver, serviceID, int(duration.Minutes()), int(granularity.Minutes()))
}

func (c *SlotCache) logMiss(msg string, err error) {
	c.log.Debug("slot cache miss: "+msg, slog.Any("err", err))
}
