// Package cache provides a Redis-backed, non-authoritative view of unit
// availability for display and search traffic.  The engine's transactions
// remain the single source of truth; every value here carries a short TTL
// and is dropped after any mutation of the unit it describes.  All methods
// are nil-safe so the service runs unchanged without Redis.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "availability:"

// Availability caches available-capacity snapshots per inventory unit.
type Availability struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAvailability returns a cache over the given client.  A nil client
// yields a cache whose operations are all no-ops.
func NewAvailability(rdb *redis.Client, ttl time.Duration) *Availability {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Availability{rdb: rdb, ttl: ttl}
}

// Get returns the cached capacity for the unit and whether an entry was
// present.  Redis errors count as a miss.
func (a *Availability) Get(ctx context.Context, unitID string) (int64, bool) {
	if a == nil || a.rdb == nil {
		return 0, false
	}
	v, err := a.rdb.Get(ctx, keyPrefix+unitID).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores a capacity snapshot with the configured TTL.  Failures are
// ignored; the next read falls through to the store.
func (a *Availability) Set(ctx context.Context, unitID string, capacity int64) {
	if a == nil || a.rdb == nil {
		return
	}
	_ = a.rdb.Set(ctx, keyPrefix+unitID, strconv.FormatInt(capacity, 10), a.ttl).Err()
}

// Invalidate drops the cached entries for the given units.  Called after
// any committed capacity mutation.
func (a *Availability) Invalidate(ctx context.Context, unitIDs ...string) {
	if a == nil || a.rdb == nil || len(unitIDs) == 0 {
		return
	}
	keys := make([]string, len(unitIDs))
	for i, id := range unitIDs {
		keys[i] = keyPrefix + id
	}
	_ = a.rdb.Del(ctx, keys...).Err()
}
