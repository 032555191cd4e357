// internal/cache/count_cache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/nanis-backend/internal/metrics"
	"github.com/unclebandit/nanis-backend/internal/model"
)

// CountCache keeps audience totals in Redis for a short TTL so paging through
// a large audience does not recount on every request.
type CountCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCountCache(client *redis.Client, prefix string, ttl time.Duration) *CountCache {
	return &CountCache{client: client, prefix: prefix, ttl: ttl}
}

// GetCount reports a cached total for the filter, ignoring its page and limit.
func (c *CountCache) GetCount(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter) (int, bool, error) {
	val, err := c.client.Get(ctx, c.Key(orgID, f)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.AudienceCountCache.WithLabelValues("miss").Inc()
		return 0, false, nil
	}
	if err != nil {
		metrics.AudienceCountCache.WithLabelValues("error").Inc()
		return 0, false, err
	}
	total, err := strconv.Atoi(val)
	if err != nil {
		metrics.AudienceCountCache.WithLabelValues("error").Inc()
		return 0, false, err
	}
	metrics.AudienceCountCache.WithLabelValues("hit").Inc()
	return total, true, nil
}

func (c *CountCache) SetCount(ctx context.Context, orgID uuid.UUID, f model.AudienceFilter, total int) error {
	return c.client.Set(ctx, c.Key(orgID, f), total, c.ttl).Err()
}

// Key is prefix + "audience_count:" + org + ":" + a hash of the criteria.
// Page, limit and the custom fields flag do not change the total and are left out.
func (c *CountCache) Key(orgID uuid.UUID, f model.AudienceFilter) string {
	f.Page = 0
	f.Limit = 0
	f.IncludeCustomFields = false
	raw, _ := json.Marshal(f)
	sum := sha256.Sum256(raw)
	return c.prefix + "audience_count:" + orgID.String() + ":" + hex.EncodeToString(sum[:16])
}
