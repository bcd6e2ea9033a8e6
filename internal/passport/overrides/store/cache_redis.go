package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"securitypassport/internal/passport/overrides"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/circuit"
	"securitypassport/pkg/requestcontext"
)

const cacheKeyPrefix = "passport:overrides:"

// RedisCache is a read-through cache in front of another override store.
// Entries are keyed by a per-tenant generation that every Update bumps, so
// a reader that loaded settings before an update can only fill the previous
// generation's key, which is never read again. Redis failures degrade to
// reading the underlying store, and repeated failures open a breaker so
// reads stop waiting on Redis until a probe succeeds.
type RedisCache struct {
	next    overrides.Store
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
}

type CacheOption func(*RedisCache)

// WithBreaker replaces the default breaker.
func WithBreaker(b *circuit.Breaker) CacheOption {
	return func(c *RedisCache) {
		c.breaker = b
	}
}

func NewRedisCache(next overrides.Store, client redis.Cmdable, ttl time.Duration, logger *slog.Logger, opts ...CacheOption) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &RedisCache{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		breaker: circuit.New("override-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generationKey has no expiry; it is one small counter per tenant.
func generationKey(tenantID id.TenantID) string {
	return cacheKeyPrefix + tenantID.String() + ":gen"
}

func cacheKey(tenantID id.TenantID, generation string) string {
	return cacheKeyPrefix + tenantID.String() + ":" + generation
}

func (c *RedisCache) Get(ctx context.Context, tenantID id.TenantID) (overrides.Settings, error) {
	if !c.breaker.Allow() {
		return c.next.Get(ctx, tenantID)
	}

	generation, err := c.client.Get(ctx, generationKey(tenantID)).Result()
	if errors.Is(err, redis.Nil) {
		generation, err = "0", nil
	}
	if err != nil {
		return c.fallback(ctx, tenantID, err)
	}

	key := cacheKey(tenantID, generation)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.record(ctx, nil)
		var settings overrides.Settings
		if jsonErr := json.Unmarshal(raw, &settings); jsonErr == nil && settings != nil {
			return settings, nil
		}
	case errors.Is(err, redis.Nil):
		c.record(ctx, nil)
	default:
		return c.fallback(ctx, tenantID, err)
	}

	settings, err := c.next.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(settings); err == nil {
		setErr := c.client.Set(ctx, key, encoded, c.ttl).Err()
		if setErr != nil {
			c.logger.WarnContext(ctx, "override cache write failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", setErr,
			)
		}
		c.record(ctx, setErr)
	}
	return settings, nil
}

func (c *RedisCache) fallback(ctx context.Context, tenantID id.TenantID, err error) (overrides.Settings, error) {
	c.logger.WarnContext(ctx, "override cache read failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	c.record(ctx, err)
	return c.next.Get(ctx, tenantID)
}

// Update writes through and then moves the tenant to a new generation.
func (c *RedisCache) Update(ctx context.Context, tenantID id.TenantID, fn func(overrides.Settings) overrides.Settings) (overrides.Settings, error) {
	stored, err := c.next.Update(ctx, tenantID, fn)
	if incrErr := c.client.Incr(ctx, generationKey(tenantID)).Err(); incrErr != nil {
		c.logger.ErrorContext(ctx, "override cache invalidation failed",
			"request_id", requestcontext.RequestID(ctx),
			"tenant_id", tenantID.String(),
			"error", incrErr,
		)
		c.record(ctx, incrErr)
	} else {
		c.record(ctx, nil)
	}
	return stored, err
}

func (c *RedisCache) record(ctx context.Context, err error) {
	if err == nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "override cache recovered", "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "override cache disabled after repeated failures", "breaker", c.breaker.Name())
	}
}
