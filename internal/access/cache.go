// Package access resolves session-scoped capability sets: it fetches
// tenant overrides, runs the policy engine, caches the result in Redis and
// serves decision queries and gating middleware from the cached set.
package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/policy"
)

// InvalidationChannel carries "tenant:role" messages published on every
// cache bump so sibling processes drop their in-flight snapshots.
const InvalidationChannel = "acl.bump"

// Cache wraps Redis based capability-set caching with per (tenant, role)
// versioning. A nil client degrades to pass-through resolution.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(tenantID uuid.UUID, role policy.RoleID) string {
	return fmt.Sprintf("acl:ver:%s:%s", tenantID, role)
}

// Version returns the current cache version for the pair, initialising
// when missing.
func (c *Cache) Version(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(tenantID, role)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the snapshot cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) (string, error) {
	ver, err := c.Version(ctx, tenantID, role)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("acl:set:%s:%s:%d", tenantID, role, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Loader
// results are stored with the configured TTL.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("access: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cached set for one (tenant, role) by incrementing
// its version and publishing an invalidation event.
func (c *Cache) Bump(ctx context.Context, tenantID uuid.UUID, role policy.RoleID) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(tenantID, role)).Result()
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%s:%s:%s", tenantID, role, strconv.FormatInt(ver, 10))
	return c.client.Publish(ctx, InvalidationChannel, msg).Err()
}
