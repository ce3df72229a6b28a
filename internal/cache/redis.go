// Package cache provides Redis caching utilities for the application.
//
// Every helper tolerates a nil *Cache or a nil client so the service runs
// unchanged without Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"minitweet/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix = "profile:%d"
)

// DefaultProfileTTL applies when no TTL is configured.
const DefaultProfileTTL = 5 * time.Minute

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect dials Redis at addr, which is either host:port or a redis:// URL.
// It returns nil when addr is empty or the server cannot be reached.
func Connect(addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("Redis connection warning: invalid REDIS_URL %q: %v (continuing without cache)", addr, err)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection warning: %v (continuing without cache)", err)
		_ = client.Close()
		return nil
	}
	log.Println("Redis connected successfully")
	return client
}

// Cache wraps a Redis client with JSON cache-aside helpers.
//
// Keys are prefixed with a namespace. The stores live only as long as the
// process, so each server generation gets its own namespace and never reads
// entries written by an earlier one.
type Cache struct {
	client    *redis.Client
	namespace string
}

// New returns a Cache over client. client may be nil.
func New(client *redis.Client, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

// Client returns the underlying client, or nil.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c.Client() != nil
}

// GetJSON loads key into dest. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from Redis when present. On a miss, or when Redis fails,
// fetch populates dest and the result is written back best-effort.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		observability.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		observability.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate removes key.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c.Enabled() {
		c.client.Del(ctx, key)
	}
}

// InvalidateProfile drops the cached profile of userID.
func (c *Cache) InvalidateProfile(ctx context.Context, userID uint) {
	c.Invalidate(ctx, c.ProfileKey(userID))
}

// Ping checks connectivity. A disabled cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the client if one is attached.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// ProfileKey is the namespaced key of userID's cached profile.
func (c *Cache) ProfileKey(userID uint) string {
	key := fmt.Sprintf(ProfileKeyPrefix, userID)
	if c == nil || c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}
