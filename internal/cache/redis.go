// Package cache provides a short-TTL redis cache for bearer-token identity
// lookups, so the auth middleware does not hit postgres on every request.
// The service runs fine without it; a nil *IdentityCache is skipped.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carehub/patienthub/internal/auth"
	"github.com/redis/go-redis/v9"
)

const identityTTL = 30 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
}

type IdentityCache struct {
	redisdb *redis.Client
}

func New(cfg Config) *IdentityCache {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &IdentityCache{redisdb: redisdb}
}

func key(tokenHash string) string {
	return "identity:" + tokenHash
}

func (c *IdentityCache) Get(ctx context.Context, tokenHash string) (auth.Identity, bool) {
	raw, err := c.redisdb.Get(ctx, key(tokenHash)).Bytes()

	if err != nil {
		// miss and transport errors look the same to the caller; the store
		// is the source of truth either way
		return auth.Identity{}, false
	}

	var id auth.Identity

	if err := json.Unmarshal(raw, &id); err != nil {
		return auth.Identity{}, false
	}

	return id, true
}

func (c *IdentityCache) Set(ctx context.Context, tokenHash string, id auth.Identity) {
	raw, err := json.Marshal(id)

	if err != nil {
		return
	}

	_ = c.redisdb.Set(ctx, key(tokenHash), raw, identityTTL).Err()
}

func (c *IdentityCache) Delete(ctx context.Context, tokenHash string) {
	_ = c.redisdb.Del(ctx, key(tokenHash)).Err()
}

// Ping checks redis connectivity at startup.
func (c *IdentityCache) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *IdentityCache) Close() error {
	return c.redisdb.Close()
}
