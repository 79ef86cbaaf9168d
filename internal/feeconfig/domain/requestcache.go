package domain

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
)

type cacheKey struct{}

type requestCache struct {
	mu      sync.Mutex
	entries map[snowflake.ID]EffectiveFeeConfig
}

// WithRequestCache installs a per-request memo for resolved fee configs.
// Repeated Resolve calls inside one request return the identical view without
// extra storage round trips. The cache dies with the request context, so a
// configuration change always takes effect on the very next request.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, &requestCache{
		entries: make(map[snowflake.ID]EffectiveFeeConfig),
	})
}

// CachedConfig returns a previously resolved config for this request, if any.
func CachedConfig(ctx context.Context, merchantID snowflake.ID) (EffectiveFeeConfig, bool) {
	cache, _ := ctx.Value(cacheKey{}).(*requestCache)
	if cache == nil {
		return EffectiveFeeConfig{}, false
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cfg, ok := cache.entries[merchantID]
	return cfg, ok
}

// StoreCachedConfig memoizes a resolved config for the rest of the request.
// A no-op when no cache is installed.
func StoreCachedConfig(ctx context.Context, merchantID snowflake.ID, cfg EffectiveFeeConfig) {
	cache, _ := ctx.Value(cacheKey{}).(*requestCache)
	if cache == nil {
		return
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[merchantID] = cfg
}
