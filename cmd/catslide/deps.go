package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/cat-slideshow/internal/config"
	"github.com/Sternrassler/cat-slideshow/pkg/client"
	"github.com/Sternrassler/cat-slideshow/pkg/prefs"
	"github.com/redis/go-redis/v9"
)

// openRedis connects to the configured Redis server. It returns nil when
// Redis is not configured.
func openRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
	}
	return rdb, nil
}

// newAPIClient creates the API client, caching through rdb when set.
func newAPIClient(cfg *config.Config, rdb redis.UniversalClient) (*client.Client, error) {
	cc := cfg.ClientConfig()
	cc.Redis = rdb
	api, err := client.New(cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return api, nil
}

// openPrefs opens the configured preferences store.
func openPrefs(cfg *config.Config, rdb redis.UniversalClient) (prefs.Store, error) {
	switch cfg.Prefs.Backend {
	case config.PrefsBolt:
		return prefs.OpenBoltStore(cfg.Prefs.Path)
	case config.PrefsRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis prefs backend requires redis.addr")
		}
		return prefs.NewRedisStore(rdb, ""), nil
	case config.PrefsMemory:
		return prefs.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown prefs backend %q", cfg.Prefs.Backend)
	}
}
