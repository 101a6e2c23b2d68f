package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/cat-slideshow/pkg/client"
)

// AppKey is the store key of AppConfig.
const AppKey = "CatSlideshowApp"

// AppConfig is the persisted application state.
type AppConfig struct {
	SelectedBreedID string `json:"selectedBreedId"`
}

// DefaultAppConfig selects all breeds.
func DefaultAppConfig() AppConfig {
	return AppConfig{SelectedBreedID: client.AllBreeds}
}

// Load decodes the JSON value of key into dst. It reports false when the key
// does not exist; dst is left untouched in that case.
func Load(ctx context.Context, store Store, key string, dst any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save stores v as JSON under key.
func Save(ctx context.Context, store Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Set(ctx, key, string(data))
}

// LoadAppConfig returns the persisted AppConfig, or the default when none is
// stored. On a read or decode error it returns the default together with the
// error; logging it is up to the caller.
func LoadAppConfig(ctx context.Context, store Store) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if _, err := Load(ctx, store, AppKey, &cfg); err != nil {
		return DefaultAppConfig(), err
	}
	if cfg.SelectedBreedID == "" {
		cfg.SelectedBreedID = client.AllBreeds
	}
	return cfg, nil
}

// SaveAppConfig persists cfg.
func SaveAppConfig(ctx context.Context, store Store, cfg AppConfig) error {
	return Save(ctx, store, AppKey, cfg)
}

// ResolveSelection returns the stored breed when it is still offered, and
// AllBreeds otherwise.
func ResolveSelection(cfg AppConfig, breeds []client.Breed) string {
	if cfg.SelectedBreedID == client.AllBreeds {
		return client.AllBreeds
	}
	for _, b := range breeds {
		if b.ID == cfg.SelectedBreedID {
			return b.ID
		}
	}
	return client.AllBreeds
}
