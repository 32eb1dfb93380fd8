package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pet-tracker/server/internal/config"
	"pet-tracker/server/internal/domain"
)

// PetSource looks up a pet by its device credential.
type PetSource interface {
	PetByAPIKey(ctx context.Context, apiKey string) (*domain.Pet, error)
}

type cacheEntry struct {
	pet       *domain.Pet
	expiresAt time.Time
}

// DeviceRegistry resolves device API keys to their owning pet. Positive
// lookups are cached in memory for a short TTL so steady reporting devices
// do not hit the database on every fix.
type DeviceRegistry struct {
	localCache sync.Map
	pets       PetSource
	ttl        time.Duration
}

func NewDeviceRegistry(cfg *config.Config, pets PetSource) *DeviceRegistry {
	return &DeviceRegistry{
		pets: pets,
		ttl:  time.Duration(cfg.AuthCacheTTLSeconds) * time.Second,
	}
}

// Resolve returns the pet bound to the credential, or domain.ErrUnauthorized
// when the credential is missing or unknown. Unknown credentials are never
// conflated with "pet has no data".
func (r *DeviceRegistry) Resolve(ctx context.Context, apiKey string) (*domain.Pet, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing api key: %w", domain.ErrUnauthorized)
	}

	if raw, ok := r.localCache.Load(apiKey); ok {
		entry := raw.(cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.pet, nil
		}
		r.localCache.Delete(apiKey)
	}

	pet, err := r.pets.PetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid api key: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	r.localCache.Store(apiKey, cacheEntry{
		pet:       pet,
		expiresAt: time.Now().Add(r.ttl),
	})

	return pet, nil
}
