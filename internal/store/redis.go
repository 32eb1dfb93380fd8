package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pet-tracker/server/internal/config"
	"pet-tracker/server/internal/domain"
)

type RedisStore struct {
	client   *redis.Client
	stateTTL time.Duration
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:   client,
		stateTTL: time.Duration(cfg.StateTTLSeconds) * time.Second,
	}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// SessionUser resolves a session token minted by the external auth system
// to a user ID. Returns 0 when the token is unknown or expired.
func (r *RedisStore) SessionUser(ctx context.Context, token string) (int64, error) {
	key := fmt.Sprintf("session:%s", token)
	val, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis session lookup failed: %w", err)
	}
	return val, nil
}

// PublishLocation pushes the just-stored fix to the pet's live channel and
// refreshes the pet's state hash for dashboard consumers.
func (r *RedisStore) PublishLocation(ctx context.Context, loc *domain.Location, battery *int) error {
	payload, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	stateData := map[string]interface{}{
		"pet_id":      loc.PetID,
		"lat":         loc.Latitude,
		"lng":         loc.Longitude,
		"location_id": loc.ID,
		"timestamp":   loc.Timestamp.Unix(),
	}
	if battery != nil {
		stateData["battery"] = *battery
	}

	stateKey := fmt.Sprintf("pet:%d:state", loc.PetID)
	pubChannel := fmt.Sprintf("pet:%d:location", loc.PetID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, stateKey, stateData)
	pipe.Expire(ctx, stateKey, r.stateTTL)
	pipe.Publish(ctx, pubChannel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// PublishAlert notifies the pet's alert channel about a new alert.
func (r *RedisStore) PublishAlert(ctx context.Context, alert *domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	channel := fmt.Sprintf("pet:%d:alerts", alert.PetID)
	return r.client.Publish(ctx, channel, payload).Err()
}
