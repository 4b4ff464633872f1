package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quicktable/internal/config"
	"quicktable/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	restaurantKeyPrefix = "qt:restaurant:"
	rateLimitKeyPrefix  = "qt:rate_limit:"
)

// RedisCacheRepository caches restaurant records by slug and keeps fixed
// window request counters.
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCacheRepository(client *redis.Client, ttl time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
	}
}

// GetRestaurant returns nil, nil on a cache miss.
func (r *RedisCacheRepository) GetRestaurant(ctx context.Context, slug string) (*models.Restaurant, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, restaurantKeyPrefix+slug).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant from redis: %w", err)
	}

	var restaurant models.Restaurant
	if err := json.Unmarshal(val, &restaurant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal restaurant: %w", err)
	}
	return &restaurant, nil
}

func (r *RedisCacheRepository) SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(restaurant)
	if err != nil {
		return fmt.Errorf("failed to marshal restaurant: %w", err)
	}
	if err := r.client.Set(ctx, restaurantKeyPrefix+restaurant.Slug, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set restaurant in redis: %w", err)
	}
	return nil
}

func (r *RedisCacheRepository) InvalidateRestaurant(ctx context.Context, slug string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, restaurantKeyPrefix+slug).Err(); err != nil {
		return fmt.Errorf("failed to delete restaurant from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts one hit for key and reports whether it is within limit.
func (r *RedisCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	redisKey := rateLimitKeyPrefix + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
