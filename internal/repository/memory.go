package repository

import (
	"context"
	"sync"
	"time"

	"quicktable/internal/models"
)

type cachedRestaurant struct {
	restaurant models.Restaurant
	expiresAt  time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryCacheRepository is the process-local CacheRepository used when
// Redis is not configured or unreachable.
type MemoryCacheRepository struct {
	mu          sync.Mutex
	restaurants map[string]cachedRestaurant
	rateLimits  map[string]*rateLimitEntry
	ttl         time.Duration
	now         func() time.Time
}

func NewMemoryCacheRepository(ttl time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{
		restaurants: make(map[string]cachedRestaurant),
		rateLimits:  make(map[string]*rateLimitEntry),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (r *MemoryCacheRepository) GetRestaurant(_ context.Context, slug string) (*models.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.restaurants[slug]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		delete(r.restaurants, slug)
		return nil, nil
	}
	restaurant := entry.restaurant
	return &restaurant, nil
}

func (r *MemoryCacheRepository) SetRestaurant(_ context.Context, restaurant *models.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restaurants[restaurant.Slug] = cachedRestaurant{
		restaurant: *restaurant,
		expiresAt:  r.now().Add(r.ttl),
	}
	return nil
}

func (r *MemoryCacheRepository) InvalidateRestaurant(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.restaurants, slug)
	return nil
}

func (r *MemoryCacheRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		r.pruneRateLimits(now)
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

// pruneRateLimits drops expired windows. Callers hold r.mu.
func (r *MemoryCacheRepository) pruneRateLimits(now time.Time) {
	for key, entry := range r.rateLimits {
		if now.After(entry.expiresAt) {
			delete(r.rateLimits, key)
		}
	}
}
