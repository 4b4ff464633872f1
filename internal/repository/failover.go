package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"quicktable/internal/domain"
	"quicktable/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheRepository serves from primary until it errors, then from
// fallback, retrying primary once per recoveryInterval. Invalidations that
// could not reach primary are replayed before its next read.
type FailoverCacheRepository struct {
	primary   domain.CacheRepository
	fallback  domain.CacheRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
		pending:  make(map[string]struct{}),
	}
}

// usePrimary reports whether the next call should try primary.
func (r *FailoverCacheRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if r.now().Sub(last) > recoveryInterval {
		r.lastCheck.Store(r.now().UnixNano())
		return true
	}
	return false
}

// observe records the outcome of a primary call.
func (r *FailoverCacheRepository) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary cache recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverCacheRepository) GetRestaurant(ctx context.Context, slug string) (*models.Restaurant, error) {
	if r.usePrimary() {
		err := r.replayInvalidations(ctx)
		var restaurant *models.Restaurant
		if err == nil {
			restaurant, err = r.primary.GetRestaurant(ctx, slug)
		}
		r.observe(err)
		if err == nil {
			return restaurant, nil
		}
	}
	return r.fallback.GetRestaurant(ctx, slug)
}

func (r *FailoverCacheRepository) replayInvalidations(ctx context.Context) error {
	r.pendingMu.Lock()
	slugs := make([]string, 0, len(r.pending))
	for slug := range r.pending {
		slugs = append(slugs, slug)
	}
	r.pendingMu.Unlock()

	for _, slug := range slugs {
		if err := r.primary.InvalidateRestaurant(ctx, slug); err != nil {
			return err
		}
		r.pendingMu.Lock()
		delete(r.pending, slug)
		r.pendingMu.Unlock()
	}
	return nil
}

func (r *FailoverCacheRepository) deferInvalidation(slug string) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	r.pending[slug] = struct{}{}
}

func (r *FailoverCacheRepository) SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	if r.usePrimary() {
		err := r.primary.SetRestaurant(ctx, restaurant)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetRestaurant(ctx, restaurant)
}

// InvalidateRestaurant always clears the fallback too, so a record cached
// there during an outage is not served after recovery.
func (r *FailoverCacheRepository) InvalidateRestaurant(ctx context.Context, slug string) error {
	fallbackErr := r.fallback.InvalidateRestaurant(ctx, slug)
	if r.usePrimary() {
		err := r.primary.InvalidateRestaurant(ctx, slug)
		r.observe(err)
		if err == nil {
			return fallbackErr
		}
	}
	r.deferInvalidation(slug)
	return fallbackErr
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
