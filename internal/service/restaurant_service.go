package service

import (
	"context"
	"errors"
	"fmt"

	"quicktable/internal/database"
	"quicktable/internal/domain"
	"quicktable/internal/models"

	"github.com/rs/zerolog"
)

// RestaurantService reads restaurants through the cache and writes them
// through to the directory.
type RestaurantService struct {
	repo   domain.RestaurantDirectory
	cache  domain.CacheRepository
	logger *zerolog.Logger
}

func NewRestaurantService(repo domain.RestaurantDirectory, cache domain.CacheRepository, logger *zerolog.Logger) *RestaurantService {
	return &RestaurantService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *RestaurantService) FindBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRestaurant(ctx, slug)
		if err != nil {
			s.logger.Warn().Err(err).Str("slug", slug).Msg("restaurant cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	restaurant, err := s.repo.FindRestaurant(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRestaurant(ctx, restaurant); err != nil {
			s.logger.Warn().Err(err).Str("slug", slug).Msg("restaurant cache write failed")
		}
	}
	return restaurant, nil
}

func (s *RestaurantService) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	return s.repo.GetRestaurant(ctx, id)
}

func (s *RestaurantService) List(ctx context.Context) ([]models.Restaurant, error) {
	return s.repo.ListRestaurants(ctx)
}

// Save validates and replaces the restaurant, dropping cache entries for
// both the old and the new slug.
func (s *RestaurantService) Save(ctx context.Context, restaurant *models.Restaurant) error {
	if err := restaurant.Validate(); err != nil {
		return err
	}

	var oldSlug string
	if prev, err := s.repo.GetRestaurant(ctx, restaurant.ID); err == nil {
		oldSlug = prev.Slug
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	if err := s.repo.SaveRestaurant(ctx, restaurant); err != nil {
		return err
	}

	s.invalidate(ctx, restaurant.Slug)
	if oldSlug != "" && oldSlug != restaurant.Slug {
		s.invalidate(ctx, oldSlug)
	}

	s.logger.Info().Str("restaurant_id", restaurant.ID).Str("slug", restaurant.Slug).Msg("restaurant settings saved")
	return nil
}

func (s *RestaurantService) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRestaurant(ctx, slug); err != nil {
		s.logger.Warn().Err(err).Str("slug", slug).Msg("restaurant cache invalidation failed")
	}
}

// EnsureDefault seeds the demo restaurant into an empty directory.
func (s *RestaurantService) EnsureDefault(ctx context.Context) error {
	existing, err := s.repo.ListRestaurants(ctx)
	if err != nil {
		return fmt.Errorf("list restaurants: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	restaurant := models.DefaultRestaurant()
	if err := s.repo.SaveRestaurant(ctx, &restaurant); err != nil {
		return fmt.Errorf("seed default restaurant: %w", err)
	}
	s.logger.Info().Str("slug", restaurant.Slug).Msg("seeded default restaurant")
	return nil
}

// Seed saves each restaurant, replacing records with the same ID.
func (s *RestaurantService) Seed(ctx context.Context, restaurants []models.Restaurant) error {
	for i := range restaurants {
		if err := s.Save(ctx, &restaurants[i]); err != nil {
			return fmt.Errorf("seed %s: %w", restaurants[i].ID, err)
		}
	}
	return nil
}
