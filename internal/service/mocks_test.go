package service

import (
	"context"

	"quicktable/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRestaurants struct {
	mock.Mock
}

func (m *mockRestaurants) FindBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restaurant), args.Error(1)
}

func (m *mockRestaurants) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restaurant), args.Error(1)
}

func (m *mockRestaurants) List(ctx context.Context) ([]models.Restaurant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Restaurant), args.Error(1)
}

func (m *mockRestaurants) Save(ctx context.Context, r *models.Restaurant) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRestaurants) EnsureDefault(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockStore) UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) ListReservations(ctx context.Context, restaurantID string, filter models.ReservationFilter) ([]models.Reservation, error) {
	args := m.Called(ctx, restaurantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockStore) ListReservationsBetween(ctx context.Context, restaurantID, from, to string) ([]models.Reservation, error) {
	args := m.Called(ctx, restaurantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) FindRestaurant(ctx context.Context, slug string) (*models.Restaurant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restaurant), args.Error(1)
}

func (m *mockDirectory) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restaurant), args.Error(1)
}

func (m *mockDirectory) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Restaurant), args.Error(1)
}

func (m *mockDirectory) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	return m.Called(ctx, r).Error(0)
}

type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) EnqueueTask(ctx context.Context, kind string, r *models.Reservation, restaurantName string) error {
	return m.Called(ctx, kind, r, restaurantName).Error(0)
}

