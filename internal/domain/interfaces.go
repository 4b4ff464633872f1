package domain

import (
	"context"
	"time"

	"quicktable/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RestaurantDirectory looks up and replaces whole restaurant records.
type RestaurantDirectory interface {
	FindRestaurant(ctx context.Context, slug string) (*models.Restaurant, error)
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	SaveRestaurant(ctx context.Context, restaurant *models.Restaurant) error
}

// ReservationStore appends reservations and mutates their status.
type ReservationStore interface {
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error
	ListReservations(ctx context.Context, restaurantID string, filter models.ReservationFilter) ([]models.Reservation, error)
	ListReservationsBetween(ctx context.Context, restaurantID, from, to string) ([]models.Reservation, error)
}

type Repository interface {
	RestaurantDirectory
	ReservationStore
}

// CacheRepository caches directory lookups and counts client requests.
type CacheRepository interface {
	GetRestaurant(ctx context.Context, slug string) (*models.Restaurant, error)
	SetRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	InvalidateRestaurant(ctx context.Context, slug string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Forwarder queues reservation snapshots for asynchronous delivery.
type Forwarder interface {
	EnqueueTask(ctx context.Context, taskType string, reservation *models.Reservation, restaurantName string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type ReservationService interface {
	Slots(ctx context.Context, slug, date string, partySize int) (*models.Restaurant, []models.Slot, error)
	Days(ctx context.Context, slug string, from time.Time, days int) ([]models.DaySummary, error)
	BookCustomer(ctx context.Context, slug string, req models.BookingRequest) (*models.BookingResult, error)
	BookManual(ctx context.Context, restaurantID string, req models.BookingRequest) (*models.BookingResult, error)
	UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) (*models.Reservation, error)
	List(ctx context.Context, restaurantID string, filter models.ReservationFilter) ([]models.Reservation, error)
	ListBetween(ctx context.Context, restaurantID, from, to string) ([]models.Reservation, error)
	Dashboard(ctx context.Context, restaurantID string, date string) (*models.DashboardStats, error)
	ContactLink(ctx context.Context, id string) (string, error)
}

type RestaurantService interface {
	FindBySlug(ctx context.Context, slug string) (*models.Restaurant, error)
	Get(ctx context.Context, id string) (*models.Restaurant, error)
	List(ctx context.Context) ([]models.Restaurant, error)
	Save(ctx context.Context, restaurant *models.Restaurant) error
	EnsureDefault(ctx context.Context) error
}
