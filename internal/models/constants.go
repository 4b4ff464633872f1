package models

const (
	// DefaultLimitedThreshold is the share of total capacity below which a slot is "limited".
	DefaultLimitedThreshold = 0.30

	// DefaultWebhookSource tags forwarded reservations.
	DefaultWebhookSource = "QuickTable App"

	// DefaultRestaurantCacheTTL in seconds.
	DefaultRestaurantCacheTTL = 5 * 60

	// DefaultPickerDays is how many days the customer date picker shows.
	DefaultPickerDays = 14

	// WorkerQueueSize is the in-memory forward queue capacity.
	WorkerQueueSize = 128

	// RateLimitBookings per client within RateLimitWindow seconds.
	RateLimitBookings = 5
	RateLimitWindow   = 60

	// MaxReservationIDLength keeps "complete:<id>" inside Telegram's 64-byte callback data.
	MaxReservationIDLength = 48

	ParseModeMarkdown = "Markdown"
)
