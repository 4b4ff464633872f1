package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // timezone names without a system zoneinfo

	"quicktable/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	API          APIConfig          `yaml:"api"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Google       GoogleConfig       `yaml:"google"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Availability AvailabilityConfig `yaml:"availability"`
	Reservations ReservationsConfig `yaml:"reservations"`
	Worker       WorkerConfig       `yaml:"worker"`
	Backup       BackupConfig       `yaml:"backup"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Logging      LoggingConfig      `yaml:"logging"`
	Exports      ExportConfig       `yaml:"exports"`
	// RestaurantsFile seeds the directory on startup when set.
	RestaurantsFile string `yaml:"restaurants_file"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// CacheTTL bounds how long a restaurant record is served from cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	// BookingLimit caps reservation submissions per client within BookingWindow.
	BookingLimit  int           `yaml:"booking_limit"`
	BookingWindow time.Duration `yaml:"booking_window"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// APIGRPCConfig serves health checks and the availability RPCs.
type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

// APIAuthConfig guards the admin routes with static API keys.
type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Source  string        `yaml:"source"`
	Timeout time.Duration `yaml:"timeout"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	Debug        bool    `yaml:"debug"`
	StaffChatIDs []int64 `yaml:"staff_chat_ids"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

type AvailabilityConfig struct {
	LimitedThreshold  float64 `yaml:"limited_threshold"`
	PartyHeadroom     int     `yaml:"party_headroom"`
	CountCancelled    *bool   `yaml:"count_cancelled"`
	HonorBlockedDates *bool   `yaml:"honor_blocked_dates"`
}

type ReservationsConfig struct {
	EnforceTransitions bool `yaml:"enforce_transitions"`
	// Timezone resolves "today" for the booking window.
	Timezone string `yaml:"timezone"`
	// CheckCapacity rejects a booking whose slot is already full.
	CheckCapacity *bool `yaml:"check_capacity"`
}

type WorkerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRetries   int           `yaml:"max_retries"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if t := c.Availability.LimitedThreshold; t < 0 || t > 1 {
		return fmt.Errorf("availability.limited_threshold must be within [0,1], got %v", t)
	}
	if c.Availability.PartyHeadroom < 0 {
		return errors.New("availability.party_headroom must not be negative")
	}
	if _, err := time.LoadLocation(c.Reservations.Timezone); err != nil {
		return fmt.Errorf("reservations.timezone: %w", err)
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.api_keys is required when auth is enabled")
	}
	if c.Telegram.BotToken != "" && len(c.Telegram.StaffChatIDs) == 0 {
		return errors.New("telegram.staff_chat_ids is required when a bot token is set")
	}
	if c.Google.SpreadsheetID != "" && c.Google.CredentialsFile == "" {
		return errors.New("google.credentials_file is required when a spreadsheet id is set")
	}
	return nil
}

// Location returns the configured reservation timezone, UTC when unset.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reservations.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func boolPtr(v bool) *bool { return &v }

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "quicktable"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.API.BookingLimit == 0 {
		c.API.BookingLimit = models.RateLimitBookings
	}
	if c.API.BookingWindow == 0 {
		c.API.BookingWindow = models.RateLimitWindow * time.Second
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = models.DefaultRestaurantCacheTTL * time.Second
	}

	if c.Webhook.Source == "" {
		c.Webhook.Source = models.DefaultWebhookSource
	}
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = 10 * time.Second
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Reservations"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "quicktable.events"
	}

	if c.Availability.LimitedThreshold == 0 {
		c.Availability.LimitedThreshold = models.DefaultLimitedThreshold
	}
	if c.Availability.CountCancelled == nil {
		c.Availability.CountCancelled = boolPtr(true)
	}
	if c.Availability.HonorBlockedDates == nil {
		c.Availability.HonorBlockedDates = boolPtr(true)
	}
	if c.Reservations.Timezone == "" {
		c.Reservations.Timezone = "UTC"
	}
	if c.Reservations.CheckCapacity == nil {
		c.Reservations.CheckCapacity = boolPtr(true)
	}

	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 30 * time.Second
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
	if c.Worker.BaseDelay == 0 {
		c.Worker.BaseDelay = 2 * time.Second
	}
	if c.Worker.MaxDelay == 0 {
		c.Worker.MaxDelay = time.Minute
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
