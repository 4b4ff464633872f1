package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quicktable/internal/api"
	"quicktable/internal/availability"
	"quicktable/internal/bot"
	"quicktable/internal/config"
	"quicktable/internal/database"
	"quicktable/internal/domain"
	"quicktable/internal/events"
	"quicktable/internal/export"
	"quicktable/internal/google"
	"quicktable/internal/logging"
	"quicktable/internal/metrics"
	"quicktable/internal/repository"
	"quicktable/internal/service"
	"quicktable/internal/webhook"
	"quicktable/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	cache := initCache(cfg, redisClient, logger)

	restaurants := service.NewRestaurantService(db, cache, logging.Component(logger, "restaurants"))
	if err := seedRestaurants(ctx, cfg, restaurants, logger); err != nil {
		return err
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", ev.Type).Msg("event handler error")
	})
	if publisher := initAMQP(cfg, eventBus, logger); publisher != nil {
		defer publisher.Close()
	}

	forwarder := initWorker(ctx, cfg, db, redisClient, logger)

	// Only a non-nil worker may be stored in the interface.
	var fwd domain.Forwarder
	if forwarder != nil {
		fwd = forwarder
	}
	reservations := service.NewReservationService(
		restaurants, db,
		availability.New(availability.PolicyFromConfig(cfg.Availability)),
		eventBus, fwd,
		service.ReservationOptions{
			EnforceTransitions: cfg.Reservations.EnforceTransitions,
			CheckCapacity:      *cfg.Reservations.CheckCapacity,
			Location:           cfg.Location(),
		},
		logging.Component(logger, "reservations"),
	)

	telegramBot, err := initBot(cfg, reservations, logger)
	if err != nil {
		return err
	}
	if telegramBot != nil && forwarder != nil {
		forwarder.AddSink(telegramBot)
	}

	if forwarder != nil {
		go forwarder.Start(ctx)
	}
	if telegramBot != nil {
		go telegramBot.Start(ctx)
		defer telegramBot.Stop()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, running background workers only")
		<-ctx.Done()
		return nil
	}

	deps := api.Deps{
		Reservations: reservations,
		Restaurants:  restaurants,
		Cache:        cache,
		Exporter:     export.NewExporter(cfg.Exports.Path, cfg.Location(), logging.Component(logger, "export")),
		Health:       db,
	}
	httpServer := api.NewHTTPServer(cfg.API, deps, logging.Component(logger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, deps, logging.Component(logger, "grpc"))
		if err != nil {
			return err
		}
		go grpcServer.WatchHealth(ctx, 15*time.Second)
	}

	return startServers(ctx, httpServer, grpcServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

// seedRestaurants loads the seed file when configured, else makes sure the
// demo restaurant exists.
func seedRestaurants(ctx context.Context, cfg *config.Config, restaurants *service.RestaurantService, logger *zerolog.Logger) error {
	path := os.Getenv("RESTAURANTS_PATH")
	if path == "" {
		path = cfg.RestaurantsFile
	}
	if path == "" {
		return restaurants.EnsureDefault(ctx)
	}

	seed, err := config.LoadRestaurants(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("restaurants_path", path).Msg("restaurants file not found, using the demo restaurant")
			return restaurants.EnsureDefault(ctx)
		}
		logger.Error().Err(err).Str("restaurants_path", path).Msg("load restaurants")
		return err
	}
	if err := restaurants.Seed(ctx, seed); err != nil {
		return err
	}
	logger.Info().Int("count", len(seed)).Str("restaurants_path", path).Msg("restaurants seeded")
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CacheRepository {
	memory := repository.NewMemoryCacheRepository(cfg.Redis.CacheTTL)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCacheRepository(
		repository.NewRedisCacheRepository(redisClient, cfg.Redis.CacheTTL),
		memory,
		logging.Component(logger, "cache"),
	)
}

func initAMQP(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *events.AMQPPublisher {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}

	publisher, err := events.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, logging.Component(logger, "amqp"))
	if err != nil {
		logger.Warn().Err(err).Msg("rabbitmq unavailable, events stay in-process")
		return nil
	}
	bus.SubscribeAll(publisher.Handle)

	logger.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("rabbitmq connected")
	return publisher
}

// initWorker builds the forwarding worker with the webhook and sheets sinks.
// The telegram sink is added once the bot exists.
func initWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.ForwardWorker {
	if !cfg.Worker.Enabled {
		return nil
	}

	var sinks []worker.Sink
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Source, cfg.Webhook.Timeout))
	}
	if sheets := initGoogleSheets(ctx, cfg, logger); sheets != nil {
		sinks = append(sinks, sheets)
	}

	w := worker.NewForwardWorker(
		db, redisClient,
		worker.RetryPolicyFromConfig(cfg.Worker),
		cfg.Worker.PollInterval,
		logging.Component(logger, "forward-worker"),
		sinks...,
	)
	logger.Info().Strs("sinks", w.Sinks()).Msg("forward worker configured")
	return w
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.SpreadsheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.SheetName, cfg.Location())
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}
	if err := sheets.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets row cache warm-up failed")
	}

	logger.Info().Str("sheet", cfg.Google.SheetName).Msg("google sheets connected")
	return sheets
}

func initBot(cfg *config.Config, reservations domain.ReservationService, logger *zerolog.Logger) (*bot.Bot, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, nil
	}

	botAPI, err := bot.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("create telegram bot api")
		return nil, err
	}

	return bot.NewBot(
		botAPI, reservations, cfg.Telegram, cfg.Location(),
		bot.NewMetrics(prometheus.DefaultRegisterer),
		logging.Component(logger, "bot"),
	), nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	httpServer *api.HTTPServer,
	grpcServer *api.GRPCServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)
	go func() {
		errCh <- httpServer.Start()
	}()
	if grpcServer != nil {
		go func() {
			errCh <- grpcServer.Serve()
		}()
	}

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api server stopped")
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
