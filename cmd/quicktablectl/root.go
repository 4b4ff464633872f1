package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"quicktable/internal/availability"
	"quicktable/internal/config"
	"quicktable/internal/database"
	"quicktable/internal/logging"
	"quicktable/internal/repository"
	"quicktable/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	outputJSON bool
	verbose    bool

	app *app
}

// app holds what every subcommand works against. It is opened before a
// subcommand runs and closed after.
type app struct {
	cfg          *config.Config
	logger       *zerolog.Logger
	db           *database.DB
	engine       *availability.Engine
	restaurants  *service.RestaurantService
	reservations *service.ReservationService
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "quicktablectl",
		Short:        "Administer QuickTable restaurants and reservations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app != nil {
				return opts.app.db.Close()
			}
			return nil
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "Path to config.yaml")
	root.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "Output JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		seedCmd(opts),
		restaurantsCmd(opts),
		slotsCmd(opts),
		daysCmd(opts),
		reservationsCmd(opts),
		exportCmd(opts),
		forwardCmd(opts),
		sheetsCmd(opts),
		backupCmd(opts),
	)
	return root
}

func openApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Logs go to stderr so command output stays parseable.
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	logCfg.Format = "console"
	logCfg.Level = "warn"
	if opts.verbose {
		logCfg.Level = "debug"
	}
	base, _, err := logging.New(logCfg, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(base, "ctl")

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	restaurants := service.NewRestaurantService(db, repository.NewMemoryCacheRepository(cfg.Redis.CacheTTL), logger)
	engine := availability.New(availability.PolicyFromConfig(cfg.Availability))
	reservations := service.NewReservationService(
		restaurants, db,
		engine,
		nil, nil,
		service.ReservationOptions{
			EnforceTransitions: cfg.Reservations.EnforceTransitions,
			CheckCapacity:      *cfg.Reservations.CheckCapacity,
			Location:           cfg.Location(),
		},
		logger,
	)

	return &app{cfg: cfg, logger: logger, db: db, engine: engine, restaurants: restaurants, reservations: reservations}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
