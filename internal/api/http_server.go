package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"quicktable/internal/config"
	"quicktable/internal/domain"
	"quicktable/internal/export"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// HealthChecker is anything /healthz should ping, typically the database.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the HTTP API serves.
type Deps struct {
	Reservations domain.ReservationService
	Restaurants  domain.RestaurantService
	Cache        domain.CacheRepository
	Exporter     *export.Exporter
	Health       HealthChecker
}

// HTTPServer exposes the customer booking API and the admin API.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	auth   *HTTPAuth
	server *http.Server
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{cfg: cfg, deps: deps, auth: NewHTTPAuth(cfg), logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	mux.HandleFunc("GET /api/v1/restaurants/{slug}", srv.handleRestaurant)
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/days", srv.handleDays)
	mux.HandleFunc("GET /api/v1/restaurants/{slug}/slots", srv.handleSlots)
	mux.HandleFunc("POST /api/v1/restaurants/{slug}/reservations", srv.handleCustomerBooking)

	mux.HandleFunc("GET /api/v1/admin/restaurants/{id}", srv.handleAdminRestaurant)
	mux.HandleFunc("PUT /api/v1/admin/restaurants/{id}", srv.handleSaveRestaurant)
	mux.HandleFunc("GET /api/v1/admin/restaurants/{id}/dashboard", srv.handleDashboard)
	mux.HandleFunc("GET /api/v1/admin/restaurants/{id}/reservations", srv.handleListReservations)
	mux.HandleFunc("POST /api/v1/admin/restaurants/{id}/reservations", srv.handleManualBooking)
	mux.HandleFunc("GET /api/v1/admin/restaurants/{id}/export", srv.handleExport)
	mux.HandleFunc("PATCH /api/v1/admin/reservations/{id}/status", srv.handleUpdateStatus)
	mux.HandleFunc("GET /api/v1/admin/reservations/{id}/contact", srv.handleContact)

	handler := loggingMiddleware(logger, srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

// Handler is the fully wrapped router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
