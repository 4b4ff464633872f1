package api

import (
	"errors"
	"net/http"

	"quicktable/internal/availability"
	"quicktable/internal/database"
	"quicktable/internal/models"
	"quicktable/internal/service"
)

var errRateLimited = errors.New("rate limit exceeded")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, availability.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidRestaurant):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrDuplicateSlug),
		errors.Is(err, database.ErrDuplicateID),
		errors.Is(err, service.ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrDateTooFar),
		errors.Is(err, service.ErrDateBlocked),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, availability.ErrInvalidConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError hides internal failures behind a generic message.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}
