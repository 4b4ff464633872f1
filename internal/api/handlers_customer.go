package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"quicktable/internal/models"
)

const defaultPartySize = 2

func (s *HTTPServer) handleRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, err := s.deps.Restaurants.FindBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}

func (s *HTTPServer) handleDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var from time.Time
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		from = d
	}

	days := 0
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 366 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	summaries, err := s.deps.Reservations.Days(r.Context(), r.PathValue("slug"), from, days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": summaries})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	party := defaultPartySize
	if raw := strings.TrimSpace(q.Get("party")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "party must be a number")
			return
		}
		party = n
	}

	restaurant, slots, err := s.deps.Reservations.Slots(r.Context(), r.PathValue("slug"), date, party)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restaurantId": restaurant.ID,
		"date":         date,
		"partySize":    party,
		"slots":        slots,
	})
}

func (s *HTTPServer) handleCustomerBooking(w http.ResponseWriter, r *http.Request) {
	if !s.allowBooking(r) {
		writeError(w, http.StatusTooManyRequests, "too many booking requests, please try again later")
		return
	}

	var req models.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Customers never choose ids or trigger staff links.
	req.ID = ""
	req.SendWhatsApp = false

	result, err := s.deps.Reservations.BookCustomer(r.Context(), r.PathValue("slug"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// allowBooking applies the per-client submission limit. Cache failures let
// the request through.
func (s *HTTPServer) allowBooking(r *http.Request) bool {
	if s.deps.Cache == nil || s.cfg.BookingLimit <= 0 {
		return true
	}
	allowed, err := s.deps.Cache.CheckRateLimit(r.Context(), "booking:"+clientIP(r), s.cfg.BookingLimit, s.cfg.BookingWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("booking rate limit check failed")
		return true
	}
	return allowed
}

