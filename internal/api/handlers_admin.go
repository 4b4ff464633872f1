package api

import (
	"fmt"
	"net/http"
	"strings"

	"quicktable/internal/export"
	"quicktable/internal/models"
)

func (s *HTTPServer) handleAdminRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, err := s.deps.Restaurants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}

// handleSaveRestaurant replaces the whole settings record.
func (s *HTTPServer) handleSaveRestaurant(w http.ResponseWriter, r *http.Request) {
	var restaurant models.Restaurant
	if err := decodeJSON(w, r, &restaurant); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	if restaurant.ID != "" && restaurant.ID != id {
		writeError(w, http.StatusBadRequest, "restaurant id does not match the path")
		return
	}
	restaurant.ID = id

	if err := s.deps.Restaurants.Save(r.Context(), &restaurant); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Reservations.Dashboard(r.Context(), r.PathValue("id"), strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ReservationFilter{
		Date:   strings.TrimSpace(q.Get("date")),
		Status: models.ReservationStatus(strings.TrimSpace(q.Get("status"))),
		Search: strings.TrimSpace(q.Get("q")),
	}
	if filter.Status == "all" {
		filter.Status = ""
	}

	list, err := s.deps.Reservations.List(r.Context(), r.PathValue("id"), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": list})
}

func (s *HTTPServer) handleManualBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.deps.Reservations.BookManual(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type statusRequest struct {
	Status models.ReservationStatus `json:"status"`
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservation, err := s.deps.Reservations.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	link, err := s.deps.Reservations.ContactLink(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"whatsappUrl": link})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	restaurant, err := s.deps.Restaurants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	list, err := s.deps.Reservations.ListBetween(r.Context(), restaurant.ID, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(restaurant, from, to)))
	if err := s.deps.Exporter.Write(w, restaurant, from, to, list); err != nil {
		s.logger.Error().Err(err).Str("restaurant_id", restaurant.ID).Msg("export failed")
	}
}
