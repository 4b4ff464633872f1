package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quicktable/internal/availability"
	"quicktable/internal/domain"
	"quicktable/internal/events"
	"quicktable/internal/metrics"
	"quicktable/internal/models"
	"quicktable/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrPastDate          = errors.New("date is in the past")
	ErrDateTooFar        = errors.New("date is beyond the booking window")
	ErrDateBlocked       = errors.New("restaurant is not taking bookings on this date")
	ErrSlotUnavailable   = errors.New("requested time is not available")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRequest    = errors.New("invalid request")
)

const (
	sourceCustomer = "customer"
	sourceStaff    = "staff"
)

type ReservationOptions struct {
	// EnforceTransitions rejects status changes outside the strict graph.
	EnforceTransitions bool
	// CheckCapacity rejects customer bookings whose slot is already full.
	CheckCapacity bool
	// Location resolves "today" for the booking window. Nil means UTC.
	Location *time.Location
}

type ReservationService struct {
	restaurants domain.RestaurantService
	store       domain.ReservationStore
	engine      *availability.Engine
	eventBus    domain.EventPublisher
	forwarder   domain.Forwarder
	opts        ReservationOptions
	now         func() time.Time
	logger      *zerolog.Logger
}

func NewReservationService(
	restaurants domain.RestaurantService,
	store domain.ReservationStore,
	engine *availability.Engine,
	eventBus domain.EventPublisher,
	forwarder domain.Forwarder,
	opts ReservationOptions,
	logger *zerolog.Logger,
) *ReservationService {
	if engine == nil {
		engine = availability.New(availability.DefaultPolicy())
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ReservationService{
		restaurants: restaurants,
		store:       store,
		engine:      engine,
		eventBus:    eventBus,
		forwarder:   forwarder,
		opts:        opts,
		now:         time.Now,
		logger:      logger,
	}
}

// today is the current calendar date in the configured location.
func (s *ReservationService) today() time.Time {
	return models.DateOf(s.now().In(s.opts.Location))
}

// Slots computes the slots of one date for a party.
func (s *ReservationService) Slots(ctx context.Context, slug, date string, partySize int) (*models.Restaurant, []models.Slot, error) {
	restaurant, err := s.restaurants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	slots, err := s.computeSlots(ctx, restaurant, day, partySize)
	if err != nil {
		return nil, nil, err
	}
	return restaurant, slots, nil
}

func (s *ReservationService) computeSlots(ctx context.Context, restaurant *models.Restaurant, day time.Time, partySize int) ([]models.Slot, error) {
	reservations, err := s.store.ListReservations(ctx, restaurant.ID, models.ReservationFilter{Date: models.FormatDate(day)})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	slots, err := s.engine.ComputeSlots(restaurant, reservations, day, partySize)
	metrics.ObserveSlotComputation(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, availability.ErrInvalidInput) && partySize <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}
	return slots, nil
}

// Days summarizes up to days dates starting at from (today when zero),
// never past the restaurant's booking window.
func (s *ReservationService) Days(ctx context.Context, slug string, from time.Time, days int) ([]models.DaySummary, error) {
	restaurant, err := s.restaurants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	today := s.today()
	start := today
	if !from.IsZero() {
		start = models.DateOf(from)
	}
	if start.Before(today) {
		start = today
	}
	if days <= 0 {
		days = models.DefaultPickerDays
	}

	last := start.AddDate(0, 0, days-1)
	if restaurant.MaxDaysAdvance > 0 {
		if limit := today.AddDate(0, 0, restaurant.MaxDaysAdvance); last.After(limit) {
			last = limit
		}
	}

	summaries := []models.DaySummary{}
	for d := start; !d.After(last); d = d.AddDate(0, 0, 1) {
		summary, err := s.engine.Summarize(restaurant, d)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// BookCustomer stores a pending online request after checking the booking
// window and, optionally, slot capacity.
func (s *ReservationService) BookCustomer(ctx context.Context, slug string, req models.BookingRequest) (*models.BookingResult, error) {
	restaurant, err := s.restaurants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	reservation, day, err := s.newReservation(restaurant, req, models.StatusPending)
	if err != nil {
		return nil, err
	}
	if err := s.checkDate(restaurant, day); err != nil {
		return nil, err
	}
	if s.opts.CheckCapacity {
		if err := s.checkSlot(ctx, restaurant, day, reservation); err != nil {
			return nil, err
		}
	}

	if err := s.create(ctx, restaurant, reservation, sourceCustomer); err != nil {
		return nil, err
	}

	return &models.BookingResult{
		Reservation: reservation,
		WhatsAppURL: notify.BookingLink(restaurant, reservation),
		Message:     notify.CustomerRequestMessage(restaurant, reservation),
	}, nil
}

// BookManual stores a staff-entered reservation as confirmed. Staff may book
// outside the online window and over capacity.
func (s *ReservationService) BookManual(ctx context.Context, restaurantID string, req models.BookingRequest) (*models.BookingResult, error) {
	restaurant, err := s.restaurants.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	reservation, _, err := s.newReservation(restaurant, req, models.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, restaurant, reservation, sourceStaff); err != nil {
		return nil, err
	}

	result := &models.BookingResult{Reservation: reservation}
	if req.SendWhatsApp {
		if link := notify.ConfirmationLink(restaurant, reservation); link != "" {
			result.WhatsAppURL = link
			result.Message = notify.StaffConfirmationMessage(restaurant, reservation)
		}
	}
	return result, nil
}

func (s *ReservationService) newReservation(restaurant *models.Restaurant, req models.BookingRequest, status models.ReservationStatus) (*models.Reservation, time.Time, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, time.Time{}, fmt.Errorf("%w: customer name is required", ErrInvalidRequest)
	}
	if req.PartySize <= 0 {
		return nil, time.Time{}, fmt.Errorf("%w: party size must be positive", ErrInvalidRequest)
	}
	day, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := models.ParseClock(req.Time); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	id := strings.TrimSpace(req.ID)
	if len(id) > models.MaxReservationIDLength {
		return nil, time.Time{}, fmt.Errorf("%w: reservation id longer than %d bytes", ErrInvalidRequest, models.MaxReservationIDLength)
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := models.NewTimestamp(s.now())
	return &models.Reservation{
		ID:              id,
		RestaurantID:    restaurant.ID,
		CustomerName:    name,
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		Date:            models.FormatDate(day),
		Time:            req.Time,
		PartySize:       req.PartySize,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, day, nil
}

// checkDate enforces today <= day <= today+MaxDaysAdvance and blocked dates.
func (s *ReservationService) checkDate(restaurant *models.Restaurant, day time.Time) error {
	today := s.today()
	if day.Before(today) {
		return ErrPastDate
	}
	if restaurant.MaxDaysAdvance > 0 && day.After(today.AddDate(0, 0, restaurant.MaxDaysAdvance)) {
		return ErrDateTooFar
	}
	if s.engine.Policy().HonorBlockedDates && restaurant.IsBlocked(models.FormatDate(day)) {
		return ErrDateBlocked
	}
	return nil
}

// checkSlot is advisory: a concurrent booking can still take the last seats.
func (s *ReservationService) checkSlot(ctx context.Context, restaurant *models.Restaurant, day time.Time, reservation *models.Reservation) error {
	slots, err := s.computeSlots(ctx, restaurant, day, reservation.PartySize)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot.Time != reservation.Time {
			continue
		}
		if !slot.Bookable() {
			return fmt.Errorf("%w: %s at %s is full", ErrSlotUnavailable, reservation.Date, reservation.Time)
		}
		return nil
	}
	return fmt.Errorf("%w: %s is not a bookable time on %s", ErrSlotUnavailable, reservation.Time, reservation.Date)
}

func (s *ReservationService) create(ctx context.Context, restaurant *models.Restaurant, reservation *models.Reservation, source string) error {
	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		return err
	}
	metrics.IncReservationCreated(source)

	payload := eventPayload(restaurant, reservation)
	payload.Source = source
	s.publishEvent(events.EventReservationCreated, payload)
	s.enqueueForward(ctx, models.ForwardCreated, reservation, restaurant.Name)
	return nil
}

// UpdateStatus applies a status change and returns the updated reservation.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) (*models.Reservation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.opts.EnforceTransitions && !current.Status.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	if err := s.store.UpdateReservationStatus(ctx, id, status); err != nil {
		return nil, err
	}
	updated, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.IncStatusChange(string(status))

	var restaurantName string
	restaurant, err := s.restaurants.Get(ctx, updated.RestaurantID)
	if err != nil {
		s.logger.Warn().Err(err).Str("restaurant_id", updated.RestaurantID).Msg("restaurant lookup failed after status change")
		restaurant = &models.Restaurant{ID: updated.RestaurantID}
	} else {
		restaurantName = restaurant.Name
	}

	payload := eventPayload(restaurant, updated)
	payload.PreviousStatus = string(current.Status)
	s.publishEvent(events.EventReservationStatusChanged, payload)
	s.enqueueForward(ctx, models.ForwardStatusChanged, updated, restaurantName)

	s.logger.Info().
		Str("reservation_id", id).
		Str("from", string(current.Status)).
		Str("to", string(status)).
		Msg("reservation status updated")
	return updated, nil
}

func (s *ReservationService) List(ctx context.Context, restaurantID string, filter models.ReservationFilter) ([]models.Reservation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, filter.Status)
	}
	if filter.Date != "" {
		if _, err := models.ParseDate(filter.Date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	return s.store.ListReservations(ctx, restaurantID, filter)
}

func (s *ReservationService) ListBetween(ctx context.Context, restaurantID, from, to string) ([]models.Reservation, error) {
	fromDay, err := models.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("%w: from: %v", ErrInvalidRequest, err)
	}
	toDay, err := models.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("%w: to: %v", ErrInvalidRequest, err)
	}
	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("%w: range ends before it starts", ErrInvalidRequest)
	}
	return s.store.ListReservationsBetween(ctx, restaurantID, from, to)
}

// Dashboard aggregates date (today when empty). Pending requests span all dates.
func (s *ReservationService) Dashboard(ctx context.Context, restaurantID, date string) (*models.DashboardStats, error) {
	if date == "" {
		date = models.FormatDate(s.today())
	} else if _, err := models.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := s.restaurants.Get(ctx, restaurantID); err != nil {
		return nil, err
	}

	reservations, err := s.store.ListReservations(ctx, restaurantID, models.ReservationFilter{})
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{Date: date}
	for _, r := range reservations {
		if r.Status == models.StatusPending {
			stats.PendingRequests++
		}
		if r.Date != date {
			continue
		}
		stats.TodaysBookings++
		stats.TodaysGuests += r.PartySize
		if r.Status == models.StatusConfirmed {
			stats.ConfirmedToday++
		}
	}
	return stats, nil
}

// ContactLink returns the staff-to-guest chat link for a reservation.
func (s *ReservationService) ContactLink(ctx context.Context, id string) (string, error) {
	reservation, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return "", err
	}
	restaurant, err := s.restaurants.Get(ctx, reservation.RestaurantID)
	if err != nil {
		return "", err
	}
	link := notify.ContactLink(restaurant, reservation)
	if link == "" {
		return "", fmt.Errorf("%w: no phone number on reservation or restaurant", ErrInvalidRequest)
	}
	return link, nil
}

func eventPayload(restaurant *models.Restaurant, r *models.Reservation) events.ReservationEventPayload {
	return events.ReservationEventPayload{
		ReservationID:  r.ID,
		RestaurantID:   r.RestaurantID,
		RestaurantName: restaurant.Name,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		Date:           r.Date,
		Time:           r.Time,
		PartySize:      r.PartySize,
		Status:         string(r.Status),
	}
}

func (s *ReservationService) publishEvent(eventType string, payload events.ReservationEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", payload.ReservationID).Msg("publish event error")
	}
}

// enqueueForward never fails the caller; the reservation is already stored.
func (s *ReservationService) enqueueForward(ctx context.Context, kind string, reservation *models.Reservation, restaurantName string) {
	if s.forwarder == nil {
		return
	}
	if err := s.forwarder.EnqueueTask(ctx, kind, reservation, restaurantName); err != nil {
		s.logger.Error().Err(err).Str("reservation_id", reservation.ID).Str("kind", kind).Msg("forward enqueue error")
	}
}
