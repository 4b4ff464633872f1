// Package availability turns a restaurant's hours, table inventory and the
// reservations already booked for a date into bookable time slots.
//
// Everything here is a pure function of its arguments: no storage access, no
// clock reads. Callers pre-filter reservations by restaurant and date.
package availability

import (
	"errors"
	"fmt"
	"time"

	"quicktable/internal/models"
)

var (
	// ErrInvalidConfiguration marks a restaurant record the engine cannot schedule from.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput marks a malformed reservation or request argument.
	ErrInvalidInput = errors.New("invalid input")
)

// Policy holds the tunable constants of slot classification.
type Policy struct {
	// LimitedThreshold is the available/total ratio below which a slot is limited.
	LimitedThreshold float64
	// PartyHeadroom seats that must remain free beyond the requested party.
	PartyHeadroom int
	// CountCancelled makes cancelled reservations hold capacity.
	CountCancelled bool
	// HonorBlockedDates yields no slots on the restaurant's blocked dates.
	HonorBlockedDates bool
}

// DefaultPolicy uses a 30% limited threshold and counts every reservation
// regardless of status.
func DefaultPolicy() Policy {
	return Policy{
		LimitedThreshold:  models.DefaultLimitedThreshold,
		CountCancelled:    true,
		HonorBlockedDates: true,
	}
}

type Engine struct {
	policy Policy
}

func New(policy Policy) *Engine {
	if policy.LimitedThreshold < 0 {
		policy.LimitedThreshold = 0
	}
	if policy.PartyHeadroom < 0 {
		policy.PartyHeadroom = 0
	}
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// ComputeSlots uses the default policy.
func ComputeSlots(r *models.Restaurant, reservations []models.Reservation, date time.Time, partySize int) ([]models.Slot, error) {
	return New(DefaultPolicy()).ComputeSlots(r, reservations, date, partySize)
}

// occupancyWindow is a reservation's [start, end) in minutes after midnight.
type occupancyWindow struct {
	start, end int
	party      int
}

// ComputeSlots returns the slots offered on date for a party of partySize,
// ordered by time. A closed or blocked day yields an empty, non-nil slice.
func (e *Engine) ComputeSlots(r *models.Restaurant, reservations []models.Reservation, date time.Time, partySize int) ([]models.Slot, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: restaurant is nil", ErrInvalidInput)
	}
	if partySize <= 0 {
		return nil, fmt.Errorf("%w: party size must be positive, got %d", ErrInvalidInput, partySize)
	}

	open, closeAt, ok, err := e.window(r, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Slot{}, nil
	}

	windows, err := e.occupancy(r, reservations)
	if err != nil {
		return nil, err
	}

	total := r.TotalCapacity()
	n := 0
	if closeAt > open {
		n = (closeAt - open + r.BookingInterval - 1) / r.BookingInterval
	}
	slots := make([]models.Slot, 0, n)
	for t := open; t < closeAt; t += r.BookingInterval {
		occupied := 0
		for _, w := range windows {
			if w.start <= t && t < w.end {
				occupied += w.party
			}
		}
		available := total - occupied
		slots = append(slots, models.Slot{
			Time:              models.FormatClock(t),
			AvailableCapacity: available,
			TotalCapacity:     total,
			Status:            e.classify(available, total, partySize),
		})
	}
	return slots, nil
}

// window resolves the open/close minutes for date. ok is false on a closed
// or blocked day.
func (e *Engine) window(r *models.Restaurant, date time.Time) (open, closeAt int, ok bool, err error) {
	if r.BookingInterval <= 0 {
		return 0, 0, false, fmt.Errorf("%w: bookingInterval must be positive, got %d", ErrInvalidConfiguration, r.BookingInterval)
	}
	if r.AvgDiningDuration <= 0 {
		return 0, 0, false, fmt.Errorf("%w: avgDiningDuration must be positive, got %d", ErrInvalidConfiguration, r.AvgDiningDuration)
	}

	weekday := models.WeekdayName(date)
	hours, found := r.OperatingHours[weekday]
	if !found {
		return 0, 0, false, fmt.Errorf("%w: restaurant %s has no operating hours for %s", ErrInvalidConfiguration, r.ID, weekday)
	}
	if hours.Closed {
		return 0, 0, false, nil
	}
	if e.policy.HonorBlockedDates && r.IsBlocked(models.FormatDate(date)) {
		return 0, 0, false, nil
	}

	open, err = models.ParseClock(hours.Open)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %s open: %v", ErrInvalidConfiguration, weekday, err)
	}
	closeAt, err = models.ParseClock(hours.Close)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %s close: %v", ErrInvalidConfiguration, weekday, err)
	}
	return open, closeAt, true, nil
}

func (e *Engine) occupancy(r *models.Restaurant, reservations []models.Reservation) ([]occupancyWindow, error) {
	windows := make([]occupancyWindow, 0, len(reservations))
	for i := range reservations {
		res := &reservations[i]
		if !res.Counts(e.policy.CountCancelled) {
			continue
		}
		start, err := models.ParseClock(res.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: reservation %s: %v", ErrInvalidInput, res.ID, err)
		}
		if res.PartySize <= 0 {
			return nil, fmt.Errorf("%w: reservation %s: party size must be positive, got %d", ErrInvalidInput, res.ID, res.PartySize)
		}
		windows = append(windows, occupancyWindow{
			start: start,
			end:   start + r.AvgDiningDuration,
			party: res.PartySize,
		})
	}
	return windows, nil
}

func (e *Engine) classify(available, total, partySize int) models.SlotStatus {
	if available < partySize+e.policy.PartyHeadroom {
		return models.SlotFull
	}
	if total > 0 && float64(available)/float64(total) < e.policy.LimitedThreshold {
		return models.SlotLimited
	}
	return models.SlotAvailable
}

// Summarize classifies date for the date picker and reports the first and
// last slot times of an open day.
func (e *Engine) Summarize(r *models.Restaurant, date time.Time) (models.DaySummary, error) {
	summary := models.DaySummary{
		Date:    models.FormatDate(date),
		Weekday: models.WeekdayName(date),
	}
	if r == nil {
		return summary, fmt.Errorf("%w: restaurant is nil", ErrInvalidInput)
	}

	if hours, found := r.OperatingHours[summary.Weekday]; found && hours.Closed {
		summary.State = models.DayClosed
		return summary, nil
	}
	open, closeAt, ok, err := e.window(r, date)
	if err != nil {
		return summary, err
	}
	if !ok {
		summary.State = models.DayBlocked
		return summary, nil
	}
	if open >= closeAt {
		summary.State = models.DayClosed
		return summary, nil
	}

	summary.State = models.DayOpen
	summary.FirstSlot = models.FormatClock(open)
	last := open + (closeAt-open-1)/r.BookingInterval*r.BookingInterval
	summary.LastSlot = models.FormatClock(last)
	return summary, nil
}
