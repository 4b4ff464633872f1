package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// Valid reports whether s is one of the four known statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the strict status graph allows s -> next:
// pending -> confirmed|cancelled, confirmed -> completed|cancelled.
// Re-applying the current status is always allowed.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// Timestamp is a point in time carried on the wire as Unix epoch milliseconds.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Millisecond)}
}

func TimestampFromMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms)}
}

// Millis returns the epoch milliseconds, 0 for the zero value.
func (t Timestamp) Millis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Millis())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp: expected epoch milliseconds: %w", err)
	}
	if ms == 0 {
		*t = Timestamp{}
		return nil
	}
	*t = TimestampFromMillis(ms)
	return nil
}

type Reservation struct {
	ID              string            `json:"id"`
	RestaurantID    string            `json:"restaurantId"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	PartySize       int               `json:"partySize"`
	SpecialRequests string            `json:"specialRequests"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       Timestamp         `json:"createdAt"`
	UpdatedAt       Timestamp         `json:"updatedAt"`
}

// Counts reports whether r holds capacity under the given policy.
func (r *Reservation) Counts(countCancelled bool) bool {
	return countCancelled || r.Status != StatusCancelled
}

// ReservationFilter narrows ListReservations. Zero fields match everything.
type ReservationFilter struct {
	Date   string
	Status ReservationStatus
	Search string
}
