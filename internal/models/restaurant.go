package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Weekdays lists the canonical weekday keys of a WeeklySchedule, indexed by time.Weekday.
var Weekdays = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// WeekdayName returns the schedule key for the weekday of date.
func WeekdayName(date time.Time) string {
	return Weekdays[date.Weekday()]
}

type OperatingHours struct {
	Open   string `json:"open" yaml:"open"`
	Close  string `json:"close" yaml:"close"`
	Closed bool   `json:"closed" yaml:"closed"`
}

// WeeklySchedule maps a weekday name to its operating hours.
type WeeklySchedule map[string]OperatingHours

type Tables struct {
	Count    int `json:"count" yaml:"count"`
	Capacity int `json:"capacity" yaml:"capacity"`
}

type Restaurant struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Slug              string         `json:"slug" yaml:"slug"`
	Description       string         `json:"description" yaml:"description"`
	CuisineType       string         `json:"cuisineType" yaml:"cuisine_type"`
	WhatsappNumber    string         `json:"whatsappNumber" yaml:"whatsapp_number"`
	OperatingHours    WeeklySchedule `json:"operatingHours" yaml:"operating_hours"`
	Tables            Tables         `json:"tables" yaml:"tables"`
	AvgDiningDuration int            `json:"avgDiningDuration" yaml:"avg_dining_duration"`
	BookingInterval   int            `json:"bookingInterval" yaml:"booking_interval"`
	MaxDaysAdvance    int            `json:"maxDaysAdvance" yaml:"max_days_advance"`
	Policies          string         `json:"policies" yaml:"policies"`
	BlockedDates      []string       `json:"blockedDates" yaml:"blocked_dates"`
}

// TotalCapacity is the maximum number of guests seated at any instant.
func (r *Restaurant) TotalCapacity() int {
	return r.Tables.Count * r.Tables.Capacity
}

// IsBlocked reports whether date (YYYY-MM-DD) is in BlockedDates.
func (r *Restaurant) IsBlocked(date string) bool {
	for _, d := range r.BlockedDates {
		if strings.TrimSpace(d) == date {
			return true
		}
	}
	return false
}

// HoursFor returns the operating hours for the weekday of date.
func (r *Restaurant) HoursFor(date time.Time) (OperatingHours, bool) {
	h, ok := r.OperatingHours[WeekdayName(date)]
	return h, ok
}

var ErrInvalidRestaurant = errors.New("invalid restaurant configuration")

// Validate checks the record invariants the availability engine relies on.
func (r *Restaurant) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRestaurant)
	}
	if !IsValidSlug(r.Slug) {
		return fmt.Errorf("%w: slug %q must be lowercase letters, digits and dashes", ErrInvalidRestaurant, r.Slug)
	}
	for _, day := range Weekdays {
		h, ok := r.OperatingHours[day]
		if !ok {
			return fmt.Errorf("%w: operating hours missing for %s", ErrInvalidRestaurant, day)
		}
		if h.Closed {
			continue
		}
		if _, err := ParseClock(h.Open); err != nil {
			return fmt.Errorf("%w: %s open: %v", ErrInvalidRestaurant, day, err)
		}
		if _, err := ParseClock(h.Close); err != nil {
			return fmt.Errorf("%w: %s close: %v", ErrInvalidRestaurant, day, err)
		}
	}
	if r.Tables.Count < 0 {
		return fmt.Errorf("%w: tables.count must not be negative", ErrInvalidRestaurant)
	}
	if r.Tables.Capacity <= 0 {
		return fmt.Errorf("%w: tables.capacity must be positive", ErrInvalidRestaurant)
	}
	if r.AvgDiningDuration <= 0 {
		return fmt.Errorf("%w: avgDiningDuration must be positive", ErrInvalidRestaurant)
	}
	if r.BookingInterval <= 0 {
		return fmt.Errorf("%w: bookingInterval must be positive", ErrInvalidRestaurant)
	}
	if r.MaxDaysAdvance < 0 {
		return fmt.Errorf("%w: maxDaysAdvance must not be negative", ErrInvalidRestaurant)
	}
	for _, d := range r.BlockedDates {
		if _, err := ParseDate(d); err != nil {
			return fmt.Errorf("%w: blocked date %q: %v", ErrInvalidRestaurant, d, err)
		}
	}
	return nil
}

// IsValidSlug accepts URL-safe slugs: lowercase ASCII letters, digits and inner dashes.
func IsValidSlug(slug string) bool {
	if slug == "" || strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return false
	}
	for _, c := range slug {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}

// DefaultWeeklySchedule opens every day from 10:00 to 22:00.
func DefaultWeeklySchedule() WeeklySchedule {
	s := make(WeeklySchedule, len(Weekdays))
	for _, day := range Weekdays {
		s[day] = OperatingHours{Open: "10:00", Close: "22:00"}
	}
	return s
}

// DefaultRestaurant is the demo record seeded into an empty directory.
func DefaultRestaurant() Restaurant {
	return Restaurant{
		ID:                "default-1",
		Name:              "Le Bistro Charmant",
		Slug:              "le-bistro-charmant",
		Description:       "Authentic French cuisine in a cozy neighborhood setting. Famous for our house-made pastries and evening steak frites.",
		CuisineType:       "French",
		WhatsappNumber:    "1234567890",
		OperatingHours:    DefaultWeeklySchedule(),
		Tables:            Tables{Count: 12, Capacity: 4},
		AvgDiningDuration: 60,
		BookingInterval:   30,
		MaxDaysAdvance:    30,
		Policies:          "We hold tables for 15 minutes. No-shows may be blocked from future bookings.",
		BlockedDates:      []string{},
	}
}
