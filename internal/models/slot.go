package models

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotLimited   SlotStatus = "limited"
	SlotFull      SlotStatus = "full"
)

// Slot is one offer-able start time with its remaining capacity.
type Slot struct {
	Time              string     `json:"time"`
	AvailableCapacity int        `json:"availableCapacity"`
	TotalCapacity     int        `json:"totalCapacity"`
	Status            SlotStatus `json:"status"`
}

// Bookable reports whether the slot accepts the party it was computed for.
func (s Slot) Bookable() bool {
	return s.Status != SlotFull
}

// DayState classifies a calendar date for the date picker.
type DayState string

const (
	DayOpen    DayState = "open"
	DayClosed  DayState = "closed"
	DayBlocked DayState = "blocked"
)

type DaySummary struct {
	Date      string   `json:"date"`
	Weekday   string   `json:"weekday"`
	State     DayState `json:"state"`
	FirstSlot string   `json:"firstSlot,omitempty"`
	LastSlot  string   `json:"lastSlot,omitempty"`
}

// DashboardStats are the admin dashboard aggregates for one day.
type DashboardStats struct {
	Date            string `json:"date"`
	TodaysGuests    int    `json:"todaysGuests"`
	TodaysBookings  int    `json:"todaysBookings"`
	PendingRequests int    `json:"pendingRequests"`
	ConfirmedToday  int    `json:"confirmedToday"`
}
