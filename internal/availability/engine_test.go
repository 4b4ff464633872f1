package availability

import (
	"testing"
	"time"

	"quicktable/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wednesday is 2026-10-14.
var wednesday = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func newRestaurant(open, closeAt string, interval, duration, tables, capacity int) *models.Restaurant {
	hours := make(models.WeeklySchedule, 7)
	for _, day := range models.Weekdays {
		hours[day] = models.OperatingHours{Open: open, Close: closeAt}
	}
	return &models.Restaurant{
		ID:                "r1",
		Slug:              "r1",
		OperatingHours:    hours,
		Tables:            models.Tables{Count: tables, Capacity: capacity},
		AvgDiningDuration: duration,
		BookingInterval:   interval,
	}
}

func booking(id, at string, party int) models.Reservation {
	return models.Reservation{ID: id, RestaurantID: "r1", Date: "2026-10-14", Time: at, PartySize: party, Status: models.StatusPending}
}

func slotTimes(slots []models.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time
	}
	return out
}

func slotAt(t *testing.T, slots []models.Slot, at string) models.Slot {
	t.Helper()
	for _, s := range slots {
		if s.Time == at {
			return s
		}
	}
	t.Fatalf("no slot at %s in %v", at, slotTimes(slots))
	return models.Slot{}
}

func TestComputeSlots_ClosedDay(t *testing.T) {
	r := newRestaurant("10:00", "22:00", 30, 60, 5, 4)
	r.OperatingHours["Wednesday"] = models.OperatingHours{Open: "10:00", Close: "22:00", Closed: true}

	slots, err := ComputeSlots(r, []models.Reservation{booking("a", "12:00", 4)}, wednesday, 2)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestComputeSlots_TimesStrictlyBeforeClose(t *testing.T) {
	r := newRestaurant("10:00", "14:00", 60, 60, 5, 4)

	slots, err := ComputeSlots(r, nil, wednesday, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "13:00"}, slotTimes(slots))
	for _, s := range slots {
		assert.Equal(t, 20, s.AvailableCapacity)
		assert.Equal(t, 20, s.TotalCapacity)
		assert.Equal(t, models.SlotAvailable, s.Status)
	}
}

func TestComputeSlots_OccupancyWindow(t *testing.T) {
	r := newRestaurant("11:00", "14:00", 1, 60, 5, 4)
	reservations := []models.Reservation{booking("a", "12:00", 18)}

	slots, err := ComputeSlots(r, reservations, wednesday, 2)
	require.NoError(t, err)

	assert.Equal(t, 20, slotAt(t, slots, "11:30").AvailableCapacity)
	assert.Equal(t, 20, slotAt(t, slots, "11:59").AvailableCapacity)
	assert.Equal(t, 2, slotAt(t, slots, "12:00").AvailableCapacity)
	assert.Equal(t, 2, slotAt(t, slots, "12:30").AvailableCapacity)
	assert.Equal(t, 2, slotAt(t, slots, "12:59").AvailableCapacity)
	assert.Equal(t, 20, slotAt(t, slots, "13:00").AvailableCapacity)
	assert.Equal(t, 20, slotAt(t, slots, "13:01").AvailableCapacity)
}

func TestComputeSlots_OverlappingWindowsSum(t *testing.T) {
	r := newRestaurant("18:00", "21:00", 15, 90, 5, 4)
	reservations := []models.Reservation{
		booking("a", "18:00", 6),
		booking("b", "18:45", 8),
	}

	slots, err := ComputeSlots(r, reservations, wednesday, 2)
	require.NoError(t, err)

	assert.Equal(t, 14, slotAt(t, slots, "18:00").AvailableCapacity)
	assert.Equal(t, 6, slotAt(t, slots, "18:45").AvailableCapacity)
	assert.Equal(t, 6, slotAt(t, slots, "19:15").AvailableCapacity)
	assert.Equal(t, 12, slotAt(t, slots, "19:30").AvailableCapacity)
	assert.Equal(t, 20, slotAt(t, slots, "20:15").AvailableCapacity)
}

func TestComputeSlots_Classification(t *testing.T) {
	r := newRestaurant("12:00", "13:00", 60, 60, 5, 4)

	tests := []struct {
		name     string
		booked   int
		party    int
		expected models.SlotStatus
	}{
		{name: "FullWhenBelowParty", booked: 18, party: 3, expected: models.SlotFull},
		{name: "AvailableWhenEmpty", booked: 0, party: 3, expected: models.SlotAvailable},
		{name: "LimitedBelowThirtyPercent", booked: 15, party: 3, expected: models.SlotLimited},
		{name: "ExactlyThirtyPercentIsAvailable", booked: 14, party: 3, expected: models.SlotAvailable},
		{name: "ExactFitIsBookable", booked: 17, party: 3, expected: models.SlotLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reservations []models.Reservation
			if tt.booked > 0 {
				reservations = append(reservations, booking("a", "12:00", tt.booked))
			}
			slots, err := ComputeSlots(r, reservations, wednesday, tt.party)
			require.NoError(t, err)
			require.Len(t, slots, 1)
			assert.Equal(t, tt.expected, slots[0].Status)
		})
	}
}

func TestComputeSlots_Overbooked(t *testing.T) {
	r := newRestaurant("12:00", "13:00", 30, 60, 5, 4)

	slots, err := ComputeSlots(r, []models.Reservation{booking("a", "12:00", 15), booking("b", "12:00", 10)}, wednesday, 1)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, -5, slots[0].AvailableCapacity)
	assert.Equal(t, models.SlotFull, slots[0].Status)
}

func TestComputeSlots_Idempotent(t *testing.T) {
	r := newRestaurant("18:00", "22:00", 30, 90, 5, 4)
	reservations := []models.Reservation{booking("a", "19:00", 10), booking("b", "20:30", 4)}

	first, err := ComputeSlots(r, reservations, wednesday, 2)
	require.NoError(t, err)
	second, err := ComputeSlots(r, reservations, wednesday, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "19:00", reservations[0].Time)
}

func TestComputeSlots_ZeroCapacity(t *testing.T) {
	r := newRestaurant("10:00", "12:00", 30, 60, 0, 4)

	slots, err := ComputeSlots(r, nil, wednesday, 1)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	for _, s := range slots {
		assert.Equal(t, 0, s.TotalCapacity)
		assert.Equal(t, models.SlotFull, s.Status)
	}
}

func TestComputeSlots_EveningScenario(t *testing.T) {
	r := newRestaurant("18:00", "22:00", 30, 90, 5, 4)
	reservations := []models.Reservation{booking("a", "19:00", 10)}

	slots, err := ComputeSlots(r, reservations, wednesday, 2)
	require.NoError(t, err)

	expected := []models.Slot{
		{Time: "18:00", AvailableCapacity: 20, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "18:30", AvailableCapacity: 20, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "19:00", AvailableCapacity: 10, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "19:30", AvailableCapacity: 10, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "20:00", AvailableCapacity: 10, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "20:30", AvailableCapacity: 20, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "21:00", AvailableCapacity: 20, TotalCapacity: 20, Status: models.SlotAvailable},
		{Time: "21:30", AvailableCapacity: 20, TotalCapacity: 20, Status: models.SlotAvailable},
	}
	assert.Equal(t, expected, slots)

	strict := New(Policy{LimitedThreshold: 0.6, CountCancelled: true})
	slots, err = strict.ComputeSlots(r, reservations, wednesday, 2)
	require.NoError(t, err)
	assert.Equal(t, models.SlotLimited, slotAt(t, slots, "19:00").Status)
	assert.Equal(t, models.SlotAvailable, slotAt(t, slots, "20:30").Status)
}

func TestComputeSlots_IntervalWiderThanSpan(t *testing.T) {
	r := newRestaurant("10:00", "11:00", 120, 60, 5, 4)

	slots, err := ComputeSlots(r, nil, wednesday, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, slotTimes(slots))

	r = newRestaurant("22:00", "02:00", 30, 60, 5, 4)
	slots, err = ComputeSlots(r, nil, wednesday, 2)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestComputeSlots_CancelledPolicy(t *testing.T) {
	r := newRestaurant("12:00", "13:00", 60, 60, 5, 4)
	cancelled := booking("a", "12:00", 10)
	cancelled.Status = models.StatusCancelled

	slots, err := ComputeSlots(r, []models.Reservation{cancelled}, wednesday, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, slots[0].AvailableCapacity)

	p := DefaultPolicy()
	p.CountCancelled = false
	slots, err = New(p).ComputeSlots(r, []models.Reservation{cancelled}, wednesday, 2)
	require.NoError(t, err)
	assert.Equal(t, 20, slots[0].AvailableCapacity)
}

func TestComputeSlots_PartyHeadroom(t *testing.T) {
	r := newRestaurant("12:00", "13:00", 60, 60, 5, 4)
	p := DefaultPolicy()
	p.PartyHeadroom = 2

	slots, err := New(p).ComputeSlots(r, []models.Reservation{booking("a", "12:00", 16)}, wednesday, 3)
	require.NoError(t, err)
	assert.Equal(t, models.SlotFull, slots[0].Status)
}

func TestComputeSlots_BlockedDate(t *testing.T) {
	r := newRestaurant("12:00", "14:00", 60, 60, 5, 4)
	r.BlockedDates = []string{"2026-10-14"}

	slots, err := ComputeSlots(r, nil, wednesday, 2)
	require.NoError(t, err)
	assert.Empty(t, slots)

	p := DefaultPolicy()
	p.HonorBlockedDates = false
	slots, err = New(p).ComputeSlots(r, nil, wednesday, 2)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestComputeSlots_InvalidInput(t *testing.T) {
	t.Run("MissingWeekday", func(t *testing.T) {
		r := newRestaurant("12:00", "14:00", 60, 60, 5, 4)
		delete(r.OperatingHours, "Wednesday")
		_, err := ComputeSlots(r, nil, wednesday, 2)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("BadOpenTime", func(t *testing.T) {
		r := newRestaurant("noon", "14:00", 60, 60, 5, 4)
		_, err := ComputeSlots(r, nil, wednesday, 2)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("ZeroInterval", func(t *testing.T) {
		r := newRestaurant("12:00", "14:00", 0, 60, 5, 4)
		_, err := ComputeSlots(r, nil, wednesday, 2)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("BadReservationTime", func(t *testing.T) {
		r := newRestaurant("12:00", "14:00", 60, 60, 5, 4)
		_, err := ComputeSlots(r, []models.Reservation{booking("a", "7pm", 2)}, wednesday, 2)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("BadReservationParty", func(t *testing.T) {
		r := newRestaurant("12:00", "14:00", 60, 60, 5, 4)
		_, err := ComputeSlots(r, []models.Reservation{booking("a", "12:00", -5)}, wednesday, 2)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("NonPositiveParty", func(t *testing.T) {
		r := newRestaurant("12:00", "14:00", 60, 60, 5, 4)
		_, err := ComputeSlots(r, nil, wednesday, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("NilRestaurant", func(t *testing.T) {
		_, err := ComputeSlots(nil, nil, wednesday, 2)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSummarize(t *testing.T) {
	engine := New(DefaultPolicy())

	r := newRestaurant("18:00", "22:00", 45, 90, 5, 4)
	summary, err := engine.Summarize(r, wednesday)
	require.NoError(t, err)
	assert.Equal(t, models.DayOpen, summary.State)
	assert.Equal(t, "Wednesday", summary.Weekday)
	assert.Equal(t, "18:00", summary.FirstSlot)
	assert.Equal(t, "21:45", summary.LastSlot)

	r.OperatingHours["Wednesday"] = models.OperatingHours{Closed: true}
	summary, err = engine.Summarize(r, wednesday)
	require.NoError(t, err)
	assert.Equal(t, models.DayClosed, summary.State)
	assert.Empty(t, summary.FirstSlot)

	r = newRestaurant("18:00", "22:00", 30, 90, 5, 4)
	r.BlockedDates = []string{"2026-10-14"}
	summary, err = engine.Summarize(r, wednesday)
	require.NoError(t, err)
	assert.Equal(t, models.DayBlocked, summary.State)
}
