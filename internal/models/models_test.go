package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "10:30", want: 630},
		{in: "23:59", want: 1439},
		{in: "24:00", want: 1440},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "9:00", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, FormatClock(got))
		})
	}
}

func TestWeekdayName(t *testing.T) {
	d, err := ParseDate("2026-10-14")
	require.NoError(t, err)
	assert.Equal(t, "Wednesday", WeekdayName(d))

	_, err = ParseDate("14.10.2026")
	assert.Error(t, err)
}

func TestRestaurantValidate(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		r := DefaultRestaurant()
		assert.NoError(t, r.Validate())
		assert.Equal(t, 48, r.TotalCapacity())
	})

	t.Run("MissingWeekday", func(t *testing.T) {
		r := DefaultRestaurant()
		delete(r.OperatingHours, "Monday")
		assert.ErrorIs(t, r.Validate(), ErrInvalidRestaurant)
	})

	t.Run("ClosedDayIgnoresHours", func(t *testing.T) {
		r := DefaultRestaurant()
		r.OperatingHours["Monday"] = OperatingHours{Closed: true}
		assert.NoError(t, r.Validate())
	})

	t.Run("BadSlug", func(t *testing.T) {
		r := DefaultRestaurant()
		r.Slug = "Le Bistro"
		assert.ErrorIs(t, r.Validate(), ErrInvalidRestaurant)
	})

	t.Run("ZeroInterval", func(t *testing.T) {
		r := DefaultRestaurant()
		r.BookingInterval = 0
		assert.ErrorIs(t, r.Validate(), ErrInvalidRestaurant)
	})

	t.Run("ZeroTablesAllowed", func(t *testing.T) {
		r := DefaultRestaurant()
		r.Tables.Count = 0
		assert.NoError(t, r.Validate())
		assert.Equal(t, 0, r.TotalCapacity())
	})

	t.Run("BadBlockedDate", func(t *testing.T) {
		r := DefaultRestaurant()
		r.BlockedDates = []string{"2026-13-01"}
		assert.ErrorIs(t, r.Validate(), ErrInvalidRestaurant)
	})
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusConfirmed))
	assert.True(t, StatusPending.CanTransition(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransition(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransition(StatusCancelled))
	assert.False(t, StatusCompleted.CanTransition(StatusPending))
	assert.False(t, StatusCancelled.CanTransition(StatusConfirmed))
	assert.False(t, StatusPending.CanTransition(StatusCompleted))
	assert.True(t, StatusCompleted.CanTransition(StatusCompleted))

	assert.True(t, StatusCancelled.Valid())
	assert.False(t, ReservationStatus("rejected").Valid())
}

func TestReservationJSON(t *testing.T) {
	raw := `{"id":"k3j2h1","restaurantId":"default-1","customerName":"Ana","customerPhone":"",` +
		`"date":"2026-10-14","time":"19:00","partySize":4,"specialRequests":"window",` +
		`"status":"pending","createdAt":1760000000123,"updatedAt":1760000000123}`

	var r Reservation
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, "default-1", r.RestaurantID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, int64(1760000000123), r.CreatedAt.Millis())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestTimestampZero(t *testing.T) {
	var ts Timestamp
	assert.Equal(t, int64(0), ts.Millis())

	ts = NewTimestamp(time.UnixMilli(42).Add(time.Microsecond))
	assert.Equal(t, int64(42), ts.Millis())
}
