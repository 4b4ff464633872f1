package notify

import (
	"net/url"
	"strings"
	"testing"

	"quicktable/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReservation() *models.Reservation {
	return &models.Reservation{
		ID:            "r1",
		RestaurantID:  "default-1",
		CustomerName:  "Ana",
		CustomerPhone: "+55 (11) 98765-4321",
		Date:          "2026-10-14",
		Time:          "19:00",
		PartySize:     4,
	}
}

func decodeText(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("text")
}

func TestCleanPhone(t *testing.T) {
	assert.Equal(t, "5511987654321", CleanPhone("+55 (11) 98765-4321"))
	assert.Equal(t, "", CleanPhone("n/a"))
	assert.Equal(t, "", CleanPhone(""))
}

func TestLink(t *testing.T) {
	link := Link("+1 234-567-890", "Hi & welcome = yes")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/1234567890?text="))
	assert.NotContains(t, link, "+")
	assert.Equal(t, "Hi & welcome = yes", decodeText(t, link))

	assert.Equal(t, "", Link("", "hello"))
}

func TestCustomerRequestMessage(t *testing.T) {
	r := models.DefaultRestaurant()
	res := testReservation()

	msg := CustomerRequestMessage(&r, res)
	assert.Contains(t, msg, "Hello Le Bistro Charmant!")
	assert.Contains(t, msg, "📅 Date: Wednesday, October 14, 2026")
	assert.Contains(t, msg, "⏰ Time: 19:00")
	assert.Contains(t, msg, "👥 Party Size: 4 people")
	assert.Contains(t, msg, "👤 Name: Ana")
	assert.NotContains(t, msg, "Special Requests")

	res.SpecialRequests = "window seat"
	msg = CustomerRequestMessage(&r, res)
	assert.Contains(t, msg, "📝 Special Requests: window seat")
	assert.True(t, strings.HasSuffix(msg, "Please confirm availability. Thank you!"))

	link := BookingLink(&r, res)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/1234567890?text="))
	assert.Equal(t, msg, decodeText(t, link))
}

func TestConfirmationLink(t *testing.T) {
	r := models.DefaultRestaurant()
	res := testReservation()

	link := ConfirmationLink(&r, res)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/5511987654321?text="))
	text := decodeText(t, link)
	assert.Contains(t, text, "This is Le Bistro Charmant. Your reservation has been confirmed:")
	assert.Contains(t, text, "We look forward to seeing you!")

	res.CustomerPhone = ""
	assert.Equal(t, "", ConfirmationLink(&r, res))
}

func TestContactLink(t *testing.T) {
	r := models.DefaultRestaurant()
	res := testReservation()

	link := ContactLink(&r, res)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/5511987654321?"))
	assert.Equal(t, "Hello Ana, this is Le Bistro Charmant regarding your reservation for Oct 14 at 19:00.", decodeText(t, link))

	res.CustomerPhone = ""
	assert.True(t, strings.HasPrefix(ContactLink(&r, res), "https://wa.me/1234567890?"))
}
