// Package notify renders the WhatsApp deep links exchanged between guests
// and restaurant staff.
package notify

import (
	"fmt"
	"net/url"
	"strings"

	"quicktable/internal/models"
)

const waBaseURL = "https://wa.me/"

// CleanPhone keeps only the ASCII digits of a phone number.
func CleanPhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Link builds a wa.me URL opening a chat with phone and a pre-filled message.
// It returns "" when phone has no digits.
func Link(phone, message string) string {
	digits := CleanPhone(phone)
	if digits == "" {
		return ""
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return waBaseURL + digits + "?text=" + text
}

func longDate(date string) string {
	t, err := models.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02, 2006")
}

func shortDate(date string) string {
	t, err := models.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Jan 02")
}

// CustomerRequestMessage is what a guest sends the restaurant after booking online.
func CustomerRequestMessage(r *models.Restaurant, res *models.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! 🍽️\n\n", r.Name)
	b.WriteString("I'd like to make a reservation:\n\n")
	fmt.Fprintf(&b, "📅 Date: %s\n", longDate(res.Date))
	fmt.Fprintf(&b, "⏰ Time: %s\n", res.Time)
	fmt.Fprintf(&b, "👥 Party Size: %d people\n", res.PartySize)
	fmt.Fprintf(&b, "👤 Name: %s\n", res.CustomerName)
	if res.SpecialRequests != "" {
		fmt.Fprintf(&b, "\n📝 Special Requests: %s\n", res.SpecialRequests)
	}
	b.WriteString("\nPlease confirm availability. Thank you!")
	return b.String()
}

// StaffConfirmationMessage is sent by staff to a guest booked by hand.
func StaffConfirmationMessage(r *models.Restaurant, res *models.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! 🍽️\n\n", res.CustomerName)
	fmt.Fprintf(&b, "This is %s. Your reservation has been confirmed:\n\n", r.Name)
	fmt.Fprintf(&b, "📅 Date: %s\n", longDate(res.Date))
	fmt.Fprintf(&b, "⏰ Time: %s\n", res.Time)
	fmt.Fprintf(&b, "👥 Party Size: %d people\n", res.PartySize)
	b.WriteString("\nWe look forward to seeing you!")
	return b.String()
}

// ContactMessage opens a follow-up conversation about an existing reservation.
func ContactMessage(r *models.Restaurant, res *models.Reservation) string {
	return fmt.Sprintf("Hello %s, this is %s regarding your reservation for %s at %s.",
		res.CustomerName, r.Name, shortDate(res.Date), res.Time)
}

// BookingLink is the guest-to-restaurant link for an online request.
func BookingLink(r *models.Restaurant, res *models.Reservation) string {
	return Link(r.WhatsappNumber, CustomerRequestMessage(r, res))
}

// ConfirmationLink is the staff-to-guest link, empty when the guest left no phone.
func ConfirmationLink(r *models.Restaurant, res *models.Reservation) string {
	return Link(res.CustomerPhone, StaffConfirmationMessage(r, res))
}

// ContactLink messages the guest, or the restaurant's own number when the
// guest phone is empty.
func ContactLink(r *models.Restaurant, res *models.Reservation) string {
	phone := res.CustomerPhone
	if CleanPhone(phone) == "" {
		phone = r.WhatsappNumber
	}
	return Link(phone, ContactMessage(r, res))
}
