package models

// BookingRequest is what the customer page or the staff form submits.
type BookingRequest struct {
	ID              string `json:"id,omitempty"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"partySize"`
	SpecialRequests string `json:"specialRequests"`
	// SendWhatsApp asks for a confirmation link to the customer (staff form only).
	SendWhatsApp bool `json:"sendWhatsApp"`
}

// BookingResult carries the stored reservation and the chat deep link, if any.
type BookingResult struct {
	Reservation *Reservation `json:"reservation"`
	WhatsAppURL string       `json:"whatsappUrl,omitempty"`
	Message     string       `json:"message,omitempty"`
}
