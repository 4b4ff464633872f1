package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quicktable/internal/models"
	"quicktable/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	actionConfirm  = "confirm"
	actionCancel   = "cancel"
	actionComplete = "complete"
)

// Name identifies staff chat notifications as a forward sink.
func (b *Bot) Name() string { return "telegram" }

// Deliver posts the reservation to every staff chat. Chats that already got
// this notification on an earlier attempt are skipped, and the remaining
// errors are joined so the worker retries only what failed.
func (b *Bot) Deliver(ctx context.Context, kind string, snap worker.Snapshot) error {
	var header string
	switch kind {
	case models.ForwardCreated:
		header = "🆕 New reservation"
	case models.ForwardStatusChanged:
		header = "🔄 Reservation " + string(snap.Reservation.Status)
	default:
		return fmt.Errorf("unsupported forward kind %q", kind)
	}

	text := header + "\n\n" + formatReservation(&snap.Reservation, snap.RestaurantName)
	keyboard := actionKeyboard(&snap.Reservation)
	key := deliveryKey(kind, &snap.Reservation)

	var errs []error
	for _, chatID := range b.chatIDs {
		if b.wasDelivered(key, chatID) {
			continue
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		if _, err := b.tg.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		b.markDelivered(key, chatID)
		if b.metrics != nil {
			b.metrics.NotificationsSent.Inc()
		}
	}
	if len(errs) == 0 {
		b.forgetDelivery(key)
	}
	return errors.Join(errs...)
}

// maxTrackedDeliveries bounds the partial-delivery memory; beyond it the
// oldest state is dropped and a retry may repeat a message.
const maxTrackedDeliveries = 1024

func deliveryKey(kind string, r *models.Reservation) string {
	return kind + ":" + r.ID + ":" + strconv.FormatInt(r.UpdatedAt.Millis(), 10)
}

func (b *Bot) wasDelivered(key string, chatID int64) bool {
	b.deliveredMu.Lock()
	defer b.deliveredMu.Unlock()
	return b.delivered[key][chatID]
}

func (b *Bot) markDelivered(key string, chatID int64) {
	b.deliveredMu.Lock()
	defer b.deliveredMu.Unlock()
	chats, ok := b.delivered[key]
	if !ok {
		if len(b.delivered) >= maxTrackedDeliveries {
			b.delivered = make(map[string]map[int64]bool)
		}
		chats = make(map[int64]bool)
		b.delivered[key] = chats
	}
	chats[chatID] = true
}

func (b *Bot) forgetDelivery(key string) {
	b.deliveredMu.Lock()
	defer b.deliveredMu.Unlock()
	delete(b.delivered, key)
}

// actionKeyboard offers the next steps for r, nil when it is settled.
func actionKeyboard(r *models.Reservation) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	switch r.Status {
	case models.StatusPending:
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", callbackData(actionConfirm, r.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackData(actionCancel, r.ID)),
		)
	case models.StatusConfirmed:
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("🏁 Completed", callbackData(actionComplete, r.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackData(actionCancel, r.ID)),
		)
	default:
		return nil
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(row)
	return &keyboard
}

func callbackData(action, id string) string {
	return action + ":" + id
}

func formatReservation(r *models.Reservation, restaurantName string) string {
	var sb strings.Builder
	if restaurantName != "" {
		sb.WriteString("🍽 " + restaurantName + "\n")
	}
	fmt.Fprintf(&sb, "📅 %s at %s\n", displayDate(r.Date), r.Time)
	fmt.Fprintf(&sb, "👥 Party of %d\n", r.PartySize)
	sb.WriteString("👤 " + r.CustomerName)
	if r.CustomerPhone != "" {
		sb.WriteString(", " + r.CustomerPhone)
	}
	sb.WriteString("\n")
	if r.SpecialRequests != "" {
		sb.WriteString("📝 " + r.SpecialRequests + "\n")
	}
	fmt.Fprintf(&sb, "Status: %s\nID: %s", r.Status, r.ID)
	return sb.String()
}

func displayDate(date string) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 02, 2006")
}
