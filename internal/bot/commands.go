package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quicktable/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `QuickTable staff bot

/today <restaurant-id> - today's reservations
/pending <restaurant-id> - requests waiting for confirmation
/stats <restaurant-id> - today's dashboard

New reservations arrive here with Confirm and Cancel buttons.`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, helpText)
		return
	}

	if !b.isStaff(chatID) {
		b.sendMessage(chatID, "This chat is not registered for staff notifications.")
		return
	}

	restaurantID := strings.TrimSpace(msg.CommandArguments())
	if restaurantID == "" {
		b.sendMessage(chatID, "Usage: /"+msg.Command()+" <restaurant-id>")
		return
	}

	switch msg.Command() {
	case "today":
		b.handleToday(ctx, chatID, restaurantID)
	case "pending":
		b.handlePending(ctx, chatID, restaurantID)
	case "stats":
		b.handleStats(ctx, chatID, restaurantID)
	default:
		b.sendMessage(chatID, helpText)
	}
}

func (b *Bot) today() string {
	return models.FormatDate(time.Now().In(b.location))
}

func (b *Bot) handleToday(ctx context.Context, chatID int64, restaurantID string) {
	date := b.today()
	list, err := b.reservations.ListBetween(ctx, restaurantID, date, date)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(list) == 0 {
		b.sendMessage(chatID, "No reservations for "+displayDate(date)+".")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 %s\n", displayDate(date))
	for _, r := range list {
		fmt.Fprintf(&sb, "\n%s · %d · %s (%s)", r.Time, r.PartySize, r.CustomerName, r.Status)
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) handlePending(ctx context.Context, chatID int64, restaurantID string) {
	list, err := b.reservations.List(ctx, restaurantID, models.ReservationFilter{Status: models.StatusPending})
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(list) == 0 {
		b.sendMessage(chatID, "No pending requests.")
		return
	}

	for i := range list {
		msg := tgbotapi.NewMessage(chatID, formatReservation(&list[i], ""))
		if keyboard := actionKeyboard(&list[i]); keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		if _, err := b.tg.Send(msg); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send pending reservation")
		}
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, restaurantID string) {
	stats, err := b.reservations.Dashboard(ctx, restaurantID, "")
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(
		"📊 %s\nGuests today: %d\nBookings today: %d\nPending requests: %d\nConfirmed today: %d",
		displayDate(stats.Date), stats.TodaysGuests, stats.TodaysBookings, stats.PendingRequests, stats.ConfirmedToday,
	))
}
