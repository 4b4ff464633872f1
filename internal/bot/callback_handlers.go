package bot

import (
	"context"
	"strings"

	"quicktable/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var callbackStatus = map[string]models.ReservationStatus{
	actionConfirm:  models.StatusConfirmed,
	actionCancel:   models.StatusCancelled,
	actionComplete: models.StatusCompleted,
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	if !b.isStaff(chatID) {
		b.answerCallback(callback.ID, "Not allowed")
		return
	}

	action, id, ok := strings.Cut(callback.Data, ":")
	status, known := callbackStatus[action]
	if !ok || !known || id == "" {
		b.answerCallback(callback.ID, b.getErrorMessage(errUnknownAction))
		return
	}

	log := zerolog.Ctx(ctx).With().Str("reservation_id", id).Str("status", string(status)).Logger()

	updated, err := b.reservations.UpdateStatus(ctx, id, status)
	if err != nil {
		log.Warn().Err(err).Msg("status change from telegram failed")
		b.answerCallback(callback.ID, b.getErrorMessage(err))
		return
	}
	if b.metrics != nil {
		b.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	}
	b.answerCallback(callback.ID, "Marked "+string(updated.Status))

	edit := tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID,
		"✔️ Updated by "+displayName(callback.From)+"\n\n"+formatReservation(updated, ""))
	if keyboard := actionKeyboard(updated); keyboard != nil {
		edit.ReplyMarkup = keyboard
	}
	if _, err := b.tg.Send(edit); err != nil {
		log.Error().Err(err).Msg("edit notification")
	}
	log.Info().Msg("status changed from telegram")
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Debug().Err(err).Msg("answer callback")
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return "staff"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return "staff"
}
