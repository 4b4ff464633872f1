package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"quicktable/internal/config"
	"quicktable/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot notifies staff chats about reservations and lets them confirm or
// cancel from inline buttons.
type Bot struct {
	tg           domain.TelegramSender
	reservations domain.ReservationService
	chatIDs      []int64
	staff        map[int64]bool
	location     *time.Location
	metrics      *Metrics
	logger       *zerolog.Logger

	deliveredMu sync.Mutex
	delivered   map[string]map[int64]bool
}

func NewBot(
	tg domain.TelegramSender,
	reservations domain.ReservationService,
	cfg config.TelegramConfig,
	location *time.Location,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	if location == nil {
		location = time.UTC
	}

	staff := make(map[int64]bool, len(cfg.StaffChatIDs))
	for _, id := range cfg.StaffChatIDs {
		staff[id] = true
	}

	return &Bot{
		tg:           tg,
		reservations: reservations,
		chatIDs:      cfg.StaffChatIDs,
		staff:        staff,
		location:     location,
		metrics:      metrics,
		logger:       logger,
		delivered:    make(map[string]map[int64]bool),
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Int("staff_chats", len(b.chatIDs)).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(updateCtx, update.UpdateID, func(ctx context.Context) {
		switch {
		case update.CallbackQuery != nil:
			b.countUpdate("callback")
			b.handleCallbackQuery(ctx, update.CallbackQuery)
		case update.Message != nil:
			b.countUpdate("message")
			b.handleMessage(ctx, update.Message)
		}
	})
}

func (b *Bot) isStaff(chatID int64) bool {
	return b.staff[chatID]
}

func (b *Bot) countUpdate(kind string) {
	if b.metrics != nil {
		b.metrics.UpdatesProcessed.WithLabelValues(kind).Inc()
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}
