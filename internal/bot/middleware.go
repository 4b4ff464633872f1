package bot

import (
	"context"

	"github.com/rs/zerolog"
)

// withRecovery runs handler, logging and counting a panic instead of
// propagating it.
func (b *Bot) withRecovery(ctx context.Context, updateID int, handler func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			zerolog.Ctx(ctx).Error().
				Int("update_id", updateID).
				Interface("panic", r).
				Msg("update handler panicked")
		}
	}()
	handler(ctx)
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.tg == nil {
		return
	}
	b.tg.StopReceivingUpdates()
}
