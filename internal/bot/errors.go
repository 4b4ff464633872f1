package bot

import (
	"errors"
	"fmt"

	"quicktable/internal/database"
	"quicktable/internal/service"
)

var errUnknownAction = fmt.Errorf("%w: unknown callback action", service.ErrInvalidRequest)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		return "⚠️ Reservation not found. It may have been removed."
	case errors.Is(err, service.ErrInvalidTransition):
		return "⚠️ This reservation can no longer move to that status."
	case errors.Is(err, service.ErrInvalidRequest):
		return "⚠️ Unknown action."
	}

	return "❌ Something went wrong while updating the reservation. Please try again from the admin panel."
}
