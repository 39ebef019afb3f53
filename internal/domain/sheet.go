package domain

import (
	"context"

	"salon_bot/internal/model"
)

// SheetService дописывает записи в конец листа Google Sheets
type SheetService interface {
	AppendReservation(ctx context.Context, r model.Reservation) error
}
