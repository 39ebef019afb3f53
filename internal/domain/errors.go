package domain

import "errors"

var (
	ErrSlotTaken           = errors.New("slot is already taken")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidToken        = errors.New("invalid selection token")
	ErrIncompleteDraft     = errors.New("draft is incomplete")
)
