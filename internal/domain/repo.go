package domain

import (
	"context"
	"time"

	"salon_bot/internal/model"
)

type ReservationRepo interface {
	// Создание таблицы, если её нет, и добавление новых колонок
	Init(ctx context.Context) error

	// Вставка записи. ErrSlotTaken, если слот у мастера уже занят
	Create(ctx context.Context, r *model.Reservation) error

	// Занят ли слот у мастера
	IsOccupied(ctx context.Context, at time.Time, staff string) (bool, error)

	// Удаление всех записей по телефону. ErrReservationNotFound, если ничего не удалено
	DeleteByPhone(ctx context.Context, phone string) (*model.Reservation, error)

	// Все записи по возрастанию времени
	ListAll(ctx context.Context) ([]model.Reservation, error)

	Ping(ctx context.Context) error
}

// SyncRepo используется выгрузкой в Google Sheets
type SyncRepo interface {
	GetUnsynced(ctx context.Context) ([]model.Reservation, error)
	MarkSynced(ctx context.Context, id uint) error
}
