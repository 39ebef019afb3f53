package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salon_bot/internal/domain"
	"salon_bot/internal/model"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// код Postgres unique_violation
const uniqueViolation = "23505"

type ReservationRepository struct {
	DB *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{DB: db}
}

// Init идемпотентен: создаёт таблицу и добавляет недостающие колонки и индексы
func (r *ReservationRepository) Init(ctx context.Context) error {
	if err := r.DB.WithContext(ctx).AutoMigrate(&model.Reservation{}); err != nil {
		return fmt.Errorf("migrate appointments: %w", err)
	}
	return nil
}

// Вставка записи
func (r *ReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	err := r.DB.WithContext(ctx).Create(res).Error
	if isDuplicate(err) {
		return domain.ErrSlotTaken
	}
	return err
}

// Проверка занятости слота у мастера. Без времени или мастера слот считается свободным.
func (r *ReservationRepository) IsOccupied(ctx context.Context, at time.Time, staff string) (bool, error) {
	if at.IsZero() || staff == "" {
		return false, nil
	}
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Reservation{}).
		Where("appointment_time = ? AND staff = ?", at, staff).
		Count(&count).Error
	return count > 0, err
}

// Удаление всех записей с телефоном одним запросом, возвращает одну из удалённых
func (r *ReservationRepository) DeleteByPhone(ctx context.Context, phone string) (*model.Reservation, error) {
	var deleted []model.Reservation
	err := r.DB.WithContext(ctx).
		Raw("DELETE FROM appointments WHERE client_phone = ? RETURNING id, client_name, client_phone, staff", phone).
		Scan(&deleted).Error
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, domain.ErrReservationNotFound
	}
	return &deleted[0], nil
}

// Все записи по возрастанию времени
func (r *ReservationRepository) ListAll(ctx context.Context) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.DB.WithContext(ctx).Order("appointment_time ASC").Order("id ASC").Find(&list).Error
	return list, err
}

func (r *ReservationRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Получение всех записей с SheetIsSynced=false
func (r *ReservationRepository) GetUnsynced(ctx context.Context) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.DB.WithContext(ctx).Where("sheet_is_synced = ?", false).Order("id ASC").Find(&list).Error
	return list, err
}

// Обновление поля SheetIsSynced по id
func (r *ReservationRepository) MarkSynced(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Reservation{}).Where("id = ?", id).Update("sheet_is_synced", true).Error
}

// isDuplicate понимает и ошибку lib/pq, и переведённую GORM ошибку других драйверов
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
