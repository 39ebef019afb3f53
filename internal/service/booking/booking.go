package booking

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"salon_bot/internal/config"
	"salon_bot/internal/domain"
	"salon_bot/internal/model"
	"salon_bot/internal/validation"
	"salon_bot/pkg/metrics"
)

// Service правила записи: какие месяцы, дни и часы можно выбрать, и операции над записями
type Service struct {
	repo        domain.ReservationRepo
	staff       []string
	firstHour   int
	lastHour    int
	monthsAhead int
	password    []byte
	now         func() time.Time
}

type Option func(*Service)

// WithClock подменяет текущее время, нужно для тестов
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo domain.ReservationRepo, cfg config.SalonConfig, adminPassword string, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		staff:       append([]string(nil), cfg.Staff...),
		firstHour:   cfg.FirstHour,
		lastHour:    cfg.LastHour,
		monthsAhead: cfg.MonthsAhead,
		password:    []byte(adminPassword),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Location() *time.Location {
	return s.now().Location()
}

func (s *Service) Staff() []string {
	return s.staff
}

// StaffByIndex мастер по номеру в списке
func (s *Service) StaffByIndex(i int) (string, bool) {
	if i < 0 || i >= len(s.staff) {
		return "", false
	}
	return s.staff[i], true
}

func (s *Service) HasStaff(name string) bool {
	for _, st := range s.staff {
		if st == name {
			return true
		}
	}
	return false
}

// InitStorage идемпотентная инициализация хранилища
func (s *Service) InitStorage(ctx context.Context) error {
	if err := s.repo.Init(ctx); err != nil {
		metrics.StorageErrors.WithLabelValues("init").Inc()
		return err
	}
	return nil
}

// FreeSlots часы выбранного дня, которые ещё не прошли и не заняты у мастера
func (s *Service) FreeSlots(ctx context.Context, day time.Time, staff string) ([]time.Time, error) {
	now := s.now()
	var free []time.Time
	for _, at := range Slots(day, s.firstHour, s.lastHour) {
		if !at.After(now) {
			continue
		}
		busy, err := s.repo.IsOccupied(ctx, at, staff)
		if err != nil {
			metrics.StorageErrors.WithLabelValues("is_occupied").Inc()
			return nil, fmt.Errorf("check slot %s: %w", at.Format(DateTimeLayout), err)
		}
		if !busy {
			free = append(free, at)
		}
	}
	return free, nil
}

// Bookable лежит ли время в сетке слотов, в будущем и внутри окна записи на monthsAhead месяцев
func (s *Service) Bookable(at time.Time) bool {
	if at.Minute() != 0 || at.Second() != 0 || at.Nanosecond() != 0 {
		return false
	}
	if at.Hour() < s.firstHour || at.Hour() > s.lastHour {
		return false
	}
	now := s.now()
	if !at.Before(startOfMonth(now).AddDate(0, s.monthsAhead, 0)) {
		return false
	}
	return at.After(now)
}

// Book проверяет слот и сохраняет запись. ErrSlotTaken если слот успели занять.
func (s *Service) Book(ctx context.Context, name, phone string, at time.Time, staff string) (*model.Reservation, error) {
	if name == "" || staff == "" || at.IsZero() || !validation.ValidPhone(phone) {
		return nil, domain.ErrIncompleteDraft
	}
	if !s.HasStaff(staff) || !s.Bookable(at) {
		return nil, domain.ErrInvalidToken
	}

	busy, err := s.repo.IsOccupied(ctx, at, staff)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("is_occupied").Inc()
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if busy {
		metrics.SlotConflicts.Inc()
		return nil, domain.ErrSlotTaken
	}

	res := &model.Reservation{
		ClientName:      name,
		ClientPhone:     phone,
		AppointmentTime: at,
		Staff:           staff,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			metrics.SlotConflicts.Inc()
			return nil, err
		}
		metrics.StorageErrors.WithLabelValues("create").Inc()
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	metrics.ReservationsCreated.Inc()
	return res, nil
}

// Cancel удаляет записи по телефону. ErrReservationNotFound если записей нет.
func (s *Service) Cancel(ctx context.Context, phone string) (*model.Reservation, error) {
	res, err := s.repo.DeleteByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			return nil, err
		}
		metrics.StorageErrors.WithLabelValues("delete_by_phone").Inc()
		return nil, fmt.Errorf("delete reservation: %w", err)
	}
	metrics.ReservationsCancelled.Inc()
	return res, nil
}

func (s *Service) List(ctx context.Context) ([]model.Reservation, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_all").Inc()
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// CheckPassword побайтовое сравнение с паролем администратора
func (s *Service) CheckPassword(input string) bool {
	ok := subtle.ConstantTimeCompare([]byte(input), s.password) == 1
	if ok {
		metrics.AdminLogins.WithLabelValues("ok").Inc()
	} else {
		metrics.AdminLogins.WithLabelValues("denied").Inc()
	}
	return ok
}
