package booking

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"salon_bot/internal/config"
	"salon_bot/internal/domain"
	"salon_bot/internal/model"
)

// memRepo хранилище в памяти с той же семантикой, что и у Postgres
type memRepo struct {
	rows   []model.Reservation
	nextID uint
	err    error
}

func (m *memRepo) Init(ctx context.Context) error { return m.err }
func (m *memRepo) Ping(ctx context.Context) error { return m.err }

func (m *memRepo) Create(ctx context.Context, r *model.Reservation) error {
	if m.err != nil {
		return m.err
	}
	for _, row := range m.rows {
		if row.AppointmentTime.Equal(r.AppointmentTime) && row.Staff == r.Staff {
			return domain.ErrSlotTaken
		}
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	m.rows = append(m.rows, *r)
	return nil
}

func (m *memRepo) IsOccupied(ctx context.Context, at time.Time, staff string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if at.IsZero() || staff == "" {
		return false, nil
	}
	for _, row := range m.rows {
		if row.AppointmentTime.Equal(at) && row.Staff == staff {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) DeleteByPhone(ctx context.Context, phone string) (*model.Reservation, error) {
	if m.err != nil {
		return nil, m.err
	}
	var deleted *model.Reservation
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.ClientPhone == phone {
			if deleted == nil {
				r := row
				deleted = &r
			}
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	if deleted == nil {
		return nil, domain.ErrReservationNotFound
	}
	return deleted, nil
}

func (m *memRepo) ListAll(ctx context.Context) ([]model.Reservation, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := append([]model.Reservation(nil), m.rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentTime.Before(out[j].AppointmentTime) })
	return out, nil
}

var testSalon = config.SalonConfig{
	Staff:       []string{"A", "B"},
	FirstHour:   9,
	LastHour:    20,
	MonthsAhead: 12,
}

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2024, month, day, hour, minute, 0, 0, time.UTC)
}

func newTestService(repo *memRepo, now time.Time) *Service {
	return NewService(repo, testSalon, "s3cret", WithClock(func() time.Time { return now }))
}

func TestFreeSlots_FutureDay(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, at(time.June, 1, 12, 0))

	slots, err := svc.FreeSlots(context.Background(), at(time.June, 10, 0, 0), "A")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if len(slots) != 12 {
		t.Fatalf("ожидали 12 слотов 9:00-20:00, получили %d", len(slots))
	}
	if slots[0].Hour() != 9 || slots[len(slots)-1].Hour() != 20 {
		t.Errorf("границы слотов %v..%v", slots[0], slots[len(slots)-1])
	}
	for _, s := range slots {
		if s.Minute() != 0 {
			t.Errorf("минуты слота должны быть :00, получили %v", s)
		}
	}
}

func TestFreeSlots_TodaySkipsPast(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, at(time.June, 10, 14, 30))

	slots, err := svc.FreeSlots(context.Background(), at(time.June, 10, 0, 0), "A")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	// 15..20
	if len(slots) != 6 || slots[0].Hour() != 15 {
		t.Errorf("ожидали 6 слотов с 15:00, получили %v", slots)
	}
}

func TestFreeSlots_ExactHourIsPast(t *testing.T) {
	svc := newTestService(&memRepo{}, at(time.June, 10, 20, 0))
	slots, err := svc.FreeSlots(context.Background(), at(time.June, 10, 0, 0), "A")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("слот 20:00 в 20:00 уже прошёл, получили %v", slots)
	}
}

func TestFreeSlots_ExcludesOccupied(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, at(time.June, 1, 12, 0))
	ctx := context.Background()

	if _, err := svc.Book(ctx, "Ivan", "+79991234567", at(time.June, 10, 14, 0), "A"); err != nil {
		t.Fatalf("Book: %v", err)
	}

	slots, err := svc.FreeSlots(ctx, at(time.June, 10, 0, 0), "A")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	for _, s := range slots {
		if s.Equal(at(time.June, 10, 14, 0)) {
			t.Error("занятый слот не должен предлагаться")
		}
	}
	if len(slots) != 11 {
		t.Errorf("ожидали 11 свободных слотов, получили %d", len(slots))
	}

	other, _ := svc.FreeSlots(ctx, at(time.June, 10, 0, 0), "B")
	if len(other) != 12 {
		t.Errorf("у другого мастера все 12 слотов свободны, получили %d", len(other))
	}
}

func TestFreeSlots_StorageError(t *testing.T) {
	repo := &memRepo{err: errors.New("connection lost")}
	svc := newTestService(repo, at(time.June, 1, 12, 0))
	if _, err := svc.FreeSlots(context.Background(), at(time.June, 10, 0, 0), "A"); err == nil {
		t.Fatal("ожидали ошибку хранилища")
	}
}

func TestBook_SecondAttemptObservesOccupied(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, at(time.June, 1, 12, 0))
	ctx := context.Background()
	slot := at(time.June, 10, 14, 0)

	res, err := svc.Book(ctx, "Ivan", "+79991234567", slot, "A")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if res.ClientName != "Ivan" || res.ClientPhone != "+79991234567" || res.Staff != "A" || !res.AppointmentTime.Equal(slot) {
		t.Errorf("неверная запись: %+v", res)
	}

	busy, _ := repo.IsOccupied(ctx, slot, "A")
	if !busy {
		t.Fatal("после записи слот должен быть занят")
	}
	if _, err := svc.Book(ctx, "Petr", "89990000000", slot, "A"); !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("ожидали ErrSlotTaken, получили %v", err)
	}
	if len(repo.rows) != 1 {
		t.Errorf("ожидали одну запись, получили %d", len(repo.rows))
	}
}

func TestBook_Rejects(t *testing.T) {
	svc := newTestService(&memRepo{}, at(time.June, 1, 12, 0))
	ctx := context.Background()

	tests := []struct {
		name  string
		cname string
		phone string
		at    time.Time
		staff string
		want  error
	}{
		{"no name", "", "+79991234567", at(time.June, 10, 14, 0), "A", domain.ErrIncompleteDraft},
		{"bad phone", "Ivan", "12345", at(time.June, 10, 14, 0), "A", domain.ErrIncompleteDraft},
		{"no time", "Ivan", "+79991234567", time.Time{}, "A", domain.ErrIncompleteDraft},
		{"unknown staff", "Ivan", "+79991234567", at(time.June, 10, 14, 0), "Z", domain.ErrInvalidToken},
		{"past", "Ivan", "+79991234567", at(time.May, 10, 14, 0), "A", domain.ErrInvalidToken},
		{"off hours", "Ivan", "+79991234567", at(time.June, 10, 21, 0), "A", domain.ErrInvalidToken},
		{"not on the hour", "Ivan", "+79991234567", at(time.June, 10, 14, 30), "A", domain.ErrInvalidToken},
		{"beyond booking window", "Ivan", "+79991234567", time.Date(2025, time.June, 1, 14, 0, 0, 0, time.UTC), "A", domain.ErrInvalidToken},
		{"far future", "Ivan", "+79991234567", time.Date(2030, time.January, 5, 14, 0, 0, 0, time.UTC), "A", domain.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Book(ctx, tt.cname, tt.phone, tt.at, tt.staff); !errors.Is(err, tt.want) {
				t.Errorf("ожидали %v, получили %v", tt.want, err)
			}
		})
	}
}

func TestBookable_Window(t *testing.T) {
	svc := newTestService(&memRepo{}, at(time.June, 1, 12, 0))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"later today", at(time.June, 1, 14, 0), true},
		{"last month of window", time.Date(2025, time.May, 31, 20, 0, 0, 0, time.UTC), true},
		{"first day after window", time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC), false},
		{"years ahead", time.Date(2030, time.January, 5, 14, 0, 0, 0, time.UTC), false},
		{"already passed", at(time.June, 1, 12, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Bookable(tt.at); got != tt.want {
				t.Errorf("Bookable(%s) = %v, ожидали %v", tt.at.Format(DateTimeLayout), got, tt.want)
			}
		})
	}
}

func TestCancel(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, at(time.June, 1, 12, 0))
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, "+79991234567"); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("ожидали ErrReservationNotFound, получили %v", err)
	}

	_, _ = svc.Book(ctx, "Ivan", "+79991234567", at(time.June, 10, 14, 0), "A")
	_, _ = svc.Book(ctx, "Olga", "89990000000", at(time.June, 10, 15, 0), "B")

	res, err := svc.Cancel(ctx, "+79991234567")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.ClientName != "Ivan" || res.Staff != "A" {
		t.Errorf("ожидали Ivan/A, получили %s/%s", res.ClientName, res.Staff)
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 || list[0].ClientName != "Olga" {
		t.Errorf("должна остаться только запись Olga: %+v", list)
	}
}

func TestCancel_StorageError(t *testing.T) {
	svc := newTestService(&memRepo{err: errors.New("down")}, at(time.June, 1, 12, 0))
	_, err := svc.Cancel(context.Background(), "+79991234567")
	if err == nil || errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("ожидали ошибку хранилища, получили %v", err)
	}
}

func TestList_Ordered(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, at(time.June, 1, 12, 0))
	ctx := context.Background()

	list, err := svc.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("ожидали пустой список, получили %v, %v", list, err)
	}

	_, _ = svc.Book(ctx, "C", "89990000003", at(time.June, 12, 9, 0), "A")
	_, _ = svc.Book(ctx, "A", "89990000001", at(time.June, 10, 9, 0), "A")
	_, _ = svc.Book(ctx, "B", "89990000002", at(time.June, 10, 18, 0), "B")

	list, err = svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names string
	for _, r := range list {
		names += r.ClientName
	}
	if names != "ABC" {
		t.Errorf("ожидали порядок ABC, получили %s", names)
	}
}

func TestCheckPassword(t *testing.T) {
	svc := newTestService(&memRepo{}, time.Now())
	if !svc.CheckPassword("s3cret") {
		t.Error("верный пароль отклонён")
	}
	for _, wrong := range []string{"", "s3cre", "s3cret ", "S3CRET", "s3cret\n"} {
		if svc.CheckPassword(wrong) {
			t.Errorf("пароль %q не должен подходить", wrong)
		}
	}
}

func TestStaffByIndex(t *testing.T) {
	svc := newTestService(&memRepo{}, time.Now())
	if s, ok := svc.StaffByIndex(1); !ok || s != "B" {
		t.Errorf("StaffByIndex(1) = %q, %v", s, ok)
	}
	for _, i := range []int{-1, 2} {
		if _, ok := svc.StaffByIndex(i); ok {
			t.Errorf("StaffByIndex(%d) должен быть вне диапазона", i)
		}
	}
}
