package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salon_bot/internal/model"

	"go.uber.org/zap/zaptest"
)

type fakeSheet struct {
	mu     sync.Mutex
	rows   []model.Reservation
	failOn uint
}

func (f *fakeSheet) AppendReservation(ctx context.Context, r model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == f.failOn {
		return errors.New("quota exceeded")
	}
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeSheet) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeRepo struct {
	mu       sync.Mutex
	list     []model.Reservation
	getErr   error
	markErrs map[uint]error
}

func (f *fakeRepo) GetUnsynced(ctx context.Context) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []model.Reservation
	for _, r := range f.list {
		if !r.SheetIsSynced {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkSynced(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErrs[id]; err != nil {
		return err
	}
	for i := range f.list {
		if f.list[i].ID == id {
			f.list[i].SheetIsSynced = true
		}
	}
	return nil
}

func reservations(ids ...uint) []model.Reservation {
	out := make([]model.Reservation, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Reservation{ID: id, ClientName: "client", Staff: "A"})
	}
	return out
}

func TestSyncUnsynced(t *testing.T) {
	sheet := &fakeSheet{}
	repo := &fakeRepo{list: reservations(1, 2, 3)}
	e := NewExporter(sheet, repo, zaptest.NewLogger(t), time.Hour, nil)

	if n := e.SyncUnsynced(context.Background()); n != 3 {
		t.Fatalf("ожидали 3 выгруженные записи, получили %d", n)
	}
	if n := e.SyncUnsynced(context.Background()); n != 0 {
		t.Errorf("повторная выгрузка не должна дублировать строки, выгружено %d", n)
	}
	if sheet.count() != 3 {
		t.Errorf("в таблице %d строк, ожидали 3", sheet.count())
	}
}

func TestSyncUnsynced_SheetErrorStopsBatch(t *testing.T) {
	sheet := &fakeSheet{failOn: 2}
	repo := &fakeRepo{list: reservations(1, 2, 3)}
	e := NewExporter(sheet, repo, zaptest.NewLogger(t), time.Hour, nil)

	if n := e.SyncUnsynced(context.Background()); n != 1 {
		t.Fatalf("ожидали 1 выгруженную запись, получили %d", n)
	}

	sheet.failOn = 0
	if n := e.SyncUnsynced(context.Background()); n != 2 {
		t.Errorf("оставшиеся записи должны выгрузиться, получили %d", n)
	}
}

func TestSyncUnsynced_StorageErrors(t *testing.T) {
	sheet := &fakeSheet{}
	repo := &fakeRepo{getErr: errors.New("db down")}
	e := NewExporter(sheet, repo, zaptest.NewLogger(t), time.Hour, nil)
	if n := e.SyncUnsynced(context.Background()); n != 0 {
		t.Errorf("при ошибке хранилища ничего не выгружается, получили %d", n)
	}

	repo = &fakeRepo{list: reservations(1, 2, 3), markErrs: map[uint]error{1: errors.New("db down")}}
	sheet = &fakeSheet{}
	e = NewExporter(sheet, repo, zaptest.NewLogger(t), time.Hour, nil)
	if n := e.SyncUnsynced(context.Background()); n != 0 {
		t.Errorf("после ошибки отметки выгрузка должна остановиться, отмечено %d", n)
	}
	if sheet.count() != 1 {
		t.Errorf("в таблицу должна попасть только первая запись, получили %d", sheet.count())
	}

	// следующий проход повторяет неотмеченную запись и идёт дальше по порядку
	repo.mu.Lock()
	repo.markErrs = nil
	repo.mu.Unlock()
	if n := e.SyncUnsynced(context.Background()); n != 3 {
		t.Errorf("ожидали 3 отмеченные записи, получили %d", n)
	}
	sheet.mu.Lock()
	defer sheet.mu.Unlock()
	var ids []uint
	for _, r := range sheet.rows {
		ids = append(ids, r.ID)
	}
	if len(ids) != 4 || ids[1] != 1 || ids[2] != 2 || ids[3] != 3 {
		t.Errorf("порядок строк в таблице нарушен: %v", ids)
	}
}

func TestForceUpdate_TriggersSync(t *testing.T) {
	sheet := &fakeSheet{}
	repo := &fakeRepo{}
	force := make(chan struct{}, 1)
	e := NewExporter(sheet, repo, zaptest.NewLogger(t), time.Hour, force)

	e.Start(context.Background())
	defer e.Stop()

	// ждём первую синхронизацию при старте
	time.Sleep(20 * time.Millisecond)

	repo.mu.Lock()
	repo.list = reservations(1)
	repo.mu.Unlock()
	e.ForceUpdate()

	deadline := time.Now().Add(time.Second)
	for sheet.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sheet.count() != 1 {
		t.Errorf("ForceUpdate не запустил выгрузку")
	}
}

func TestStop_ContextCancel(t *testing.T) {
	e := NewExporter(&fakeSheet{}, &fakeRepo{}, zaptest.NewLogger(t), time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop не дождался завершения")
	}
}
