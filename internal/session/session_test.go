package session

import (
	"testing"
	"time"
)

func TestStore_UpdateAndGet(t *testing.T) {
	s := NewStore(time.Hour, time.Hour)

	if d := s.Get(1); d != (Draft{}) {
		t.Fatalf("ожидали пустой черновик, получили %+v", d)
	}

	s.Update(1, func(d *Draft) { d.Staff = "A" })
	s.Update(1, func(d *Draft) { d.Name = "Ivan" })

	d := s.Get(1)
	if d.Staff != "A" || d.Name != "Ivan" {
		t.Errorf("черновик потерял данные: %+v", d)
	}
	if other := s.Get(2); other != (Draft{}) {
		t.Errorf("черновики пользователей не должны пересекаться: %+v", other)
	}
	if s.Len() != 1 {
		t.Errorf("ожидали 1 черновик, получили %d", s.Len())
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(time.Hour, time.Hour)
	s.Update(1, func(d *Draft) { d.Phone = "+79991234567" })
	s.Clear(1)
	if d := s.Get(1); d != (Draft{}) {
		t.Errorf("после Clear черновик должен быть пустым: %+v", d)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(20*time.Millisecond, time.Millisecond)
	s.Update(1, func(d *Draft) { d.Staff = "A" })
	time.Sleep(60 * time.Millisecond)
	if d := s.Get(1); d != (Draft{}) {
		t.Errorf("черновик должен истечь: %+v", d)
	}
}
