package session

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Draft черновик записи, живёт только пока идёт диалог
type Draft struct {
	Staff string
	Month time.Time
	Day   time.Time
	Time  time.Time
	Name  string
	Phone string
}

// Store хранит черновики по id пользователя. Неактивные черновики удаляются через ttl.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Get возвращает копию черновика, для нового пользователя пустой
func (s *Store) Get(userID int64) Draft {
	if x, found := s.cache.Get(key(userID)); found {
		if d, ok := x.(Draft); ok {
			return d
		}
	}
	return Draft{}
}

// Update изменяет черновик и продлевает срок его жизни
func (s *Store) Update(userID int64, fn func(d *Draft)) Draft {
	d := s.Get(userID)
	fn(&d)
	s.cache.Set(key(userID), d, s.ttl)
	return d
}

func (s *Store) Clear(userID int64) {
	s.cache.Delete(key(userID))
}

// Len количество живых черновиков
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
