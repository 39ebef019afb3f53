package tgbotapisfm

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter ограничивает исходящие запросы к API: общий лимит и лимит на каждый чат.
// Лимитеры чатов удаляются после 10 минут простоя.
type Limiter struct {
	global    *rate.Limiter
	chats     *gocache.Cache
	chatLimit rate.Limit
	chatBurst int
	mu        sync.Mutex
}

func toLimit(perSec float64) rate.Limit {
	if perSec <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSec)
}

// NewLimiter нулевое или отрицательное значение снимает ограничение
func NewLimiter(globalPerSec, chatPerSec float64, chatBurst int) *Limiter {
	if chatBurst < 1 {
		chatBurst = 1
	}
	globalBurst := int(globalPerSec)
	if globalBurst < 1 {
		globalBurst = 1
	}
	return &Limiter{
		global:    rate.NewLimiter(toLimit(globalPerSec), globalBurst),
		chats:     gocache.New(10*time.Minute, 10*time.Minute),
		chatLimit: toLimit(chatPerSec),
		chatBurst: chatBurst,
	}
}

func (l *Limiter) chat(chatID int64) *rate.Limiter {
	key := strconv.FormatInt(chatID, 10)
	l.mu.Lock()
	defer l.mu.Unlock()
	if x, found := l.chats.Get(key); found {
		l.chats.Set(key, x, gocache.DefaultExpiration)
		return x.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.chatLimit, l.chatBurst)
	l.chats.Set(key, lim, gocache.DefaultExpiration)
	return lim
}

// Wait блокирует до разрешения на отправку в чат
func (l *Limiter) Wait(ctx context.Context, chatID int64) error {
	if err := l.chat(chatID).Wait(ctx); err != nil {
		return err
	}
	return l.global.Wait(ctx)
}
