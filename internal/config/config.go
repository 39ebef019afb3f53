package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramConfig
	DBConfig
	SalonConfig
	GoogleSheetConfig
	OpsConfig
}

type TelegramConfig struct {
	BotToken      string `envconfig:"BOT_TOKEN" required:"true" masked:"true"`
	OwnerChat     string `envconfig:"OWNER_CHAT_ID" required:"true"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" required:"true" masked:"true"`

	RatePerSec     float64 `envconfig:"TG_RATE_PER_SEC" default:"25"`
	ChatRatePerSec float64 `envconfig:"TG_CHAT_RATE_PER_SEC" default:"1"`
	ChatBurst      int     `envconfig:"TG_CHAT_BURST" default:"5"`
	PollTimeout    int     `envconfig:"TG_POLL_TIMEOUT" default:"30"`
}

type DBConfig struct {
	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true" masked:"true"`
	InitAttempts int           `envconfig:"DB_INIT_ATTEMPTS" default:"5"`
	InitDelay    time.Duration `envconfig:"DB_INIT_DELAY" default:"3s"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"5"`
}

// SalonConfig описывает расписание и мастеров салона.
type SalonConfig struct {
	Staff          []string      `envconfig:"STAFF" default:"Анна,Мария,Ольга"`
	FirstHour      int           `envconfig:"SLOT_FIRST_HOUR" default:"9"`
	LastHour       int           `envconfig:"SLOT_LAST_HOUR" default:"20"`
	MonthsAhead    int           `envconfig:"MONTHS_AHEAD" default:"12"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionCleanup time.Duration `envconfig:"SESSION_CLEANUP" default:"1h"`
}

// GoogleSheetConfig выгрузка записей в таблицу, выключена если не заданы SHEET_ID и CREDENTIALS_BASE64
type GoogleSheetConfig struct {
	SheetID           string        `envconfig:"SHEET_ID" masked:"true"`
	SheetName         string        `envconfig:"SHEET_NAME" default:"Записи"`
	CredentialsBase64 string        `envconfig:"CREDENTIALS_BASE64" masked:"true"`
	Columns           string        `envconfig:"SHEET_COLUMNS" default:"N,Name,Phone,Staff,AppointmentTime,CreatedAt"`
	PauseMs           int           `envconfig:"SHEET_PAUSE_MS" default:"1000"`
	SyncInterval      time.Duration `envconfig:"SHEET_SYNC_INTERVAL" default:"10m"`
}

func (c GoogleSheetConfig) Enabled() bool {
	return c.SheetID != "" && c.CredentialsBase64 != ""
}

// OpsConfig HTTP_ADDR пустой - /metrics и /health не поднимаются
type OpsConfig struct {
	HTTPAddr string `envconfig:"HTTP_ADDR"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Validate проверяет то, что envconfig не ловит: пустые значения и границы расписания
func (c *Config) Validate() error {
	required := map[string]string{
		"BOT_TOKEN":      c.BotToken,
		"ADMIN_PASSWORD": c.AdminPassword,
		"DATABASE_URL":   c.DatabaseURL,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is empty", name)
		}
	}
	if _, _, err := ParseChat(c.OwnerChat); err != nil {
		return fmt.Errorf("OWNER_CHAT_ID: %w", err)
	}
	if len(c.Staff) == 0 {
		return errors.New("STAFF must list at least one staff member")
	}
	for _, s := range c.Staff {
		if strings.TrimSpace(s) == "" {
			return errors.New("STAFF contains an empty name")
		}
	}
	if c.FirstHour < 0 || c.LastHour > 23 || c.FirstHour > c.LastHour {
		return fmt.Errorf("invalid slot hours %d..%d", c.FirstHour, c.LastHour)
	}
	if c.MonthsAhead <= 0 {
		return fmt.Errorf("MONTHS_AHEAD must be positive, got %d", c.MonthsAhead)
	}
	if c.InitAttempts <= 0 {
		return fmt.Errorf("DB_INIT_ATTEMPTS must be positive, got %d", c.InitAttempts)
	}
	return nil
}

// ParseChat разбирает адрес чата: числовой id (у групп и каналов отрицательный) или @username канала
func ParseChat(s string) (int64, string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "@") {
		if len(s) == 1 {
			return 0, "", errors.New("empty channel username")
		}
		return 0, s, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("expected chat id or @channel, got %q", s)
	}
	if id == 0 {
		return 0, "", errors.New("chat id is zero")
	}
	return id, "", nil
}
