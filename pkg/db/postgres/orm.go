package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salon_bot/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewGormConnection открывает соединение через lib/pq и оборачивает его в GORM.
// Подключение проверяется до cfg.InitAttempts раз с паузой cfg.InitDelay,
// после последней неудачи возвращается ошибка и сервис не стартует.
func NewGormConnection(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	err = Retry(ctx, cfg.InitAttempts, cfg.InitDelay, func(attempt int) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			logger.Warn("database is not reachable",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.InitAttempts),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return db, nil
}

// Retry вызывает fn до attempts раз с фиксированной паузой между попытками
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry interrupted after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
