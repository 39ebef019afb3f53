package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"salon_bot/internal/config"
	reservation_ps "salon_bot/internal/repository/postgres"
	"salon_bot/internal/server"
	"salon_bot/internal/service/booking"
	"salon_bot/internal/service/export"
	"salon_bot/internal/service/sheet"
	"salon_bot/internal/service/tg"
	"salon_bot/internal/session"
	pkg_config "salon_bot/pkg/config"
	"salon_bot/pkg/db/postgres"
	"salon_bot/pkg/masker"
	"salon_bot/pkg/tgbotapisfm"
	"salon_bot/pkg/zaplogger"

	"go.uber.org/zap"
)

func main() {
	logger, err := zaplogger.New("info")
	if err != nil {
		panic(err)
	}

	cfg := config.Config{}
	if err := pkg_config.LoadEnv(".env", logger, &cfg); err != nil {
		logger.Fatal("error loading configs", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	if cfg.LogLevel != "info" {
		if logger, err = zaplogger.New(cfg.LogLevel); err != nil {
			panic(err)
		}
	}
	defer logger.Sync()

	if err := masker.LogConfigs(logger, &cfg); err != nil {
		logger.Fatal("error logging configs", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbGorm, err := postgres.NewGormConnection(ctx, cfg.DBConfig, logger)
	if err != nil {
		logger.Fatal("error creating gorm connection", zap.Error(err))
	}
	reservationRepo := reservation_ps.NewReservationRepository(dbGorm)

	bookingService := booking.NewService(reservationRepo, cfg.SalonConfig, cfg.AdminPassword)
	if err := bookingService.InitStorage(ctx); err != nil {
		logger.Fatal("error initializing storage", zap.Error(err))
	}

	var forceUpdate chan struct{}
	if cfg.GoogleSheetConfig.Enabled() {
		sheetService, err := sheet.NewSheetService(ctx, cfg.GoogleSheetConfig)
		if err != nil {
			logger.Fatal("error creating sheet service", zap.Error(err))
		}
		forceUpdate = make(chan struct{}, 1)
		exporter := export.NewExporter(sheetService, reservationRepo, logger, cfg.SyncInterval, forceUpdate)
		exporter.Start(ctx)
		defer exporter.Stop()
	} else {
		logger.Info("google sheet export disabled")
	}

	sessions := session.NewStore(cfg.SessionTTL, cfg.SessionCleanup)
	tgHandler := tg.NewTGHandler(bookingService, sessions, cfg.OwnerChat, forceUpdate, logger)

	bot, err := tgbotapisfm.NewBot(tgbotapisfm.Config{
		Token:           cfg.BotToken,
		Expiration:      cfg.SessionTTL,
		CleanupInterval: cfg.SessionCleanup,
		States:          tgHandler.StatesMap(),
		InitialState:    tg.StateIdle,
		RatePerSec:      cfg.RatePerSec,
		ChatRatePerSec:  cfg.ChatRatePerSec,
		ChatBurst:       cfg.ChatBurst,
	}, []int64{}, logger)
	if err != nil {
		logger.Fatal("error creating bot", zap.Error(err))
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(cfg.HTTPAddr, reservationRepo, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("http server failed", zap.Error(err))
			}
		}()
	}

	errChan := bot.Start(ctx, 0, cfg.PollTimeout)
	if err := <-errChan; err != nil {
		logger.Fatal("error running bot", zap.Error(err))
	}
	bot.Stop()
	logger.Info("bot stopped")
}
