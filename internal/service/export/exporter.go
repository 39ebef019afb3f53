package export

import (
	"context"
	"sync"
	"time"

	"salon_bot/internal/domain"
	"salon_bot/pkg/metrics"

	"go.uber.org/zap"
)

// Exporter переносит новые записи в Google Sheets: по таймеру и по сигналу после каждой записи.
// Отменённые записи из таблицы не удаляются.
type Exporter struct {
	logger       *zap.Logger
	SheetService domain.SheetService
	Repo         domain.SyncRepo

	interval      time.Duration
	forceUpdateCh chan struct{}
	stopCh        chan struct{}
	doneCh        chan struct{}
	stopOnce      sync.Once
	mu            sync.Mutex
}

func NewExporter(sheetService domain.SheetService, repo domain.SyncRepo, logger *zap.Logger, interval time.Duration, forceUpdateCh chan struct{}) *Exporter {
	if forceUpdateCh == nil {
		forceUpdateCh = make(chan struct{}, 1)
	}
	return &Exporter{
		logger:        logger,
		SheetService:  sheetService,
		Repo:          repo,
		interval:      interval,
		forceUpdateCh: forceUpdateCh,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start запускает фоновую синхронизацию. Первая синхронизация сразу при старте.
func (e *Exporter) Start(ctx context.Context) {
	go e.backgroundSync(ctx)
}

func (e *Exporter) backgroundSync(ctx context.Context) {
	defer close(e.doneCh)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.SyncUnsynced(ctx)
	for {
		select {
		case <-ticker.C:
			e.SyncUnsynced(ctx)
		case <-e.forceUpdateCh:
			e.SyncUnsynced(ctx)
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SyncUnsynced выгружает все записи с sheet_is_synced=false.
// Возвращает количество выгруженных.
func (e *Exporter) SyncUnsynced(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, err := e.Repo.GetUnsynced(ctx)
	if err != nil {
		metrics.SheetSync.WithLabelValues("storage_error").Inc()
		e.logger.Error("error getting unsynced reservations", zap.Error(err))
		return 0
	}

	synced := 0
	for _, r := range list {
		if err := e.SheetService.AppendReservation(ctx, r); err != nil {
			metrics.SheetSync.WithLabelValues("sheet_error").Inc()
			e.logger.Error("error appending reservation to sheet", zap.Error(err), zap.Uint("id", r.ID))
			// порядок строк в таблице сохраняем, остальные попробуем в следующий раз
			break
		}
		if err := e.Repo.MarkSynced(ctx, r.ID); err != nil {
			metrics.SheetSync.WithLabelValues("storage_error").Inc()
			e.logger.Error("error marking reservation synced", zap.Error(err), zap.Uint("id", r.ID))
			// строка уже в таблице; дальше не идём, чтобы не выгрузить следующие мимо неотмеченной
			break
		}
		metrics.SheetSync.WithLabelValues("ok").Inc()
		synced++
	}
	if synced > 0 {
		e.logger.Info("reservations exported to sheet", zap.Int("count", synced))
	}
	return synced
}

// ForceUpdate немедленно запускает синхронизацию
func (e *Exporter) ForceUpdate() {
	select {
	case e.forceUpdateCh <- struct{}{}:
	default:
	}
}

// Stop останавливает фоновую задачу и ждёт её завершения. Вызывается после Start.
func (e *Exporter) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.doneCh
}
