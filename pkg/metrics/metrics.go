package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики бота записи
var (
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_bot_updates_total",
			Help: "Количество обработанных обновлений Telegram",
		},
		[]string{"kind", "status"},
	)

	UpdateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salon_bot_update_duration_seconds",
			Help:    "Время обработки обновления в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_bot_reservations_created_total",
			Help: "Количество созданных записей",
		},
	)

	ReservationsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_bot_reservations_cancelled_total",
			Help: "Количество отменённых записей",
		},
	)

	SlotConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salon_bot_slot_conflicts_total",
			Help: "Попытки записаться на уже занятый слот",
		},
	)

	AdminLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_bot_admin_logins_total",
			Help: "Попытки входа в админ-панель",
		},
		[]string{"result"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_bot_storage_errors_total",
			Help: "Ошибки хранилища по операциям",
		},
		[]string{"operation"},
	)

	SheetSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salon_bot_sheet_sync_total",
			Help: "Выгрузка записей в Google Sheets",
		},
		[]string{"status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salon_bot_active_sessions",
			Help: "Количество незавершённых диалогов",
		},
	)
)
