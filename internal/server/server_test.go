package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salon_bot/pkg/metrics"

	"go.uber.org/zap/zaptest"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"unhealthy", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", fakePinger{err: tt.err}, zaptest.NewLogger(t))
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("код %d, ожидали %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("невалидный JSON: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("статус %q, ожидали %q", resp.Status, tt.wantStatus)
			}
			if !strings.HasPrefix(resp.Checks["database"], tt.wantStatus) {
				t.Errorf("проверка базы: %q", resp.Checks["database"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.ReservationsCreated.Inc()

	s := New(":0", fakePinger{}, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("код %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "salon_bot_reservations_created_total") {
		t.Error("в выдаче нет счётчика записей")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	s := New("127.0.0.1:0", fakePinger{}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start вернул ошибку: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("сервер не остановился")
	}
}
