package sheet

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"salon_bot/internal/config"
	"salon_bot/internal/model"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const timeLayout = "02.01.2006 15:04"

type SheetService struct {
	SpreadsheetID string
	SheetName     string
	PauseMs       int // пауза между запросами в миллисекундах
	srv           *sheets.Service
	limiterMu     sync.Mutex
	lastCall      time.Time
	colMap        ColumnMap
}

type ColumnMap map[string]int // например: "N": 0, "Name": 1, ...

// NewDefaultColumnMap порядок колонок по умолчанию
func NewDefaultColumnMap() ColumnMap {
	return ColumnMap{
		"N":               0,
		"Name":            1,
		"Phone":           2,
		"Staff":           3,
		"AppointmentTime": 4,
		"CreatedAt":       5,
	}
}

// CreateColumnMapFromOrder строит ColumnMap из строки порядка, например "N,Name,Phone".
// Неизвестные поля остаются пустыми колонками.
func CreateColumnMapFromOrder(order string) ColumnMap {
	if strings.TrimSpace(order) == "" {
		return NewDefaultColumnMap()
	}
	fields := strings.Split(order, ",")
	m := make(ColumnMap, len(fields))
	for idx, field := range fields {
		m[strings.TrimSpace(field)] = idx
	}
	return m
}

func NewSheetService(ctx context.Context, cfg config.GoogleSheetConfig) (*SheetService, error) {
	credBytes, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("не удается декодировать credentials из base64: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, credBytes, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("не удается создать credentials из JSON: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("не удается инициализировать сервис Google Sheets: %w", err)
	}

	return &SheetService{
		SpreadsheetID: cfg.SheetID,
		SheetName:     cfg.SheetName,
		PauseMs:       cfg.PauseMs,
		srv:           srv,
		lastCall:      time.Now(),
		colMap:        CreateColumnMapFromOrder(cfg.Columns),
	}, nil
}

// Wait лимитер: держит паузу между запросами к API
func (s *SheetService) Wait() {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	elapsed := time.Since(s.lastCall)
	pause := time.Duration(s.PauseMs) * time.Millisecond
	if elapsed < pause {
		time.Sleep(pause - elapsed)
	}
	s.lastCall = time.Now()
}

// rowValues раскладывает запись по колонкам
func (m ColumnMap) rowValues(r model.Reservation) []interface{} {
	width := 0
	for _, idx := range m {
		if idx+1 > width {
			width = idx + 1
		}
	}
	values := make([]interface{}, width)
	for i := range values {
		values[i] = ""
	}
	for field, idx := range m {
		switch field {
		case "N":
			values[idx] = r.ID
		case "Name":
			values[idx] = r.ClientName
		case "Phone":
			values[idx] = r.ClientPhone
		case "Staff":
			values[idx] = r.Staff
		case "AppointmentTime":
			values[idx] = r.AppointmentTime.Format(timeLayout)
		case "CreatedAt":
			values[idx] = r.CreatedAt.Format(timeLayout)
		}
	}
	return values
}

// AppendReservation добавляет строку после последней заполненной на листе
func (s *SheetService) AppendReservation(ctx context.Context, r model.Reservation) error {
	s.Wait()

	vr := &sheets.ValueRange{
		Values: [][]interface{}{s.colMap.rowValues(r)},
	}
	rangeStr := fmt.Sprintf("%s!A1", s.SheetName)
	_, err := s.srv.Spreadsheets.Values.Append(s.SpreadsheetID, rangeStr, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ошибка вставки в таблицу: %w", err)
	}
	return nil
}
