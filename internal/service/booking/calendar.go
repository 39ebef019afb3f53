package booking

import "time"

const (
	MonthLayout    = "2006-01"
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Months первые числа n месяцев начиная с текущего
func Months(now time.Time, n int) []time.Time {
	first := startOfMonth(now)
	months := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, first.AddDate(0, i, 0))
	}
	return months
}

// Days дни месяца, начиная с сегодняшнего. Для прошедшего месяца пусто.
func Days(month, now time.Time) []time.Time {
	first := startOfMonth(month)
	today := startOfDay(now)
	var days []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if !d.Before(today) {
			days = append(days, d)
		}
	}
	return days
}

// Slots часовые слоты с firstHour по lastHour включительно
func Slots(day time.Time, firstHour, lastHour int) []time.Time {
	start := startOfDay(day)
	slots := make([]time.Time, 0, lastHour-firstHour+1)
	for h := firstHour; h <= lastHour; h++ {
		slots = append(slots, time.Date(start.Year(), start.Month(), start.Day(), h, 0, 0, 0, start.Location()))
	}
	return slots
}

// Months месяцы, доступные для записи
func (s *Service) Months() []time.Time {
	return Months(s.now(), s.monthsAhead)
}

// Days дни месяца, доступные для записи. Месяц вне окна записи даёт пустой список.
func (s *Service) Days(month time.Time) []time.Time {
	now := s.now()
	last := startOfMonth(now).AddDate(0, s.monthsAhead, 0)
	if !startOfMonth(month).Before(last) {
		return nil
	}
	return Days(month, now)
}
