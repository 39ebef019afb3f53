package tg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salon_bot/internal/domain"
	"salon_bot/internal/service/booking"
	"salon_bot/pkg/tgbotapisfm"
)

// Префиксы callback data
const (
	staffPrefix = "staff_"
	monthPrefix = "month_"
	dayPrefix   = "day_"
	timePrefix  = "time_"
)

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var weekdayNames = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

func staffChoices(staff []string) []tgbotapisfm.Choice {
	choices := make([]tgbotapisfm.Choice, 0, len(staff))
	for i, s := range staff {
		choices = append(choices, tgbotapisfm.Choice{Label: s, Data: staffPrefix + strconv.Itoa(i)})
	}
	return choices
}

func monthChoices(months []time.Time) []tgbotapisfm.Choice {
	choices := make([]tgbotapisfm.Choice, 0, len(months))
	for _, m := range months {
		choices = append(choices, tgbotapisfm.Choice{
			Label: fmt.Sprintf("%s %d", monthNames[m.Month()-1], m.Year()),
			Data:  monthPrefix + m.Format(booking.MonthLayout),
		})
	}
	return choices
}

func dayChoices(days []time.Time) []tgbotapisfm.Choice {
	choices := make([]tgbotapisfm.Choice, 0, len(days))
	for _, d := range days {
		choices = append(choices, tgbotapisfm.Choice{
			Label: fmt.Sprintf("%s %s", d.Format("02.01"), weekdayNames[d.Weekday()]),
			Data:  dayPrefix + d.Format(booking.DateLayout),
		})
	}
	return choices
}

func timeChoices(slots []time.Time) []tgbotapisfm.Choice {
	choices := make([]tgbotapisfm.Choice, 0, len(slots))
	for _, s := range slots {
		choices = append(choices, tgbotapisfm.Choice{
			Label: s.Format("15:04"),
			Data:  timePrefix + s.Format(booking.DateTimeLayout),
		})
	}
	return choices
}

// parseToken отрезает префикс и разбирает остаток по layout
func parseToken(data, prefix, layout string, loc *time.Location) (time.Time, error) {
	raw, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidToken, data)
	}
	t, err := time.ParseInLocation(layout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidToken, data, err)
	}
	return t, nil
}

func parseStaffToken(data string) (int, error) {
	raw, ok := strings.CutPrefix(data, staffPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidToken, data)
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", domain.ErrInvalidToken, data, err)
	}
	return i, nil
}
