package tg

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"salon_bot/internal/model"
	"salon_bot/internal/service/booking"
)

// Кнопки главного меню
const (
	menuBook   = "Записаться"
	menuCancel = "Отменить запись"
)

const (
	welcomeText       = "Добро пожаловать в бот парикмахерской! Выберите действие:"
	useMenuText       = "Выберите действие в меню."
	chooseStaffText   = "Выберите мастера:"
	chooseMonthText   = "Выберите месяц:"
	chooseDayText     = "Выберите день:"
	chooseTimeText    = "Выберите время:"
	useButtonsText    = "Пожалуйста, воспользуйтесь кнопками выше."
	noDaysText        = "В этом месяце нет доступных дней. Выберите другой месяц."
	noSlotsText       = "Нет доступных слотов на этот день. Выберите другой день."
	enterNameText     = "Введите ваше имя:"
	invalidNameText   = "Имя не может быть пустым или длиннее 100 символов. Введите ваше имя:"
	enterPhoneText    = "Введите ваш номер телефона (например, +79991234567):"
	invalidPhoneText  = "Некорректный номер телефона. Попробуйте снова (например, +79991234567):"
	slotTakenText     = "К сожалению, это время уже заняли. Выберите другое время."
	outdatedText      = "Этот выбор устарел. Нажмите «Записаться», чтобы начать заново."
	genericErrorText  = "Произошла ошибка. Попробуйте позже."
	notFoundText      = "Запись с таким номером не найдена."
	enterPasswordText = "Введите пароль админа:"
	wrongPasswordText = "Неверный пароль."
	emptyListText     = "Записей нет."
)

// Telegram не принимает сообщения длиннее 4096 символов
const maxMessageLength = 4096

func formatTime(r model.Reservation) string {
	return r.AppointmentTime.Format(booking.DateTimeLayout)
}

func confirmationText(r model.Reservation) string {
	return fmt.Sprintf("Запись успешно создана!\nИмя: %s\nТелефон: %s\nМастер: %s\nВремя: %s",
		r.ClientName, r.ClientPhone, r.Staff, formatTime(r))
}

func ownerBookingText(r model.Reservation) string {
	return fmt.Sprintf("Новая запись:\nИмя: %s\nТелефон: %s\nМастер: %s\nВремя: %s",
		r.ClientName, r.ClientPhone, r.Staff, formatTime(r))
}

func cancelledText(r model.Reservation) string {
	return fmt.Sprintf("Запись для %s к мастеру %s успешно отменена.", r.ClientName, r.Staff)
}

func ownerCancelText(r model.Reservation) string {
	return fmt.Sprintf("Клиент %s (%s) отменил запись к мастеру %s.", r.ClientName, r.ClientPhone, r.Staff)
}

func listingText(list []model.Reservation) string {
	var b strings.Builder
	b.WriteString("Список записей:\n")
	for _, r := range list {
		fmt.Fprintf(&b, "Имя: %s, Телефон: %s, Мастер: %s, Время: %s\n",
			r.ClientName, r.ClientPhone, r.Staff, formatTime(r))
	}
	return b.String()
}

// splitMessage режет текст по строкам на части не длиннее limit символов.
// Строка длиннее limit режется посимвольно.
func splitMessage(text string, limit int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if n == 0 {
			continue
		}
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}
