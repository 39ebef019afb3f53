package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLength ширина колонки client_name
const MaxNameLength = 100

// +7 или 8 и ещё 10 цифр, без пробелов и скобок
var phoneRegex = regexp.MustCompile(`^(\+7|8)\d{10}$`)

// ValidPhone проверяет номер телефона РФ
func ValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// NormalizeName обрезает пробелы по краям. Пустое или слишком длинное имя не принимается.
func NormalizeName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", false
	}
	return name, true
}
