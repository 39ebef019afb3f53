package tgbotapisfm

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler действие бота на сообщение или нажатие кнопки
type Handler struct {
	Handle func(ctx context.Context, bot *Bot, update tgbotapi.Update) error
}

// HandlerFunc вызывается на каждое обновление до обработки состояний
type HandlerFunc func(ctx context.Context, bot *Bot, update tgbotapi.Update) error

// State состояние пользователя.
//   - Global - обработчики состояния проверяются в любом состоянии пользователя.
//     У глобального состояния не должно быть CatchAllFunc.
//   - AtEntranceFunc - вызывается при входе в состояние через SetUserStateImmediate.
//   - CatchAllFunc - вызывается, если не нашлось подходящего обработчика.
//   - MessageHandlers - ключи в нижнем регистре, текст сообщения сравнивается после TrimSpace и ToLower.
//   - CallbackHandlers - точное совпадение callback data.
//   - CallbackPrefixHandlers - совпадение по префиксу callback data, проверяется после точного.
type State struct {
	Global                 bool
	AtEntranceFunc         *Handler
	CatchAllFunc           *Handler
	MessageHandlers        map[string]Handler
	CallbackHandlers       map[string]Handler
	CallbackPrefixHandlers map[string]Handler
}
