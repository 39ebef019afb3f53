package tgbotapisfm

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Choice кнопка inline-клавиатуры
type Choice struct {
	Label string
	Data  string
}

// SendMessage отправляет сообщение с учётом лимитов
func (b *Bot) SendMessage(msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	if err := b.limiter.Wait(b.ctx, msg.ChatID); err != nil {
		return tgbotapi.Message{}, err
	}
	return b.API.Send(msg)
}

// SendText отправляет простой текст
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.SendMessage(msg)
	return err
}

// SendTextToChannel отправляет текст в канал по @username
func (b *Bot) SendTextToChannel(username, text string) error {
	msg := tgbotapi.NewMessageToChannel(username, text)
	_, err := b.SendMessage(msg)
	return err
}

// SendChoices отправляет текст с inline-кнопками, по columns кнопок в ряду
func (b *Bot) SendChoices(chatID int64, text string, choices []Choice, columns int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = InlineKeyboard(choices, columns)
	_, err := b.SendMessage(msg)
	return err
}

// SendMenu отправляет текст с reply-клавиатурой, каждая кнопка в своём ряду
func (b *Bot) SendMenu(chatID int64, text string, options ...string) error {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, o := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(o)))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.SendMessage(msg)
	return err
}

// InlineKeyboard раскладывает кнопки по рядам
func InlineKeyboard(choices []Choice, columns int) tgbotapi.InlineKeyboardMarkup {
	if columns < 1 {
		columns = 1
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		if len(row) == columns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// answerCallback убирает индикатор загрузки с кнопки
func (b *Bot) answerCallback(callbackID string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.logger.Warn("failed to answer callback query", zap.Error(err))
	}
}
