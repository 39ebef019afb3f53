package tg

import (
	"context"
	"errors"
	"strings"
	"time"

	"salon_bot/internal/config"
	"salon_bot/internal/domain"
	"salon_bot/internal/service/booking"
	"salon_bot/internal/session"
	"salon_bot/internal/validation"
	"salon_bot/pkg/metrics"
	"salon_bot/pkg/tgbotapisfm"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Состояния диалога
const (
	StateStart         = "start"
	StateIdle          = "idle"
	StateChoosingStaff = "choosing_staff"
	StateChoosingMonth = "choosing_month"
	StateChoosingDay   = "choosing_day"
	StateChoosingTime  = "choosing_time"
	StateEnteringName  = "entering_name"
	StateEnteringPhone = "entering_phone"
	StateCancelPhone   = "cancel_phone"
	StateAdminPassword = "admin_password"
)

type TGHandler struct {
	booking      *booking.Service
	sessions     *session.Store
	ownerChatID  int64
	ownerChannel string
	forceUpdate  chan struct{}
	logger       *zap.Logger
}

// NewTGHandler owner - id чата или @username канала владельца, пустая строка выключает уведомления.
// forceUpdate может быть nil, если выгрузка в таблицу выключена.
func NewTGHandler(svc *booking.Service, sessions *session.Store, owner string, forceUpdate chan struct{}, logger *zap.Logger) *TGHandler {
	h := &TGHandler{
		booking:     svc,
		sessions:    sessions,
		forceUpdate: forceUpdate,
		logger:      logger,
	}
	if owner != "" {
		id, channel, err := config.ParseChat(owner)
		if err != nil {
			logger.Warn("owner notifications disabled", zap.String("owner", owner), zap.Error(err))
		}
		h.ownerChatID, h.ownerChannel = id, channel
	}
	return h
}

func chatID(update tgbotapi.Update) int64 {
	return update.FromChat().ID
}

func userID(update tgbotapi.Update) int64 {
	return update.SentFrom().ID
}

func messageText(update tgbotapi.Update) string {
	if update.Message == nil {
		return ""
	}
	return strings.TrimSpace(update.Message.Text)
}

// rawText текст сообщения без обрезки пробелов. Телефон проверяется ровно в том виде, в каком его ввели.
func rawText(update tgbotapi.Update) string {
	if update.Message == nil {
		return ""
	}
	return update.Message.Text
}

func (h *TGHandler) updateDraft(uid int64, fn func(d *session.Draft)) session.Draft {
	d := h.sessions.Update(uid, fn)
	metrics.ActiveSessions.Set(float64(h.sessions.Len()))
	return d
}

func (h *TGHandler) clearDraft(uid int64) {
	h.sessions.Clear(uid)
	metrics.ActiveSessions.Set(float64(h.sessions.Len()))
}

// fail пишет ошибку в лог и отвечает пользователю общим сообщением. Состояние не меняется.
func (h *TGHandler) fail(bot *tgbotapisfm.Bot, update tgbotapi.Update, msg string, err error) error {
	h.logger.Error(msg, zap.Error(err), zap.Int64("user_id", userID(update)))
	return bot.SendText(chatID(update), genericErrorText)
}

// outdated ответ на нажатие кнопки из прошлого шага или на текст там, где ждут кнопку
func (h *TGHandler) outdated(hint string) *tgbotapisfm.Handler {
	return &tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			if update.CallbackQuery != nil {
				return bot.SendText(chatID(update), outdatedText)
			}
			return bot.SendText(chatID(update), hint)
		},
	}
}

func (h *TGHandler) notifyOwner(bot *tgbotapisfm.Bot, text string) {
	var err error
	switch {
	case h.ownerChannel != "":
		err = bot.SendTextToChannel(h.ownerChannel, text)
	case h.ownerChatID != 0:
		err = bot.SendText(h.ownerChatID, text)
	default:
		return
	}
	if err != nil {
		h.logger.Warn("failed to notify owner", zap.Error(err))
	}
}

func (h *TGHandler) StartState() tgbotapisfm.State {
	return tgbotapisfm.State{
		Global: true,
		MessageHandlers: map[string]tgbotapisfm.Handler{
			"/start":                    h.StartHandler(),
			"/admin":                    h.AdminHandler(),
			strings.ToLower(menuBook):   h.BookHandler(),
			strings.ToLower(menuCancel): h.CancelHandler(),
		},
	}
}

func (h *TGHandler) StartHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			uid := userID(update)
			h.clearDraft(uid)
			if err := bot.SetUserState(uid, StateIdle); err != nil {
				return err
			}
			if err := h.booking.InitStorage(ctx); err != nil {
				return h.fail(bot, update, "failed to init storage", err)
			}
			return bot.SendMenu(chatID(update), welcomeText, menuBook, menuCancel)
		},
	}
}

func (h *TGHandler) BookHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			uid := userID(update)
			h.clearDraft(uid)
			return bot.SetUserStateImmediate(ctx, uid, StateChoosingStaff, update)
		},
	}
}

func (h *TGHandler) CancelHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			uid := userID(update)
			h.clearDraft(uid)
			return bot.SetUserStateImmediate(ctx, uid, StateCancelPhone, update)
		},
	}
}

func (h *TGHandler) AdminHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			uid := userID(update)
			h.clearDraft(uid)
			return bot.SetUserStateImmediate(ctx, uid, StateAdminPassword, update)
		},
	}
}

func (h *TGHandler) IdleState() tgbotapisfm.State {
	return tgbotapisfm.State{
		CatchAllFunc: h.outdated(useMenuText),
	}
}

func (h *TGHandler) ChoosingStaffState() tgbotapisfm.State {
	return tgbotapisfm.State{
		AtEntranceFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				return bot.SendChoices(chatID(update), chooseStaffText, staffChoices(h.booking.Staff()), 1)
			},
		},
		CatchAllFunc: h.outdated(useButtonsText),
		CallbackPrefixHandlers: map[string]tgbotapisfm.Handler{
			staffPrefix: h.StaffSelectHandler(),
		},
	}
}

func (h *TGHandler) StaffSelectHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			idx, err := parseStaffToken(update.CallbackQuery.Data)
			if err != nil {
				return h.fail(bot, update, "malformed staff token", err)
			}
			staff, ok := h.booking.StaffByIndex(idx)
			if !ok {
				return bot.SendText(chatID(update), outdatedText)
			}
			uid := userID(update)
			h.updateDraft(uid, func(d *session.Draft) {
				*d = session.Draft{Staff: staff}
			})
			return bot.SetUserStateImmediate(ctx, uid, StateChoosingMonth, update)
		},
	}
}

func (h *TGHandler) showMonths(bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
	if err := bot.SetUserState(userID(update), StateChoosingMonth); err != nil {
		return err
	}
	return bot.SendChoices(chatID(update), chooseMonthText, monthChoices(h.booking.Months()), 3)
}

func (h *TGHandler) ChoosingMonthState() tgbotapisfm.State {
	return tgbotapisfm.State{
		AtEntranceFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				return h.showMonths(bot, update)
			},
		},
		CatchAllFunc: h.outdated(useButtonsText),
		CallbackPrefixHandlers: map[string]tgbotapisfm.Handler{
			monthPrefix: h.MonthSelectHandler(),
		},
	}
}

func (h *TGHandler) MonthSelectHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			month, err := parseToken(update.CallbackQuery.Data, monthPrefix, booking.MonthLayout, h.booking.Location())
			if err != nil {
				return h.fail(bot, update, "malformed month token", err)
			}
			uid := userID(update)
			if h.sessions.Get(uid).Staff == "" {
				return bot.SendText(chatID(update), outdatedText)
			}
			h.updateDraft(uid, func(d *session.Draft) {
				d.Month = month
				d.Day = time.Time{}
				d.Time = time.Time{}
			})
			return h.showDays(bot, update, month)
		},
	}
}

// showDays показывает дни месяца. Если дней нет, возвращает к выбору месяца.
func (h *TGHandler) showDays(bot *tgbotapisfm.Bot, update tgbotapi.Update, month time.Time) error {
	days := h.booking.Days(month)
	if len(days) == 0 {
		if err := bot.SendText(chatID(update), noDaysText); err != nil {
			return err
		}
		return h.showMonths(bot, update)
	}
	if err := bot.SetUserState(userID(update), StateChoosingDay); err != nil {
		return err
	}
	return bot.SendChoices(chatID(update), chooseDayText, dayChoices(days), 4)
}

func (h *TGHandler) ChoosingDayState() tgbotapisfm.State {
	return tgbotapisfm.State{
		CatchAllFunc: h.outdated(useButtonsText),
		CallbackPrefixHandlers: map[string]tgbotapisfm.Handler{
			dayPrefix: h.DaySelectHandler(),
		},
	}
}

func (h *TGHandler) DaySelectHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			day, err := parseToken(update.CallbackQuery.Data, dayPrefix, booking.DateLayout, h.booking.Location())
			if err != nil {
				return h.fail(bot, update, "malformed day token", err)
			}
			uid := userID(update)
			if h.sessions.Get(uid).Staff == "" || !containsDay(h.booking.Days(day), day) {
				return bot.SendText(chatID(update), outdatedText)
			}
			d := h.updateDraft(uid, func(d *session.Draft) {
				d.Month = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
				d.Day = day
				d.Time = time.Time{}
			})
			return h.showTimes(ctx, bot, update, d)
		},
	}
}

func containsDay(days []time.Time, day time.Time) bool {
	for _, d := range days {
		if d.Equal(day) {
			return true
		}
	}
	return false
}

// showTimes показывает свободные слоты дня. Если их нет, возвращает к выбору дня.
func (h *TGHandler) showTimes(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update, d session.Draft) error {
	slots, err := h.booking.FreeSlots(ctx, d.Day, d.Staff)
	if err != nil {
		return h.fail(bot, update, "failed to load free slots", err)
	}
	if len(slots) == 0 {
		if err := bot.SendText(chatID(update), noSlotsText); err != nil {
			return err
		}
		return h.showDays(bot, update, d.Month)
	}
	if err := bot.SetUserState(userID(update), StateChoosingTime); err != nil {
		return err
	}
	return bot.SendChoices(chatID(update), chooseTimeText, timeChoices(slots), 4)
}

func (h *TGHandler) ChoosingTimeState() tgbotapisfm.State {
	return tgbotapisfm.State{
		CatchAllFunc: h.outdated(useButtonsText),
		CallbackPrefixHandlers: map[string]tgbotapisfm.Handler{
			timePrefix: h.TimeSelectHandler(),
		},
	}
}

func (h *TGHandler) TimeSelectHandler() tgbotapisfm.Handler {
	return tgbotapisfm.Handler{
		Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
			at, err := parseToken(update.CallbackQuery.Data, timePrefix, booking.DateTimeLayout, h.booking.Location())
			if err != nil {
				return h.fail(bot, update, "malformed time token", err)
			}
			uid := userID(update)
			d := h.sessions.Get(uid)
			if d.Staff == "" || d.Day.IsZero() || !sameDay(at, d.Day) || !h.booking.Bookable(at) {
				return bot.SendText(chatID(update), outdatedText)
			}
			h.updateDraft(uid, func(d *session.Draft) {
				d.Time = at
			})
			return bot.SetUserStateImmediate(ctx, uid, StateEnteringName, update)
		},
	}
}

// sameDay время относится к выбранному в черновике дню
func sameDay(at, day time.Time) bool {
	y1, m1, d1 := at.Date()
	y2, m2, d2 := day.In(at.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (h *TGHandler) EnteringNameState() tgbotapisfm.State {
	return tgbotapisfm.State{
		AtEntranceFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				return bot.SendText(chatID(update), enterNameText)
			},
		},
		CatchAllFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				if update.Message == nil {
					return bot.SendText(chatID(update), outdatedText)
				}
				name, ok := validation.NormalizeName(update.Message.Text)
				if !ok {
					return bot.SendText(chatID(update), invalidNameText)
				}
				uid := userID(update)
				h.updateDraft(uid, func(d *session.Draft) {
					d.Name = name
				})
				return bot.SetUserStateImmediate(ctx, uid, StateEnteringPhone, update)
			},
		},
	}
}

func (h *TGHandler) EnteringPhoneState() tgbotapisfm.State {
	return tgbotapisfm.State{
		AtEntranceFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				return bot.SendText(chatID(update), enterPhoneText)
			},
		},
		CatchAllFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				if update.Message == nil {
					return bot.SendText(chatID(update), outdatedText)
				}
				phone := rawText(update)
				if !validation.ValidPhone(phone) {
					return bot.SendText(chatID(update), invalidPhoneText)
				}
				return h.commit(ctx, bot, update, phone)
			},
		},
	}
}

// commit сохраняет запись из черновика.
// Занятый слот возвращает к выбору времени, ошибка хранилища оставляет черновик для повтора.
func (h *TGHandler) commit(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update, phone string) error {
	uid := userID(update)
	d := h.updateDraft(uid, func(d *session.Draft) {
		d.Phone = phone
	})

	res, err := h.booking.Book(ctx, d.Name, d.Phone, d.Time, d.Staff)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSlotTaken):
		d = h.updateDraft(uid, func(d *session.Draft) {
			d.Time = time.Time{}
			d.Name = ""
			d.Phone = ""
		})
		if err := bot.SendText(chatID(update), slotTakenText); err != nil {
			return err
		}
		return h.showTimes(ctx, bot, update, d)
	case errors.Is(err, domain.ErrIncompleteDraft), errors.Is(err, domain.ErrInvalidToken):
		h.clearDraft(uid)
		if err := bot.SetUserState(uid, StateIdle); err != nil {
			return err
		}
		return bot.SendText(chatID(update), outdatedText)
	default:
		return h.fail(bot, update, "failed to create reservation", err)
	}

	h.clearDraft(uid)
	if err := bot.SetUserState(uid, StateIdle); err != nil {
		return err
	}
	h.logger.Info("reservation created",
		zap.Uint("id", res.ID),
		zap.String("staff", res.Staff),
		zap.Time("appointment_time", res.AppointmentTime),
	)

	// Отправляем сигнал выгрузке в таблицу
	if h.forceUpdate != nil {
		select {
		case h.forceUpdate <- struct{}{}:
		default:
		}
	}

	if err := bot.SendMenu(chatID(update), confirmationText(*res), menuBook, menuCancel); err != nil {
		return err
	}
	h.notifyOwner(bot, ownerBookingText(*res))
	return nil
}

func (h *TGHandler) CancelPhoneState() tgbotapisfm.State {
	return tgbotapisfm.State{
		AtEntranceFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				return bot.SendText(chatID(update), enterPhoneText)
			},
		},
		CatchAllFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				if update.Message == nil {
					return bot.SendText(chatID(update), outdatedText)
				}
				phone := rawText(update)
				if !validation.ValidPhone(phone) {
					return bot.SendText(chatID(update), invalidPhoneText)
				}

				res, err := h.booking.Cancel(ctx, phone)
				if err != nil && !errors.Is(err, domain.ErrReservationNotFound) {
					return h.fail(bot, update, "failed to cancel reservation", err)
				}
				if err := bot.SetUserState(userID(update), StateIdle); err != nil {
					return err
				}
				if res == nil {
					return bot.SendText(chatID(update), notFoundText)
				}

				h.logger.Info("reservation cancelled", zap.String("staff", res.Staff))
				if err := bot.SendText(chatID(update), cancelledText(*res)); err != nil {
					return err
				}
				h.notifyOwner(bot, ownerCancelText(*res))
				return nil
			},
		},
	}
}

func (h *TGHandler) AdminPasswordState() tgbotapisfm.State {
	return tgbotapisfm.State{
		AtEntranceFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				return bot.SendText(chatID(update), enterPasswordText)
			},
		},
		CatchAllFunc: &tgbotapisfm.Handler{
			Handle: func(ctx context.Context, bot *tgbotapisfm.Bot, update tgbotapi.Update) error {
				if update.Message == nil {
					return bot.SendText(chatID(update), outdatedText)
				}
				uid := userID(update)
				if err := bot.SetUserState(uid, StateIdle); err != nil {
					return err
				}
				// пароль сравнивается как есть, без TrimSpace
				if !h.booking.CheckPassword(update.Message.Text) {
					h.logger.Warn("wrong admin password", zap.Int64("user_id", uid))
					return bot.SendText(chatID(update), wrongPasswordText)
				}

				list, err := h.booking.List(ctx)
				if err != nil {
					return h.fail(bot, update, "failed to list reservations", err)
				}
				if len(list) == 0 {
					return bot.SendText(chatID(update), emptyListText)
				}
				for _, chunk := range splitMessage(listingText(list), maxMessageLength) {
					if err := bot.SendText(chatID(update), chunk); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func (h *TGHandler) StatesMap() map[string]tgbotapisfm.State {
	return map[string]tgbotapisfm.State{
		StateStart:         h.StartState(),
		StateIdle:          h.IdleState(),
		StateChoosingStaff: h.ChoosingStaffState(),
		StateChoosingMonth: h.ChoosingMonthState(),
		StateChoosingDay:   h.ChoosingDayState(),
		StateChoosingTime:  h.ChoosingTimeState(),
		StateEnteringName:  h.EnteringNameState(),
		StateEnteringPhone: h.EnteringPhoneState(),
		StateCancelPhone:   h.CancelPhoneState(),
		StateAdminPassword: h.AdminPasswordState(),
	}
}
