package tgbotapisfm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"salon_bot/pkg/metrics"
	"salon_bot/pkg/zaplogger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// API часть tgbotapi.BotAPI, которой пользуется бот. В тестах подменяется.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Config структура для конфигурации бота
type Config struct {
	Token           string           // Токен бота
	Expiration      time.Duration    // Время хранения состояний пользователя
	CleanupInterval time.Duration    // Интервал очистки кеша
	States          map[string]State // Карта состояний
	InitialState    string           // Состояние пользователя, у которого его ещё нет или оно истекло

	RatePerSec     float64 // Общий лимит исходящих запросов, 0 - без лимита
	ChatRatePerSec float64 // Лимит сообщений в один чат, 0 - без лимита
	ChatBurst      int
}

// Bot структура для бота
type Bot struct {
	API           API              // API бота. Экспортируется для доступа к нему из вне
	expiration    time.Duration    // Время хранения состояний пользователя
	limiter       *Limiter         // Лимитер для ограничения количества запросов к API
	cache         *gocache.Cache   // Кеш для хранения состояний пользователей
	logger        *zap.Logger      // Логгер для записи событий
	states        map[string]State // Состояния пользователя
	globalStates  []*State         // Состояния, в которые может перейти пользователь из любого другого
	initialState  string           // Состояние по умолчанию
	updateHandler HandlerFunc      // Обработчик, который будет вызываться при получении любого обновления
	mu            sync.Mutex       // Мьютекс для проверки состояния бота
	statesMu      sync.RWMutex     // Мьютекс для безопасного обновления состояний
	ctx           context.Context  // Контекст запущенного бота, используется для отправки

	IgnoreList []int64 // Список ID пользователей, которые будут игнорироваться
}

// NewBot конструктор нового бота
// logger - необязательный параметр, если не передан, то будет создан новый логгер
func NewBot(config Config, ignoreList []int64, logger ...*zap.Logger) (*Bot, error) {
	if config.Token == "" {
		return nil, ErrInvalidToken
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	botAPI, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, NewValidationError(ErrTelegramInit, err)
	}
	return NewBotWithAPI(botAPI, config, ignoreList, logger...)
}

// NewBotWithAPI создаёт бота поверх готового клиента API
func NewBotWithAPI(api API, config Config, ignoreList []int64, logger ...*zap.Logger) (*Bot, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	// Если карта состояний пуста, то нужно ее инициализировать, чтобы избежать ошибок
	if config.States == nil {
		config.States = make(map[string]State)
	}
	if config.InitialState != "" {
		if _, ok := config.States[config.InitialState]; !ok {
			return nil, NewValidationError(ErrStateHandlerNotFound, config.InitialState)
		}
	}

	var zapLogger *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		zapLogger = logger[0]
	} else {
		var err error
		zapLogger, err = zaplogger.New("info")
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	app := &Bot{
		API:          api,
		limiter:      NewLimiter(config.RatePerSec, config.ChatRatePerSec, config.ChatBurst),
		cache:        gocache.New(config.Expiration, config.CleanupInterval),
		expiration:   config.Expiration,
		initialState: config.InitialState,
		logger:       zapLogger,
		ctx:          context.Background(),
		IgnoreList:   ignoreList,
	}
	app.setStates(config.States)
	return app, nil
}

func validateConfig(config Config) error {
	if config.Expiration < 0 {
		return NewValidationError(ErrNegativeExpiration, config.Expiration)
	}
	if config.CleanupInterval < 0 {
		return NewValidationError(ErrNegativeCleanup, config.CleanupInterval)
	}
	return nil
}

// SetLogger заменяет текущий логгер
// Должен вызываться до Start()
func (b *Bot) SetLogger(logger *zap.Logger) error {
	if !b.mu.TryLock() {
		return NewValidationError(ErrBotStarted, "logger")
	}
	defer b.mu.Unlock()

	b.logger = logger
	return nil
}

// SetUpdateHandler устанавливает обработчик обновлений
// Должен вызываться до Start()
func (b *Bot) SetUpdateHandler(handler HandlerFunc) error {
	if !b.mu.TryLock() {
		return NewValidationError(ErrBotStarted, "update handler")
	}
	defer b.mu.Unlock()

	b.updateHandler = handler
	return nil
}

// Start запускает обработку обновлений в горутине и возвращает канал для ошибок.
// Канал закрывается, когда обработка остановлена.
func (b *Bot) Start(ctx context.Context, offset, timeout int) chan error {
	errChan := make(chan error, 1)

	if !b.mu.TryLock() {
		b.logger.Warn("bot is already running")
		errChan <- ErrBotStarted
		close(errChan)
		return errChan
	}
	b.ctx = ctx

	b.logger.Info("starting bot")
	go func() {
		if err := b.HandleUpdates(ctx, offset, timeout); err != nil {
			errChan <- err
		}
		close(errChan)
	}()

	return errChan
}

// Stop останавливает обработку обновлений
func (b *Bot) Stop() {
	b.API.StopReceivingUpdates() // Останавливаем получение обновлений
	b.mu.Unlock()                // Разблокируем мьютекс, заблокированный в Start()
	b.logger.Info("update handling stopped")
}

// HandleUpdates обрабатывает обновления по одному, пока не закроется канал или контекст
func (app *Bot) HandleUpdates(ctx context.Context, offset, timeout int) error {
	u := tgbotapi.NewUpdate(offset)
	u.Timeout = timeout
	updates := app.API.GetUpdatesChan(u)
	app.logger.Info("handling updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			app.HandleUpdate(ctx, update)
		}
	}
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.Message != nil:
		return "message"
	case update.CallbackQuery != nil:
		return "callback"
	default:
		return "other"
	}
}

// HandleUpdate обрабатывает одно обновление: общий обработчик, глобальные состояния, состояние пользователя
func (app *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	kind := updateKind(update)
	started := time.Now()
	status := "ok"
	defer func() {
		metrics.UpdatesTotal.WithLabelValues(kind, status).Inc()
		metrics.UpdateDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()
	// Паника в обработчике не должна останавливать цикл обновлений
	defer func() {
		if r := recover(); r != nil {
			app.logger.Error("update handler panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			status = "panic"
		}
	}()

	// Обработка любого обновления
	if app.updateHandler != nil {
		if err := app.updateHandler(ctx, app, update); err != nil {
			app.logger.Error("update handler failed", zap.Error(err))
			status = "error"
			return
		}
	}

	if update.SentFrom() == nil {
		status = "skipped"
		return
	}
	if slices.Contains(app.IgnoreList, update.SentFrom().ID) {
		status = "ignored"
		return
	}
	if update.FromChat() != nil && slices.Contains(app.IgnoreList, update.FromChat().ID) {
		status = "ignored"
		return
	}
	if update.CallbackQuery != nil {
		defer app.answerCallback(update.CallbackQuery.ID)
	}
	// У нажатия кнопки под inline-сообщением нет чата, отвечать некуда
	if update.FromChat() == nil {
		status = "skipped"
		return
	}

	// Обработка глобальных стейтов
	if app.HandleGlobalStates(ctx, update) {
		return
	}

	userID := update.SentFrom().ID
	userStateName, err := app.GetUserState(userID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) || app.initialState == "" {
			app.logger.Info("user has no state", zap.Int64("user_id", userID), zap.Error(err))
			status = "skipped"
			return
		}
		userStateName = app.initialState
	}

	app.statesMu.RLock()
	userState, ok := app.states[userStateName]
	app.statesMu.RUnlock()
	if !ok {
		// Состояние могло пропасть после ReplaceStates
		app.logger.Error("state not found in states map", zap.String("state", userStateName))
		app.ResetUserState(userID)
		status = "error"
		return
	}

	if _, err := app.SelectHandler(ctx, update, &userState); err != nil {
		app.logger.Error("failed to handle user state", zap.Error(err), zap.String("state", userStateName))
		status = "error"
	}
}

// GetUserState возвращает название состояния, в котором находится пользователь
func (app *Bot) GetUserState(userId int64) (string, error) {
	userStateInterface, ok := app.cache.Get(strconv.FormatInt(userId, 10))
	if !ok {
		return "", ErrStateNotFound
	}

	userState, ok := userStateInterface.(string)
	if !ok {
		return "", ErrInvalidStateType
	}

	return userState, nil
}

// SetUserState меняет состояние пользователя
func (app *Bot) SetUserState(userId int64, state string) error {
	app.statesMu.RLock()
	_, ok := app.states[state]
	app.statesMu.RUnlock()

	if !ok {
		return NewValidationError(ErrStateHandlerNotFound, state)
	}

	app.cache.Set(strconv.FormatInt(userId, 10), state, app.expiration)
	return nil
}

// ResetUserState удаляет состояние, пользователь вернётся в InitialState
func (app *Bot) ResetUserState(userId int64) {
	app.cache.Delete(strconv.FormatInt(userId, 10))
}

// SetUserStateImmediate меняет состояние пользователя и вызывает действие при входе
func (app *Bot) SetUserStateImmediate(ctx context.Context, userId int64, state string, update tgbotapi.Update) error {
	if err := app.SetUserState(userId, state); err != nil {
		return err
	}

	app.statesMu.RLock()
	newState := app.states[state]
	app.statesMu.RUnlock()

	if newState.AtEntranceFunc != nil {
		return newState.AtEntranceFunc.Handle(ctx, app, update)
	}
	return nil
}

// HandleGlobalStates проверяет подходит ли действие пользователя под
// глобальные состояния и если подходит, то выполняет его.
// Возвращает true, если обработчик нашелся и выполнился.
func (app *Bot) HandleGlobalStates(ctx context.Context, update tgbotapi.Update) bool {
	app.statesMu.RLock()
	globals := app.globalStates
	app.statesMu.RUnlock()

	for _, state := range globals {
		handlerIsFound, err := app.SelectHandler(ctx, update, state)
		if err != nil {
			app.logger.Error("failed to handle global state", zap.Error(err))
		}
		if handlerIsFound {
			return true
		}
	}
	return false
}

// SelectHandler выбирает обработчик состояния по типу обновления
func (app *Bot) SelectHandler(ctx context.Context, update tgbotapi.Update, userState *State) (bool, error) {
	switch {
	case update.Message != nil:
		return app.handleMessage(ctx, userState, update)
	case update.CallbackQuery != nil:
		return app.handleCallback(ctx, userState, update)
	}
	return false, nil
}

// handleMessage ищет команду в map'е и выполняет ее
func (app *Bot) handleMessage(ctx context.Context, userState *State, update tgbotapi.Update) (bool, error) {
	command := strings.ToLower(strings.TrimSpace(update.Message.Text))
	if currentAction, ok := userState.MessageHandlers[command]; ok {
		if err := currentAction.Handle(ctx, app, update); err != nil {
			return true, fmt.Errorf("command %q: %w", command, err)
		}
		app.logger.Info("command handled successfully",
			zap.String("command", command),
			zap.Int64("chat_id", update.Message.Chat.ID),
		)
		return true, nil
	}

	if userState.CatchAllFunc != nil && !userState.Global {
		if err := userState.CatchAllFunc.Handle(ctx, app, update); err != nil {
			return false, fmt.Errorf("catch all: %w", err)
		}
		return false, nil
	}

	if !userState.Global {
		app.logger.Info("command not found", zap.Int64("chat_id", update.Message.Chat.ID))
	}
	return false, nil
}

// handleCallback ищет обработчик нажатия сначала по точному совпадению, затем по префиксу
func (app *Bot) handleCallback(ctx context.Context, userState *State, update tgbotapi.Update) (bool, error) {
	data := update.CallbackQuery.Data

	currentAction, ok := userState.CallbackHandlers[data]
	if !ok {
		for prefix, h := range userState.CallbackPrefixHandlers {
			if strings.HasPrefix(data, prefix) {
				currentAction, ok = h, true
				break
			}
		}
	}
	if ok {
		if err := currentAction.Handle(ctx, app, update); err != nil {
			return true, fmt.Errorf("callback %q: %w", data, err)
		}
		app.logger.Info("callback handled successfully",
			zap.String("callback", data),
			zap.Int64("user_id", update.CallbackQuery.From.ID),
		)
		return true, nil
	}

	if userState.CatchAllFunc != nil && !userState.Global {
		if err := userState.CatchAllFunc.Handle(ctx, app, update); err != nil {
			return false, fmt.Errorf("catch all: %w", err)
		}
		return false, nil
	}

	if !userState.Global {
		app.logger.Info("callback not found",
			zap.String("callback", data),
			zap.Int64("user_id", update.CallbackQuery.From.ID),
		)
	}
	return false, nil
}

// ReplaceStates безопасно заменяет все состояния бота на новые
func (b *Bot) ReplaceStates(newStates map[string]State) {
	b.setStates(newStates)
	b.logger.Info("bot states replaced", zap.Int("count", len(newStates)))
}

func (b *Bot) setStates(newStates map[string]State) {
	newGlobalStates := make([]*State, 0)
	for _, state := range newStates {
		if state.Global {
			stateCopy := state
			newGlobalStates = append(newGlobalStates, &stateCopy)
		}
	}

	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	b.states = newStates
	b.globalStates = newGlobalStates
}
