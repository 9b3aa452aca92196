package tg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/cache"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/tracking"
	"partnerapp/internal/users"
	"partnerapp/pkg/request"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const noAdminRights = "⛔ Нет прав администратора"

// Messenger часть tgbotapi.BotAPI, которой пользуется бот
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// UpdateSource источник обновлений для long polling
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Options struct {
	WebAppURL       string
	AdminChatIDs    []int64
	RequestPause    time.Duration // Пауза между запросами к Telegram API
	BufferSize      int
	OperatorRetries int // Попыток отправки служебного сообщения
}

// Services зависимости обработчиков
type Services struct {
	Users    *users.Service
	Drafts   *cache.DraftStore
	Executor *broadcast.Executor
	Stats    *broadcast.Stats
	Clicks   *tracking.Clicks
}

// Bot обрабатывает обновления Telegram. Все исходящие запросы идут через одну очередь
type Bot struct {
	api    Messenger
	opts   Options
	queue  *request.RequestHandler
	routes Routes
	svc    Services

	newBackOff func() backoff.BackOff
	now        func() time.Time

	wg sync.WaitGroup
}

var (
	_ broadcast.Deliverer  = (*Bot)(nil)
	_ tracking.Messenger   = (*Bot)(nil)
	_ users.ProfileFetcher = (*Bot)(nil)
)

// alert ответ на callback, который показывается пользователю всплывающим окном
type alert string

func (a alert) Error() string { return string(a) }

// Конструктор нового бота. Очередь запросов запускается сразу
func NewBot(api Messenger, opts Options) (*Bot, error) {
	if api == nil {
		return nil, errors.New("api shouldn't be nil")
	}
	if opts.OperatorRetries < 1 {
		opts.OperatorRetries = 1
	}

	queue, err := request.NewRequestHandler(request.Config{
		BufferSize: opts.BufferSize,
		Logger:     logger.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать очередь запросов: %w", err)
	}
	queue.Start(opts.RequestPause)

	return &Bot{
		api:        api,
		opts:       opts,
		queue:      queue,
		routes:     DefaultRoutes(),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:        time.Now,
	}, nil
}

// Bind подключает сервисы. Executor сам зависит от бота, поэтому отдельно от NewBot
func (app *Bot) Bind(svc Services) {
	app.svc = svc
}

// Dispatch обрабатывает обновление в отдельной горутине
func (app *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		// Рассылка должна дойти до конца, даже если входящий запрос уже завершен
		app.HandleUpdate(context.WithoutCancel(ctx), update)
	}()
}

// Wait ждет завершения всех запущенных обработчиков
func (app *Bot) Wait() {
	app.wg.Wait()
}

func (app *Bot) Close() {
	app.queue.StopProcessing()
}

// Poll получает обновления через long polling до отмены ctx
func (app *Bot) Poll(ctx context.Context, source UpdateSource) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := source.GetUpdatesChan(u)
	logger.Info("Бот запущен в режиме long polling")

	for {
		select {
		case <-ctx.Done():
			source.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			app.Dispatch(ctx, update)
		}
	}
}

// HandleUpdate синхронная обработка одного обновления
func (app *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		app.handleMessage(ctx, update)
	case update.CallbackQuery != nil:
		app.handleCallback(ctx, update)
	}
}

func (app *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}

	handler, name := app.routes.CatchAll, "catch_all"
	if msg.IsCommand() {
		command := "/" + strings.ToLower(msg.Command())
		if h, ok := app.routes.MessageRoute[command]; ok {
			handler, name = h, command
		}
	}

	if handler.AdminOnly && !app.isAdmin(ctx, msg.From) {
		app.sendOrLog(ctx, msg.Chat.ID, noAdminRights, nil)
		return
	}
	if handler.Func == nil {
		return
	}
	if err := handler.Func(ctx, app, update); err != nil {
		logger.Errorf("Ошибка обработки %s от %d: %v", name, msg.From.ID, err)
		return
	}
	logger.Debugf("Успешно обработана команда %s от %d", name, msg.From.ID)
}

func (app *Bot) handleCallback(ctx context.Context, update tgbotapi.Update) {
	query := update.CallbackQuery
	if query.From == nil {
		return
	}

	handler, ok := app.routes.match(query.Data)
	if !ok {
		handler = app.routes.CatchAllCallBack
	}

	if handler.AdminOnly && !app.isAdmin(ctx, query.From) {
		app.answerOrLog(ctx, query.ID, noAdminRights, true)
		return
	}

	var err error
	if handler.Func != nil {
		err = handler.Func(ctx, app, update)
	}

	var a alert
	switch {
	case errors.As(err, &a):
		app.answerOrLog(ctx, query.ID, a.Error(), true)
		return
	case err != nil:
		logger.Errorf("Ошибка обработки кнопки %s от %d: %v", query.Data, query.From.ID, err)
	default:
		logger.Debugf("Успешно обработана кнопка %s от %d", query.Data, query.From.ID)
	}
	app.answerOrLog(ctx, query.ID, "", false)
}

func (app *Bot) isAdmin(ctx context.Context, user *tgbotapi.User) bool {
	if user == nil || app.svc.Users == nil {
		return false
	}
	ok, err := app.svc.Users.IsAdmin(ctx, user.UserName, user.ID)
	if err != nil {
		logger.Errorf("Не удалось проверить права %d: %v", user.ID, err)
		return false
	}
	return ok
}
