package tg

import (
	"context"
	"strings"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/infrastructure/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback данные кнопок админки
const (
	CallbackAdminPanel      = "admin_panel"
	CallbackAdminStats      = "admin_stats"
	CallbackBroadcastsStats = "admin_broadcasts_stats"
	CallbackNewBroadcast    = "admin_broadcast"
	CallbackAdminUsers      = "admin_users"
	CallbackBackToStart     = "back_to_start"
)

type HandlerFunc func(ctx context.Context, app *Bot, update tgbotapi.Update) error

type Handler struct {
	Func        HandlerFunc
	Description string
	AdminOnly   bool // Для не админов показывается алерт, обработчик не вызывается
}

// Routes таблица маршрутов бота
type Routes struct {
	MessageRoute  map[string]Handler // Команды, ключ в нижнем регистре
	CallBackRoute map[string]Handler
	PrefixRoute   map[string]Handler // Callback с параметром после префикса

	CatchAll         Handler // Любые сообщения, не найденные в MessageRoute
	CatchAllCallBack Handler
}

// match ищет обработчик callback: сначала точное совпадение, потом префикс
func (r Routes) match(data string) (Handler, bool) {
	if h, ok := r.CallBackRoute[data]; ok {
		return h, true
	}
	for prefix, h := range r.PrefixRoute {
		if strings.HasPrefix(data, prefix) {
			return h, true
		}
	}
	return Handler{}, false
}

var composerHandler = Handler{Func: HandleComposer, Description: "Мастер рассылки"}

// DefaultRoutes маршруты бота
func DefaultRoutes() Routes {
	return Routes{
		MessageRoute: map[string]Handler{
			"/start": {Func: HandleStart, Description: "Приветствие и регистрация"},
			"/admin": {Func: HandleAdminCommand, Description: "Админ-панель"},
		},
		CallBackRoute: map[string]Handler{
			CallbackAdminPanel:      {Func: HandleAdminPanel, Description: "Админ-панель", AdminOnly: true},
			CallbackAdminStats:      {Func: HandleAdminStats, Description: "Статистика", AdminOnly: true},
			CallbackBroadcastsStats: {Func: HandleBroadcastsStats, Description: "Статистика рассылок", AdminOnly: true},
			CallbackNewBroadcast:    {Func: HandleNewBroadcast, Description: "Новая рассылка", AdminOnly: true},
			CallbackAdminUsers:      {Func: HandleAdminUsers, Description: "Пользователи", AdminOnly: true},
			CallbackBackToStart:     {Func: HandleBackToStart, Description: "Назад к старту"},

			broadcast.CallbackSkipSubtitle: composerHandler,
			broadcast.CallbackSkipMedia:    composerHandler,
			broadcast.CallbackSkipButton:   composerHandler,
			broadcast.CallbackConfirm:      composerHandler,
			broadcast.CallbackCancel:       composerHandler,
		},
		PrefixRoute: map[string]Handler{
			broadcast.DetailPrefix: {Func: HandleBroadcastDetail, Description: "Детальная статистика", AdminOnly: true},
		},
		CatchAll: composerHandler,
		CatchAllCallBack: Handler{
			Func: func(ctx context.Context, app *Bot, update tgbotapi.Update) error {
				logger.Debugf("Неизвестная кнопка %q", update.CallbackQuery.Data)
				return nil
			},
			Description: "Неизвестная кнопка",
		},
	}
}
