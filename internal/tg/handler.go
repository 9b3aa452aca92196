package tg

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/users"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	backToAdminRow = tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Назад", CallbackAdminPanel))
	adminPanelText = "⚙️ <b>Админ-панель</b>\n\nВыберите действие:"
)

func adminPanelMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", CallbackAdminStats)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📈 Статистика рассылок", CallbackBroadcastsStats)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📢 Новая рассылка", CallbackNewBroadcast)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👥 Пользователи", CallbackAdminUsers)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Назад", CallbackBackToStart)),
	)
}

// greeting приветствие с кнопкой мини приложения. Админы видят еще вход в админку
func (app *Bot) greeting(ctx context.Context, user *tgbotapi.User) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("👋 <b>Привет, %s!</b>\n\nДобро пожаловать в наш Mini App!\n\n🔗 Нажми кнопку ниже чтобы открыть приложение с партнерскими ссылками.",
		html.EscapeString(user.FirstName))

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🚀 Открыть Mini App", app.opts.WebAppURL)),
	}
	if app.isAdmin(ctx, user) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⚙️ Админ-панель", CallbackAdminPanel)))
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// callbackTarget чат и сообщение, на кнопку которого нажали
func callbackTarget(update tgbotapi.Update) (chatID int64, messageID int) {
	query := update.CallbackQuery
	if query.Message != nil {
		return query.Message.Chat.ID, query.Message.MessageID
	}
	return query.From.ID, 0
}

// HandleStart регистрирует пользователя и отправляет приветствие
func HandleStart(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	from := update.Message.From
	err := app.svc.Users.RegisterFromBot(ctx, users.Profile{ID: from.ID, Username: from.UserName, FirstName: from.FirstName})
	if err != nil {
		// Приветствие все равно отправляем
		logger.Errorf("Не удалось зарегистрировать пользователя %d: %v", from.ID, err)
	}

	text, markup := app.greeting(ctx, from)
	_, err = app.sendHTML(ctx, update.Message.Chat.ID, text, &markup)
	return err
}

// HandleAdminCommand /admin открывает админ-панель новым сообщением
func HandleAdminCommand(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	chatID := update.Message.Chat.ID
	if !app.isAdmin(ctx, update.Message.From) {
		_, err := app.sendHTML(ctx, chatID, noAdminRights, nil)
		return err
	}
	markup := adminPanelMarkup()
	_, err := app.sendHTML(ctx, chatID, adminPanelText, &markup)
	return err
}

func HandleAdminPanel(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	chatID, messageID := callbackTarget(update)
	return app.editOrSend(ctx, chatID, messageID, adminPanelText, adminPanelMarkup())
}

// HandleAdminStats пользователи и клики
func HandleAdminStats(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	total, _, err := app.svc.Users.Counts(ctx)
	if err != nil {
		logger.Errorf("Статистика: %v", err)
		return alert("❌ Ошибка загрузки статистики")
	}
	rows, clicks, err := app.svc.Clicks.Totals(ctx)
	if err != nil {
		logger.Errorf("Статистика: %v", err)
		return alert("❌ Ошибка загрузки статистики")
	}

	text := fmt.Sprintf("📊 <b>Статистика</b>\n\n👥 Всего пользователей: %d\n🔗 Уникальных переходов: %d\n📈 Всего кликов: %d", total, rows, clicks)
	chatID, messageID := callbackTarget(update)
	return app.editOrSend(ctx, chatID, messageID, text, tgbotapi.NewInlineKeyboardMarkup(backToAdminRow))
}

// HandleBroadcastsStats последние рассылки. Для первых пяти кнопки с деталями, по две в ряд
func HandleBroadcastsStats(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	recent, total, err := app.svc.Stats.Recent(ctx, broadcast.RecentLimit)
	if err != nil {
		logger.Errorf("Статистика рассылок: %v", err)
		return alert("❌ Ошибка загрузки статистики")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, item := range recent {
		if i == broadcast.DetailLimit {
			break
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d. %s", i+1, broadcast.ShortName(item.Name)),
			broadcast.DetailPrefix+item.ID,
		))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backToAdminRow)

	chatID, messageID := callbackTarget(update)
	return app.editOrSend(ctx, chatID, messageID, broadcast.RenderList(recent, total), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// HandleBroadcastDetail карточка рассылки broadcast_detail_<id>
func HandleBroadcastDetail(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	id := strings.TrimPrefix(update.CallbackQuery.Data, broadcast.DetailPrefix)
	item, err := app.svc.Stats.Find(ctx, id)
	switch {
	case errors.Is(err, broadcast.ErrBroadcastNotFound):
		return alert("❌ Рассылка не найдена")
	case err != nil:
		logger.Errorf("Рассылка %s: %v", id, err)
		return alert("❌ Ошибка загрузки детальной статистики")
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Назад к списку", CallbackBroadcastsStats)),
	)
	chatID, messageID := callbackTarget(update)
	return app.editOrSend(ctx, chatID, messageID, broadcast.RenderDetail(item), markup)
}

// HandleNewBroadcast заводит черновик и показывает первый шаг
func HandleNewBroadcast(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	chatID, messageID := callbackTarget(update)
	d, err := app.svc.Drafts.Start(chatID, broadcast.NewDraft(chatID, app.now()))
	if err != nil {
		return fmt.Errorf("не удалось сохранить черновик: %w", err)
	}
	logger.Infof("Админ %d начал рассылку %s", update.CallbackQuery.From.ID, d.BroadcastID)
	return app.editOrSend(ctx, chatID, messageID, broadcast.PromptFor(d).Text, promptMarkup(""))
}

func HandleAdminUsers(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	total, subscribed, err := app.svc.Users.Counts(ctx)
	if err != nil {
		logger.Errorf("Пользователи: %v", err)
		return alert("❌ Ошибка загрузки статистики")
	}
	archived, err := app.svc.Users.ArchivedCount(ctx)
	if err != nil {
		logger.Warnf("Архив: %v", err)
	}

	text := fmt.Sprintf("👥 <b>Пользователи</b>\n\nВсего пользователей: %d\nЗапустили бота: %d\nВ архиве: %d\n\nСписок пользователей хранится в таблице.",
		total, subscribed, archived)
	chatID, messageID := callbackTarget(update)
	return app.editOrSend(ctx, chatID, messageID, text, tgbotapi.NewInlineKeyboardMarkup(backToAdminRow))
}

func HandleBackToStart(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	text, markup := app.greeting(ctx, update.CallbackQuery.From)
	chatID, messageID := callbackTarget(update)
	return app.editOrSend(ctx, chatID, messageID, text, markup)
}
