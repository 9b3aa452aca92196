package tg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"
	"partnerapp/internal/users"
	"partnerapp/pkg/request"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// send отправляет сообщение через очередь запросов
func (app *Bot) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	err := app.queue.HandleSyncRequest(ctx, func() error {
		var err error
		msg, err = app.api.Send(c)
		return err
	})
	return msg, err
}

// request для методов, которые возвращают не сообщение (удаление, ответ на callback)
func (app *Bot) request(ctx context.Context, c tgbotapi.Chattable) error {
	return app.queue.HandleSyncRequest(ctx, func() error {
		_, err := app.api.Request(c)
		return err
	})
}

// retryable временная ошибка: сеть, 429 или ошибка сервера Telegram
func retryable(err error) bool {
	if errors.Is(err, request.ErrStopped) || errors.Is(err, request.ErrNotProcessing) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}

// reply отправка служебного сообщения админу или пользователю с повторами
func (app *Bot) reply(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	operation := func() error {
		var err error
		msg, err = app.send(ctx, c)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(app.newBackOff(), uint64(app.opts.OperatorRetries-1)), ctx)
	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		logger.Warnf("Повтор отправки через %s: %v", wait, err)
	})
	return msg, err
}

func newHTMLMessage(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	return msg
}

// sendHTML служебное HTML сообщение с повторами
func (app *Bot) sendHTML(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	return app.reply(ctx, newHTMLMessage(chatID, text, markup))
}

func (app *Bot) sendOrLog(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if _, err := app.sendHTML(ctx, chatID, text, markup); err != nil {
		logger.Errorf("Не удалось отправить сообщение в чат %d: %v", chatID, err)
	}
}

// editOrSend меняет экран на месте. Если сообщение нельзя изменить, отправляет новое
func (app *Bot) editOrSend(ctx context.Context, chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
		_, err := app.send(ctx, edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		logger.Debugf("Не удалось изменить сообщение %d: %v", messageID, err)
	}
	_, err := app.sendHTML(ctx, chatID, text, &markup)
	return err
}

func (app *Bot) answer(ctx context.Context, callbackID, text string, showAlert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = showAlert
	return app.request(ctx, cfg)
}

func (app *Bot) answerOrLog(ctx context.Context, callbackID, text string, showAlert bool) {
	if err := app.answer(ctx, callbackID, text, showAlert); err != nil {
		logger.Warnf("Не удалось ответить на callback %s: %v", callbackID, err)
	}
}

// SendText личное сообщение без повторов. Возвращает id сообщения
func (app *Bot) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	msg, err := app.send(ctx, newHTMLMessage(chatID, text, nil))
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (app *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return app.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID))
}

// FetchProfile актуальные данные пользователя. Идет в низкоприоритетной очереди,
// чтобы фоновая проверка не тормозила ответы пользователям
func (app *Bot) FetchProfile(ctx context.Context, chatID int64) (users.Profile, error) {
	var chat tgbotapi.Chat
	err := app.queue.HandleSyncLowPriorityRequest(ctx, func() error {
		var err error
		chat, err = app.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
		return err
	})
	if err != nil {
		return users.Profile{}, err
	}
	return users.Profile{ID: chat.ID, Username: chat.UserName, FirstName: chat.FirstName}, nil
}

// SendAllAdmins отправляет сообщение всем чатам из TELEGRAM_ADMIN_CHAT_IDS
func (app *Bot) SendAllAdmins(ctx context.Context, text string) {
	for _, chatID := range app.opts.AdminChatIDs {
		app.sendOrLog(ctx, chatID, text, nil)
	}
}

// fileFor ссылки отправляются как URL, остальное считается file_id
func fileFor(source string) tgbotapi.RequestFileData {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return tgbotapi.FileURL(source)
	}
	return tgbotapi.FileID(source)
}

func buttonMarkup(text, link string) *tgbotapi.InlineKeyboardMarkup {
	if text == "" || link == "" {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(text, link),
	))
	return &markup
}

// mediaMessages сообщения для текста с медиа. Фото и видео уходят одним сообщением
// с подписью, голосовое и видеозаметка отдельным сообщением после текста
func mediaMessages(chatID int64, text string, media model.MediaKind, source string, markup *tgbotapi.InlineKeyboardMarkup) []tgbotapi.Chattable {
	if source == "" {
		media = model.MediaNone
	}

	switch media {
	case model.MediaPhoto:
		photo := tgbotapi.NewPhoto(chatID, fileFor(source))
		photo.Caption, photo.ParseMode = text, tgbotapi.ModeHTML
		if markup != nil {
			photo.ReplyMarkup = *markup
		}
		return []tgbotapi.Chattable{photo}
	case model.MediaVideo:
		video := tgbotapi.NewVideo(chatID, fileFor(source))
		video.Caption, video.ParseMode = text, tgbotapi.ModeHTML
		if markup != nil {
			video.ReplyMarkup = *markup
		}
		return []tgbotapi.Chattable{video}
	case model.MediaVoice:
		return []tgbotapi.Chattable{newHTMLMessage(chatID, text, markup), tgbotapi.NewVoice(chatID, fileFor(source))}
	case model.MediaVideoNote:
		return []tgbotapi.Chattable{newHTMLMessage(chatID, text, markup), tgbotapi.NewVideoNote(chatID, 0, fileFor(source))}
	}
	return []tgbotapi.Chattable{newHTMLMessage(chatID, text, markup)}
}

// Deliver одно сообщение рассылки. Без повторов: ошибка уходит в отчет рассылки
func (app *Bot) Deliver(ctx context.Context, chatID int64, msg broadcast.Message) error {
	for _, c := range mediaMessages(chatID, msg.Text, msg.Media, msg.MediaSource, buttonMarkup(msg.ButtonText, msg.ButtonURL)) {
		if _, err := app.send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// sendPreview предпросмотр рассылки с кнопками подтверждения
func (app *Bot) sendPreview(ctx context.Context, chatID int64, d model.Draft) error {
	preview := broadcast.RenderPreview(d)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Отправить всем", broadcast.CallbackConfirm)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", broadcast.CallbackCancel)),
	)
	for _, c := range mediaMessages(chatID, preview.Text, preview.Media, preview.Source, &markup) {
		if _, err := app.reply(ctx, c); err != nil {
			return fmt.Errorf("не удалось отправить предпросмотр: %w", err)
		}
	}
	return nil
}
