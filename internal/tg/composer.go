package tg

import (
	"context"
	"errors"
	"fmt"
	"html"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/cache"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func promptMarkup(skip string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if skip != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏭️ Пропустить", skip)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", broadcast.CallbackCancel)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// composerInput ввод для мастера рассылки. false - такой ввод мастер не принимает
func composerInput(update tgbotapi.Update) (broadcast.Input, bool) {
	if q := update.CallbackQuery; q != nil {
		return broadcast.CallbackInput(q.Data), true
	}

	msg := update.Message
	if msg == nil {
		return broadcast.Input{}, false
	}
	switch {
	case len(msg.Photo) > 0:
		// Последний размер самый большой
		return broadcast.MediaInput(model.MediaPhoto, msg.Photo[len(msg.Photo)-1].FileID), true
	case msg.Video != nil:
		return broadcast.MediaInput(model.MediaVideo, msg.Video.FileID), true
	case msg.Voice != nil:
		return broadcast.MediaInput(model.MediaVoice, msg.Voice.FileID), true
	case msg.VideoNote != nil:
		return broadcast.MediaInput(model.MediaVideoNote, msg.VideoNote.FileID), true
	case msg.Text != "":
		return broadcast.TextInput(msg.Text), true
	}
	return broadcast.Input{}, false
}

// HandleComposer ведет черновик рассылки по шагам. Без черновика ввод игнорируется
func HandleComposer(ctx context.Context, app *Bot, update tgbotapi.Update) error {
	chat, from := update.FromChat(), update.SentFrom()
	if chat == nil || from == nil || app.svc.Drafts == nil {
		return nil
	}
	draft, ok := app.svc.Drafts.Get(chat.ID)
	if !ok {
		return nil
	}
	in, ok := composerInput(update)
	if !ok {
		return nil
	}
	cancel := in.Kind == broadcast.InputCallback && in.Callback == broadcast.CallbackCancel
	if !cancel && !app.isAdmin(ctx, from) {
		return nil
	}

	next, effect := broadcast.Advance(draft, in)
	logger.Debugf("Рассылка %s: шаг %s, %s", draft.BroadcastID, draft.Step, effect)

	switch effect {
	case broadcast.EffectIgnore:
		return nil
	case broadcast.EffectCancel:
		app.svc.Drafts.Delete(chat.ID)
		logger.Infof("Рассылка %s отменена", draft.BroadcastID)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Вернуться в админку", CallbackAdminPanel)),
		)
		_, err := app.sendHTML(ctx, chat.ID, "❌ Создание рассылки отменено.", &markup)
		return err
	}

	saved, err := app.svc.Drafts.Save(chat.ID, next)
	if errors.Is(err, cache.ErrStaleDraft) || errors.Is(err, cache.ErrDraftNotFound) {
		// Черновик изменен другим обновлением, этот ввод опоздал
		logger.Warnf("Рассылка %s: %v", draft.BroadcastID, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("не удалось сохранить черновик: %w", err)
	}

	switch effect {
	case broadcast.EffectPrompt:
		prompt := broadcast.PromptFor(saved)
		markup := promptMarkup(prompt.Skip)
		_, err := app.sendHTML(ctx, chat.ID, prompt.Text, &markup)
		return err
	case broadcast.EffectPreview:
		return app.sendPreview(ctx, chat.ID, saved)
	case broadcast.EffectExecute:
		return app.executeBroadcast(ctx, chat.ID, saved)
	}
	return nil
}

// executeBroadcast запускает рассылку и присылает админу отчет. Черновик удаляется после отправки
func (app *Bot) executeBroadcast(ctx context.Context, chatID int64, d model.Draft) error {
	defer app.svc.Drafts.Delete(chatID)

	progress := func(text string) {
		app.sendOrLog(ctx, chatID, text, nil)
	}
	report, err := app.svc.Executor.Execute(ctx, d, progress)
	if err != nil {
		logger.Errorf("Рассылка %s не выполнена: %v", d.BroadcastID, err)
		_, sendErr := app.sendHTML(ctx, chatID, "❌ Ошибка при рассылке: "+html.EscapeString(err.Error()), nil)
		return sendErr
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📈 Статистика рассылок", CallbackBroadcastsStats)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Вернуться в админку", CallbackAdminPanel)),
	)
	_, err = app.sendHTML(ctx, chatID, broadcast.RenderReport(report), &markup)
	return err
}
