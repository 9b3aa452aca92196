package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/scheduler"
	"partnerapp/internal/tracking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
)

// HandleRedirect считает клик по кнопке рассылки и отправляет на ссылку партнера.
// Ошибка учета клика не мешает редиректу
func (app *WebApp) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	target, err := tracking.Destination(vars["target"])
	if err != nil {
		logger.Warnf("(%s) Редирект: %v", r.RemoteAddr, err)
		writeError(w, http.StatusBadRequest, "Invalid redirect url")
		return
	}

	id, err := url.PathUnescape(vars["id"])
	if err != nil {
		id = vars["id"]
	}
	b, err := app.deps.Tracker.Redirect(r.Context(), id)
	switch {
	case errors.Is(err, broadcast.ErrBroadcastNotFound):
		logger.Warnf("Редирект: рассылка %s не найдена", id)
	case err != nil:
		logger.Errorf("Редирект %s: не удалось обновить клики: %v", id, err)
	default:
		logger.Infof("Редирект %s: кликов %d, конверсия %s", id, b.ClickCount, b.ConversionRate)
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// updateKind тип обновления для лога
func updateKind(body []byte) string {
	for _, kind := range []string{"message", "callback_query", "edited_message", "my_chat_member"} {
		if gjson.GetBytes(body, kind).Exists() {
			return kind
		}
	}
	return "unknown"
}

// HandleWebhook принимает обновление Telegram и сразу отвечает 200. Обработка идет в фоне
func (app *WebApp) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		logger.Warnf("Вебхук: ошибка при разборе JSON: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	logger.Debugf("Вебхук: обновление %d (%s)", update.UpdateID, updateKind(body))

	app.deps.Bot.Dispatch(context.WithoutCancel(r.Context()), update)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleInternalSweep ручной запуск фоновой проверки
func (app *WebApp) HandleInternalSweep(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(app.opts.InternalToken)) != 1 {
		logger.Warnf("(%s) Неправильный токен", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	report, err := app.deps.Scheduler.RunOnce(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, scheduler.ErrSweepRunning):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, report)
	}
}
