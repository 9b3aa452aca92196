package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"
	"partnerapp/internal/tracking"
	"partnerapp/internal/users"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Mode      string `json:"mode"`
}

func (app *WebApp) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: app.now().UTC().Format(time.RFC3339),
		Version:   app.opts.Version,
		Mode:      app.opts.Mode,
	})
}

type userRequest struct {
	ID           model.TelegramID `json:"id"`
	Username     string           `json:"username"`
	FirstName    string           `json:"first_name"`
	LanguageCode string           `json:"language_code"`
}

// HandleUser регистрация пользователя при открытии мини приложения
func (app *WebApp) HandleUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	registered, err := app.deps.Users.RegisterFromApp(r.Context(), users.Profile{
		ID:        int64(req.ID),
		Username:  req.Username,
		FirstName: req.FirstName,
	})
	if err != nil {
		logger.Errorf("(%s) HandleUser %d: %v", r.RemoteAddr, req.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "registered": registered})
}

type meRequest struct {
	ID       model.TelegramID `json:"id"`
	Username string           `json:"username"`
}

// HandleMe является ли пользователь админом
func (app *WebApp) HandleMe(w http.ResponseWriter, r *http.Request) {
	var req meRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := app.initUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid init data")
		return
	}
	if user != nil {
		req.ID, req.Username = model.TelegramID(user.ID), user.Username
	}

	isAdmin, err := app.deps.Users.IsAdmin(r.Context(), req.Username, int64(req.ID))
	if err != nil {
		logger.Errorf("(%s) HandleMe: %v", r.RemoteAddr, err)
		writeError(w, http.StatusInternalServerError, "Failed to check admin")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": isAdmin})
}

func (app *WebApp) HandlePartners(w http.ResponseWriter, r *http.Request) {
	partners, err := app.deps.Clicks.Partners(r.Context())
	if err != nil {
		logger.Errorf("(%s) HandlePartners: %v", r.RemoteAddr, err)
		writeError(w, http.StatusInternalServerError, "Failed to load partners")
		return
	}
	writeJSON(w, http.StatusOK, partners)
}

type clickRequest struct {
	TelegramID model.TelegramID `json:"telegram_id"`
	URL        string           `json:"url"`
	Title      string           `json:"title"`
	Category   string           `json:"category"`
}

type clickResponse struct {
	OK            bool `json:"ok"`
	Success       bool `json:"success"`
	Clicks        int  `json:"clicks"`
	PromocodeSent bool `json:"promocode_sent"`
}

func (app *WebApp) HandleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TelegramID == 0 || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "telegram_id and url are required")
		return
	}

	res, err := app.deps.Clicks.Register(r.Context(), tracking.ClickInput{
		TelegramID: int64(req.TelegramID),
		URL:        req.URL,
		Title:      req.Title,
		Category:   req.Category,
	})
	if err != nil {
		logger.Errorf("(%s) HandleClick %d: %v", r.RemoteAddr, req.TelegramID, err)
		writeError(w, http.StatusInternalServerError, "Failed to register click")
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{OK: true, Success: true, Clicks: res.Clicks, PromocodeSent: res.PromocodeSent})
}

func (app *WebApp) HandleSubscribers(w http.ResponseWriter, r *http.Request) {
	total, subscribed, err := app.deps.Users.Counts(r.Context())
	if err != nil {
		logger.Errorf("(%s) HandleSubscribers: %v", r.RemoteAddr, err)
		writeError(w, http.StatusInternalServerError, "Failed to load users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total, "subscribed": subscribed})
}

type pushRequest struct {
	Title string `json:"title"`
	Msg   string `json:"msg"`
	Link  string `json:"link"`
}

// HandlePush быстрая рассылка из мини приложения
func (app *WebApp) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Msg) == "" {
		writeError(w, http.StatusBadRequest, "title or msg is required")
		return
	}

	user, err := app.initUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid init data")
		return
	}
	if user != nil {
		isAdmin, err := app.deps.Users.IsAdmin(r.Context(), user.Username, user.ID)
		if err != nil {
			logger.Errorf("(%s) HandlePush: %v", r.RemoteAddr, err)
			writeError(w, http.StatusInternalServerError, "Failed to check admin")
			return
		}
		if !isAdmin {
			writeError(w, http.StatusUnauthorized, "Admin rights required")
			return
		}
	}

	// Рассылка доходит до конца, даже если клиент отключился
	res, err := app.deps.Executor.Push(context.WithoutCancel(r.Context()), req.Title, req.Msg, req.Link)
	if err != nil {
		logger.Errorf("(%s) HandlePush: %v", r.RemoteAddr, err)
		writeError(w, http.StatusInternalServerError, "Failed to send push")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
