package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/scheduler"
	"partnerapp/internal/tracking"
	"partnerapp/internal/users"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	gocache "github.com/patrickmn/go-cache"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const initDataHeader = "X-Telegram-Init-Data"

// UpdateDispatcher принимает обновления из вебхука
type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update)
}

type SweepRunner interface {
	RunOnce(ctx context.Context) (scheduler.Report, error)
}

type Deps struct {
	Users     *users.Service
	Clicks    *tracking.Clicks
	Tracker   *tracking.Tracker
	Executor  *broadcast.Executor
	Bot       UpdateDispatcher
	Scheduler SweepRunner
}

type Options struct {
	BotToken        string
	Version         string
	Mode            string
	RequireInitData bool
	InternalToken   string // Пустой - /internal/sweep не регистрируется
	RateLimitRPS    float64
	RateLimitBurst  int
}

// WebApp HTTP API мини приложения, редирект рассылок и вебхук бота
type WebApp struct {
	Router *mux.Router

	deps     Deps
	opts     Options
	limiters *gocache.Cache // лимитер запросов на каждый IP
	now      func() time.Time
}

func NewWebApp(deps Deps, opts Options) *WebApp {
	app := &WebApp{
		deps:     deps,
		opts:     opts,
		limiters: gocache.New(10*time.Minute, 10*time.Minute),
		now:      time.Now,
	}
	app.Router = app.SetRoutes()
	return app
}

// Handler роутер с middleware. Middleware навешаны снаружи, чтобы preflight и 404
// тоже получали CORS заголовки и request id
func (app *WebApp) Handler() http.Handler {
	return app.RequestIDMiddleware(app.CORSMiddleware(app.LimitMiddleware(app.Router)))
}

// Serve запускает HTTP сервер и останавливает его после отмены ctx
func (app *WebApp) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ошибка при запуске сервера: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Остановка HTTP сервера")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("не удалось остановить сервер: %w", err)
	}
	return nil
}

// validateInitData проверяет подпись initData мини приложения
func validateInitData(raw, token string) (*initdata.InitData, error) {
	if raw == "" {
		return nil, errors.New("missing parameter: initData")
	}
	if err := initdata.Validate(raw, token, time.Hour); err != nil {
		return nil, err
	}
	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// initUser пользователь из проверенного initData. nil, nil - проверка выключена
func (app *WebApp) initUser(r *http.Request) (*initdata.User, error) {
	if !app.opts.RequireInitData {
		return nil, nil
	}
	data, err := validateInitData(r.Header.Get(initDataHeader), app.opts.BotToken)
	if err != nil {
		logger.Warnf("(%s) Неверные телеграмм данные: %v", r.RemoteAddr, err)
		return nil, err
	}
	if data.User.ID == 0 {
		return nil, errors.New("в initData нет пользователя")
	}
	return &data.User, nil
}
