package web

import (
	"net"
	"net/http"
	"strings"
	"time"

	"partnerapp/internal/infrastructure/logger"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestIDMiddleware присваивает запросу id и пишет строку access лога
func (app *WebApp) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if app.opts.BotToken != "" && strings.HasPrefix(path, "/bot") {
			path = "/bot<token>"
		}
		logger.With(map[string]interface{}{
			"request_id":  id,
			"method":      r.Method,
			"path":        path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("HTTP запрос")
	})
}

// CORSMiddleware разрешает запросы мини приложения с любого origin
func (app *WebApp) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+initDataHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP первый адрес из X-Forwarded-For, иначе адрес соединения
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (app *WebApp) limiterFor(ip string) *rate.Limiter {
	if v, ok := app.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(app.opts.RateLimitRPS), app.opts.RateLimitBurst)
	// Add не перезапишет лимитер, созданный параллельным запросом
	if err := app.limiters.Add(ip, limiter, gocache.DefaultExpiration); err != nil {
		if v, ok := app.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// LimitMiddleware ограничение количества запросов от одного IP.
// Вебхук и редиректы не ограничиваются
func (app *WebApp) LimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.opts.RateLimitRPS <= 0 || strings.HasPrefix(r.URL.Path, "/r/") || strings.HasPrefix(r.URL.Path, "/bot") {
			next.ServeHTTP(w, r)
			return
		}
		if !app.limiterFor(clientIP(r)).Allow() {
			logger.Warnf("(%s) Превышен лимит запросов", clientIP(r))
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
