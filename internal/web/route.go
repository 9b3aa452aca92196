package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Маршрутизатор
func (app *WebApp) SetRoutes() *mux.Router {
	// Ссылка партнера в /r/... передается экранированной, путь нельзя декодировать и чистить
	router := mux.NewRouter().UseEncodedPath().SkipClean(true)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", app.HandleHealth).Methods("GET")
	api.HandleFunc("/user", app.HandleUser).Methods("POST")
	api.HandleFunc("/me", app.HandleMe).Methods("POST")
	api.HandleFunc("/partners", app.HandlePartners).Methods("GET")
	api.HandleFunc("/click", app.HandleClick).Methods("POST")
	api.HandleFunc("/subscribers", app.HandleSubscribers).Methods("GET")
	api.HandleFunc("/push", app.HandlePush).Methods("POST")

	router.HandleFunc("/r/{id}/{target:.+}", app.HandleRedirect).Methods("GET")

	if app.opts.BotToken != "" {
		router.HandleFunc("/bot"+app.opts.BotToken, app.HandleWebhook).Methods("POST")
	}

	/////////////////////////////////////////////////////////////////////////////////////////
	//////////////////                   ADMIN                    ///////////////////////////
	/////////////////////////////////////////////////////////////////////////////////////////
	if app.opts.InternalToken != "" {
		router.HandleFunc("/internal/sweep", app.HandleInternalSweep).Methods("POST")
	}

	return router
}
