package web

import (
	"encoding/json"
	"net/http"

	"partnerapp/internal/infrastructure/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Не удалось записать ответ: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON разбирает тело запроса. При ошибке сам отвечает 400
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		logger.Warnf("(%s) %s: ошибка при разборе JSON: %v", r.RemoteAddr, r.URL.Path, err)
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
