package server

import (
	"encoding/json"
	"net/http"
)

// StatusFunc returns the JSON-serializable daemon status.
type StatusFunc func() any

// StatusHandler serves GET /status.
type StatusHandler struct {
	status StatusFunc
}

func NewStatusHandler(status StatusFunc) *StatusHandler {
	return &StatusHandler{status: status}
}

func (h *StatusHandler) Routes() []string {
	return []string{"GET /status"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
