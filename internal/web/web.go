// Package web serves a single-page dashboard mirroring the terminal monitor.
//
// The page is rendered once with html/template and then driven entirely by the /events
// websocket feed: "status" messages refresh the state panel and "dispatch" messages are
// prepended to the recent list.
//
// Routes
//
//	GET / → dashboard page
package web

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed dashboard.html
var dashboardHTML string

var dashboard = template.Must(template.New("dashboard").Parse(dashboardHTML))

// DashboardData is the template input.
type DashboardData struct {
	Title      string
	EventsPath string
	StatusPath string
	MaxItems   int
}

// DashboardHandler renders the dashboard page.
type DashboardHandler struct {
	data DashboardData
}

// NewDashboardHandler creates the handler. Empty fields fall back to the daemon's routes.
func NewDashboardHandler(data DashboardData) *DashboardHandler {
	if data.Title == "" {
		data.Title = "spotigest"
	}
	if data.EventsPath == "" {
		data.EventsPath = "/events"
	}
	if data.StatusPath == "" {
		data.StatusPath = "/status"
	}
	if data.MaxItems <= 0 {
		data.MaxItems = 50
	}
	return &DashboardHandler{data: data}
}

func (h *DashboardHandler) Routes() []string {
	return []string{"GET /{$}"}
}

func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := dashboard.Execute(&buf, h.data); err != nil {
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
