package handlers

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/thientv98/slack-oauth/internal/config"
)

//go:embed templates/pages.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/pages.html"))

// PageHandler renders the browser-facing install pages
type PageHandler struct {
	redirects config.RedirectURLs
}

func NewPageHandler(cfg *config.Config) *PageHandler {
	return &PageHandler{redirects: cfg.RedirectURLs()}
}

func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	render(w, "home", struct{ RedirectURLs config.RedirectURLs }{h.redirects})
}

func (h *PageHandler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	team := r.URL.Query().Get("team")
	if team == "" {
		team = "your workspace"
	}
	render(w, "success", struct{ Team string }{team})
}

func (h *PageHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("error")
	if code == "" {
		code = "unknown_error"
	}
	render(w, "error", struct{ Error string }{code})
}

func render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
	}
}
