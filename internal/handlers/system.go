package handlers

import (
	"net/http"
	"time"

	"github.com/thientv98/slack-oauth/internal/config"
)

type SystemHandler struct {
	cfg        *config.Config
	translator string
	startedAt  time.Time
	now        func() time.Time
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

type StatusConfig struct {
	ClientIDConfigured      bool                `json:"client_id_configured"`
	ClientSecretConfigured  bool                `json:"client_secret_configured"`
	SigningSecretConfigured bool                `json:"signing_secret_configured"`
	Translator              string              `json:"translator"`
	BaseURL                 string              `json:"base_url"`
	RedirectURLs            config.RedirectURLs `json:"redirect_urls"`
}

type StatusResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Config    StatusConfig `json:"config"`
}

// NewSystemHandler serves liveness and configuration-presence endpoints.
// translator is the name of the active translation provider.
func NewSystemHandler(cfg *config.Config, translator string) *SystemHandler {
	return &SystemHandler{
		cfg:        cfg,
		translator: translator,
		startedAt:  time.Now(),
		now:        time.Now,
	}
}

func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startedAt).Seconds(),
	})
}

func (h *SystemHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// HandleStatus reports which credentials are present, never their values
func (h *SystemHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		Config: StatusConfig{
			ClientIDConfigured:      h.cfg.SlackClientID != "",
			ClientSecretConfigured:  h.cfg.SlackClientSecret != "",
			SigningSecretConfigured: h.cfg.SlackSigningSecret != "",
			Translator:              h.translator,
			BaseURL:                 h.cfg.BaseURL,
			RedirectURLs:            h.cfg.RedirectURLs(),
		},
	})
}
