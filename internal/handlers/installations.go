package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/thientv98/slack-oauth/internal/apperror"
	"github.com/thientv98/slack-oauth/internal/storage"
)

const apiTimeout = 10 * time.Second

// InstallationHandler is the read-only admin API over installations
type InstallationHandler struct {
	store storage.Store
}

// DefaultConfig is reported when no channel is asked for
type DefaultConfig struct {
	TranslateOnReaction   bool   `json:"translate_on_reaction"`
	TranslateOnNewMessage bool   `json:"translate_on_new_message"`
	TranslateOnMention    bool   `json:"translate_on_mention"`
	SourceLanguage        string `json:"source_language"`
	TargetLanguage        string `json:"target_language"`
}

type InstallationDetail struct {
	*storage.Installation
	ChannelConfig *storage.ChannelConfig `json:"channel_config,omitempty"`
	DefaultConfig *DefaultConfig         `json:"default_config,omitempty"`
}

type InstallationResponse struct {
	Success bool                `json:"success"`
	Data    *InstallationDetail `json:"data"`
}

type InstallationListResponse struct {
	Success bool                    `json:"success"`
	Count   int                     `json:"count"`
	Data    []*storage.Installation `json:"data"`
}

func NewInstallationHandler(store storage.Store) *InstallationHandler {
	return &InstallationHandler{store: store}
}

// HandleGetInstallation returns one installation with the persisted or
// default config of ?channel=, or the default triggers when it is omitted.
func (h *InstallationHandler) HandleGetInstallation(w http.ResponseWriter, r *http.Request) {
	teamID := strings.TrimSpace(mux.Vars(r)["teamId"])
	if teamID == "" {
		apperror.WriteJSON(w, apperror.ErrValidation, "team_id is required", "Please provide a team_id parameter")
		return
	}
	channelID := strings.TrimSpace(r.URL.Query().Get("channel"))

	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	inst, err := h.store.GetInstallation(ctx, teamID)
	if errors.Is(err, storage.ErrNotFound) {
		apperror.WriteJSON(w, err, "installation_not_found", fmt.Sprintf("No installation found for team_id: %s", teamID))
		return
	}
	if err != nil {
		slog.Error("Error fetching installation", "error", err, "team_id", teamID)
		apperror.WriteJSON(w, err, "database_error", "Error fetching installation data")
		return
	}

	detail := &InstallationDetail{Installation: inst}
	if channelID == "" {
		defaults := storage.DefaultChannelConfig(teamID, "")
		detail.DefaultConfig = &DefaultConfig{
			TranslateOnReaction:   defaults.TranslateOnReaction,
			TranslateOnNewMessage: defaults.TranslateOnNewMessage,
			TranslateOnMention:    defaults.TranslateOnMention,
			SourceLanguage:        defaults.SourceLanguage,
			TargetLanguage:        defaults.TargetLanguage,
		}
	} else {
		cfg, err := h.store.GetChannelConfig(ctx, teamID, channelID)
		if errors.Is(err, storage.ErrNotFound) {
			cfg = storage.DefaultChannelConfig(teamID, channelID)
		} else if err != nil {
			slog.Error("Error fetching channel config", "error", err, "team_id", teamID, "channel_id", channelID)
			apperror.WriteJSON(w, err, "database_error", "Error fetching installation data")
			return
		}
		detail.ChannelConfig = cfg
	}

	writeJSON(w, http.StatusOK, InstallationResponse{Success: true, Data: detail})
}

// HandleListInstallations lists every installation, newest first
func (h *InstallationHandler) HandleListInstallations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	installations, err := h.store.ListInstallations(ctx)
	if err != nil {
		slog.Error("Error fetching installations", "error", err)
		apperror.WriteJSON(w, err, "database_error", "Error fetching installations data")
		return
	}
	if installations == nil {
		installations = []*storage.Installation{}
	}

	writeJSON(w, http.StatusOK, InstallationListResponse{
		Success: true,
		Count:   len(installations),
		Data:    installations,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
