package slack

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/thientv98/slack-oauth/internal/metrics"
	"github.com/thientv98/slack-oauth/internal/storage"
)

const (
	msgNotInstalled      = "❌ App not properly installed. Please reinstall the app."
	msgModalOpenFailed   = "❌ Error opening configuration modal. Please try again."
	msgCommandProcessing = "❌ Error processing command. Please try again."

	commandTimeout = 10 * time.Second
)

// CommandHandler serves the /translate-config slash command
type CommandHandler struct {
	store   storage.Store
	clients ClientFactory
}

func NewCommandHandler(store storage.Store, clients ClientFactory) *CommandHandler {
	return &CommandHandler{store: store, clients: clients}
}

// HandleTranslateConfig opens the configuration modal for the invoking channel.
// Success is an empty 200; failures answer with an ephemeral message.
func (h *CommandHandler) HandleTranslateConfig(w http.ResponseWriter, r *http.Request) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		slog.Error("Failed to parse slash command", "error", err)
		h.respondEphemeral(w, msgCommandProcessing, "parse_error")
		return
	}

	slog.Info("Received slash command",
		"command", cmd.Command,
		"team_id", cmd.TeamID,
		"channel_id", cmd.ChannelID,
		"user_id", cmd.UserID)

	// Slack's trigger_id expires after 3 seconds, so this stays on the request path
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	inst, err := h.store.GetInstallation(ctx, cmd.TeamID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Warn("Slash command from team without installation", "team_id", cmd.TeamID)
		h.respondEphemeral(w, msgNotInstalled, "not_installed")
		return
	}
	if err != nil {
		slog.Error("Failed to load installation", "error", err, "team_id", cmd.TeamID)
		h.respondEphemeral(w, msgCommandProcessing, "error")
		return
	}

	cfg, err := h.store.GetChannelConfig(ctx, cmd.TeamID, cmd.ChannelID)
	if errors.Is(err, storage.ErrNotFound) {
		cfg = storage.DefaultChannelConfig(cmd.TeamID, cmd.ChannelID)
	} else if err != nil {
		slog.Error("Failed to load channel config", "error", err, "team_id", cmd.TeamID, "channel_id", cmd.ChannelID)
		h.respondEphemeral(w, msgCommandProcessing, "error")
		return
	}

	view, err := BuildConfigModal(cfg, ModalMetadata{
		TeamID:      cmd.TeamID,
		ChannelID:   cmd.ChannelID,
		ChannelName: cmd.ChannelName,
	})
	if err != nil {
		slog.Error("Failed to build config modal", "error", err)
		h.respondEphemeral(w, msgCommandProcessing, "error")
		return
	}

	if _, err := h.clients(inst.AccessToken).OpenViewContext(ctx, cmd.TriggerID, view); err != nil {
		slog.Error("Failed to open config modal", "error", err, "team_id", cmd.TeamID)
		h.respondEphemeral(w, msgModalOpenFailed, "modal_error")
		return
	}

	metrics.SlackCommands.WithLabelValues("modal_opened").Inc()
	w.WriteHeader(http.StatusOK)
}

func (h *CommandHandler) respondEphemeral(w http.ResponseWriter, text, outcome string) {
	metrics.SlackCommands.WithLabelValues(outcome).Inc()

	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"response_type": slack.ResponseTypeEphemeral,
		"text":          text,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
