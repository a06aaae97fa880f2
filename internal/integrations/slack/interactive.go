package slack

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/thientv98/slack-oauth/internal/metrics"
	"github.com/thientv98/slack-oauth/internal/storage"
)

const interactiveTimeout = 15 * time.Second

// InteractiveHandler receives block actions and view submissions
type InteractiveHandler struct {
	store   storage.Store
	clients ClientFactory
	spawn   func(func())
}

func NewInteractiveHandler(store storage.Store, clients ClientFactory) *InteractiveHandler {
	return &InteractiveHandler{store: store, clients: clients, spawn: runAsync}
}

// HandleInteractive acknowledges every payload with {}, even unparseable ones,
// so the modal closes. Config submissions are saved in the background.
func (h *InteractiveHandler) HandleInteractive(w http.ResponseWriter, r *http.Request) {
	defer writeJSON(w, map[string]interface{}{})

	payload := r.FormValue("payload")
	if payload == "" {
		slog.Error("Missing payload in Slack interactive request")
		return
	}

	var interaction slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &interaction); err != nil {
		slog.Error("Failed to parse interaction payload", "error", err)
		return
	}

	slog.Info("Parsed interaction",
		"type", interaction.Type,
		"callback_id", interaction.View.CallbackID,
		"team_id", interaction.Team.ID)

	if interaction.Type == slack.InteractionTypeViewSubmission && interaction.View.CallbackID == ConfigModalCallbackID {
		h.spawn(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interactiveTimeout)
			defer cancel()
			h.saveConfigSubmission(ctx, interaction.Team.ID, interaction.View)
		})
	}
}

// saveConfigSubmission persists the submitted triggers and posts a
// confirmation. A failed save is logged and the confirmation still goes out.
func (h *InteractiveHandler) saveConfigSubmission(ctx context.Context, teamID string, view slack.View) {
	meta, err := DecodeModalMetadata(view.PrivateMetadata)
	if err != nil {
		slog.Error("Invalid modal metadata", "error", err)
		metrics.ConfigSaves.WithLabelValues("invalid").Inc()
		return
	}
	if meta.TeamID != teamID {
		slog.Error("Modal metadata team does not match submitting team",
			"metadata_team_id", meta.TeamID,
			"team_id", teamID)
		metrics.ConfigSaves.WithLabelValues("invalid").Inc()
		return
	}

	reaction, newMessage, mention := SelectedTriggers(view.State)

	channelName := meta.ChannelName
	cfg := &storage.ChannelConfig{
		TeamID:                meta.TeamID,
		ChannelID:             meta.ChannelID,
		ChannelName:           &channelName,
		TranslateOnReaction:   reaction,
		TranslateOnNewMessage: newMessage,
		TranslateOnMention:    mention,
		SourceLanguage:        storage.DefaultSourceLanguage,
		TargetLanguage:        storage.DefaultTargetLanguage,
	}
	cfg.Normalize()

	if err := h.store.UpsertChannelConfig(ctx, cfg); err != nil {
		slog.Error("Failed to save channel config", "error", err, "team_id", meta.TeamID, "channel_id", meta.ChannelID)
		metrics.ConfigSaves.WithLabelValues("error").Inc()
	} else {
		metrics.ConfigSaves.WithLabelValues("success").Inc()
		slog.Info("Channel config saved",
			"team_id", meta.TeamID,
			"channel_id", meta.ChannelID,
			"translate_on_reaction", cfg.TranslateOnReaction,
			"translate_on_new_message", cfg.TranslateOnNewMessage,
			"translate_on_mention", cfg.TranslateOnMention)
	}

	client, ok := tokenClient(ctx, h.store, h.clients, meta.TeamID)
	if !ok {
		return
	}

	text, blocks := confirmationBlocks(cfg, meta.ChannelName)
	if _, _, err := client.PostMessageContext(ctx, meta.ChannelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	); err != nil {
		slog.Error("Failed to post confirmation message", "error", err, "channel_id", meta.ChannelID)
	}
}
