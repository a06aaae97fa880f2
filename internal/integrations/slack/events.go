package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack/slackevents"
)

const eventTimeout = 30 * time.Second

// EventHandler is the Events API endpoint. Callbacks are acknowledged
// immediately and dispatched in the background.
type EventHandler struct {
	dispatcher *Dispatcher
	spawn      func(func())
}

func NewEventHandler(dispatcher *Dispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, spawn: runAsync}
}

type eventEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
}

func (h *EventHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read event body", "error", err)
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		slog.Error("Failed to parse event envelope", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if envelope.Type == slackevents.URLVerification {
		slog.Info("Answering URL verification challenge")
		writeJSON(w, map[string]string{"challenge": envelope.Challenge})
		return
	}

	if envelope.Type == slackevents.CallbackEvent {
		event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
		if err != nil {
			slog.Error("Failed to parse callback event", "error", err)
		} else {
			slog.Info("Received Slack event", "type", event.InnerEvent.Type, "team_id", event.TeamID)
			h.spawn(func() {
				ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
				defer cancel()
				outcome := h.dispatcher.Dispatch(ctx, event)
				slog.Debug("Event handled", "type", event.InnerEvent.Type, "outcome", outcome)
			})
		}
	}

	writeJSON(w, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
