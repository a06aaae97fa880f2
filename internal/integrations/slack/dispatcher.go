package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/thientv98/slack-oauth/internal/metrics"
	"github.com/thientv98/slack-oauth/internal/services"
	"github.com/thientv98/slack-oauth/internal/storage"
)

// Outcome is how an event was classified and handled
type Outcome string

const (
	OutcomePosted        Outcome = "posted"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeBotMessage    Outcome = "skipped_bot"
	OutcomeNoConfig      Outcome = "skipped_no_config"
	OutcomeDisabled      Outcome = "skipped_disabled"
	OutcomeOtherReaction Outcome = "skipped_reaction"
	OutcomeEmptyText     Outcome = "skipped_empty"
	OutcomeNoTranslation Outcome = "no_translation"
	OutcomeNoToken       Outcome = "no_token"
	OutcomeNoMessage     Outcome = "no_message"
	OutcomeError         Outcome = "error"
)

var mentionPattern = regexp.MustCompile(`<@[^>]+>`)

// Dispatcher routes callback events against the channel's saved config.
// Each event is handled on its own; nothing is remembered between events.
type Dispatcher struct {
	store      storage.Store
	translator services.Translator
	clients    ClientFactory
}

func NewDispatcher(store storage.Store, translator services.Translator, clients ClientFactory) *Dispatcher {
	return &Dispatcher{store: store, translator: translator, clients: clients}
}

// Dispatch handles one event_callback envelope
func (d *Dispatcher) Dispatch(ctx context.Context, event slackevents.EventsAPIEvent) Outcome {
	var (
		eventType string
		outcome   Outcome
	)

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		eventType = "message"
		outcome = d.HandleMessage(ctx, event.TeamID, ev)
	case *slackevents.ReactionAddedEvent:
		eventType = "reaction_added"
		outcome = d.HandleReactionAdded(ctx, event.TeamID, ev)
	case *slackevents.AppMentionEvent:
		eventType = "app_mention"
		outcome = d.HandleAppMention(ctx, event.TeamID, ev)
	default:
		eventType = event.InnerEvent.Type
		outcome = OutcomeIgnored
		slog.Debug("Ignoring unhandled event type", "type", event.InnerEvent.Type)
	}

	metrics.SlackEvents.WithLabelValues(eventType, string(outcome)).Inc()
	return outcome
}

// HandleMessage translates plain user messages when new-message translation is on
func (d *Dispatcher) HandleMessage(ctx context.Context, teamID string, ev *slackevents.MessageEvent) Outcome {
	if isBotOrEdit(ev) {
		return OutcomeBotMessage
	}

	cfg, outcome := d.channelConfig(ctx, teamID, ev.Channel)
	if cfg == nil {
		return outcome
	}
	if !cfg.TranslateOnNewMessage {
		return OutcomeDisabled
	}

	translated, outcome := d.translate(ctx, cfg, ev.Text)
	if translated == "" {
		return outcome
	}

	client, ok := tokenClient(ctx, d.store, d.clients, teamID)
	if !ok {
		return OutcomeNoToken
	}
	return d.post(ctx, client, ev.Channel, "", translated, fmt.Sprintf("Auto-translated (%s → %s)", cfg.SourceLanguage, cfg.TargetLanguage))
}

// HandleReactionAdded translates the reacted message when the globe reaction
// is used, replying in its thread.
func (d *Dispatcher) HandleReactionAdded(ctx context.Context, teamID string, ev *slackevents.ReactionAddedEvent) Outcome {
	if ev.Reaction != GlobeReaction {
		return OutcomeOtherReaction
	}

	channelID := ev.Item.Channel
	cfg, outcome := d.channelConfig(ctx, teamID, channelID)
	if cfg == nil {
		return outcome
	}
	if !cfg.TranslateOnReaction {
		return OutcomeDisabled
	}

	client, ok := tokenClient(ctx, d.store, d.clients, teamID)
	if !ok {
		return OutcomeNoToken
	}

	history, err := client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Latest:    ev.Item.Timestamp,
		Limit:     1,
		Inclusive: true,
	})
	if err != nil {
		slog.Error("Failed to fetch reacted message", "error", err, "channel_id", channelID, "ts", ev.Item.Timestamp)
		return OutcomeError
	}
	if len(history.Messages) == 0 {
		slog.Warn("Reacted message not found", "channel_id", channelID, "ts", ev.Item.Timestamp)
		return OutcomeNoMessage
	}

	translated, outcome := d.translate(ctx, cfg, history.Messages[0].Text)
	if translated == "" {
		return outcome
	}
	return d.post(ctx, client, channelID, ev.Item.Timestamp, translated, fmt.Sprintf("Translated (%s → %s)", cfg.SourceLanguage, cfg.TargetLanguage))
}

// HandleAppMention translates the mention text with user references removed
func (d *Dispatcher) HandleAppMention(ctx context.Context, teamID string, ev *slackevents.AppMentionEvent) Outcome {
	cfg, outcome := d.channelConfig(ctx, teamID, ev.Channel)
	if cfg == nil {
		return outcome
	}
	if !cfg.TranslateOnMention {
		return OutcomeDisabled
	}

	text := StripMentions(ev.Text)
	if text == "" {
		return OutcomeEmptyText
	}

	translated, outcome := d.translate(ctx, cfg, text)
	if translated == "" {
		return outcome
	}

	client, ok := tokenClient(ctx, d.store, d.clients, teamID)
	if !ok {
		return OutcomeNoToken
	}
	return d.post(ctx, client, ev.Channel, "", translated, fmt.Sprintf("Translated (%s → %s)", cfg.SourceLanguage, cfg.TargetLanguage))
}

// StripMentions removes every <@...> reference and trims the rest
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

func isBotOrEdit(ev *slackevents.MessageEvent) bool {
	if ev.BotID != "" {
		return true
	}
	switch ev.SubType {
	case SubtypeMessageChanged, SubtypeMessageDeleted, SubtypeBotMessage:
		return true
	}
	return false
}

// channelConfig returns nil with the outcome to report when the channel has
// no saved config or the lookup fails. Events never use the default config.
func (d *Dispatcher) channelConfig(ctx context.Context, teamID, channelID string) (*storage.ChannelConfig, Outcome) {
	cfg, err := d.store.GetChannelConfig(ctx, teamID, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, OutcomeNoConfig
	}
	if err != nil {
		slog.Error("Failed to load channel config", "error", err, "team_id", teamID, "channel_id", channelID)
		return nil, OutcomeError
	}
	return cfg, ""
}

// translate returns "" when there is nothing worth posting
func (d *Dispatcher) translate(ctx context.Context, cfg *storage.ChannelConfig, text string) (string, Outcome) {
	if strings.TrimSpace(text) == "" {
		return "", OutcomeEmptyText
	}

	translated, err := d.translator.Translate(ctx, text, cfg.SourceLanguage, cfg.TargetLanguage)
	if err != nil {
		slog.Error("Translation failed", "error", err, "translator", d.translator.Name())
		return "", OutcomeError
	}
	if translated == "" || translated == text {
		return "", OutcomeNoTranslation
	}
	return translated, ""
}

func (d *Dispatcher) post(ctx context.Context, client API, channelID, threadTS, translated, note string) Outcome {
	options := []slack.MsgOption{
		slack.MsgOptionText("🌐 "+translated, false),
		slack.MsgOptionBlocks(translationBlocks(translated, note)...),
	}
	if threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}

	if _, _, err := client.PostMessageContext(ctx, channelID, options...); err != nil {
		slog.Error("Failed to post translation", "error", err, "channel_id", channelID)
		return OutcomeError
	}
	slog.Info("Translation posted", "channel_id", channelID, "thread_ts", threadTS)
	return OutcomePosted
}
