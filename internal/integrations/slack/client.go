package slack

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/thientv98/slack-oauth/internal/metrics"
	"github.com/thientv98/slack-oauth/internal/storage"
)

// API is the part of the Slack Web API this app calls with a workspace token
type API interface {
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
}

// ClientFactory returns an API client authenticated with a bearer token
type ClientFactory func(token string) API

// NewClientFactory builds clients against apiURL (normally https://slack.com/api/)
func NewClientFactory(apiURL string, httpClient *http.Client) ClientFactory {
	return func(token string) API {
		client := slack.New(token,
			slack.OptionAPIURL(apiURL),
			slack.OptionHTTPClient(httpClient),
		)
		return &instrumentedAPI{client: client}
	}
}

type instrumentedAPI struct {
	client *slack.Client
}

func (a *instrumentedAPI) OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error) {
	resp, err := a.client.OpenViewContext(ctx, triggerID, view)
	metrics.SlackAPICalls.WithLabelValues("views.open", metrics.Status(err)).Inc()
	return resp, err
}

func (a *instrumentedAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	channel, ts, err := a.client.PostMessageContext(ctx, channelID, options...)
	metrics.SlackAPICalls.WithLabelValues("chat.postMessage", metrics.Status(err)).Inc()
	return channel, ts, err
}

func (a *instrumentedAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	resp, err := a.client.GetConversationHistoryContext(ctx, params)
	metrics.SlackAPICalls.WithLabelValues("conversations.history", metrics.Status(err)).Inc()
	return resp, err
}

// tokenClient resolves the team's bearer token and returns a client for it.
// A missing installation or store failure is logged and reported as false.
func tokenClient(ctx context.Context, installations storage.InstallationStore, clients ClientFactory, teamID string) (API, bool) {
	token, err := installations.GetAccessToken(ctx, teamID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Warn("No access token found for team", "team_id", teamID)
		return nil, false
	}
	if err != nil {
		slog.Error("Failed to get access token", "error", err, "team_id", teamID)
		return nil, false
	}
	return clients(token), true
}

// runAsync is how handlers move work off the request goroutine
func runAsync(f func()) {
	go f()
}
