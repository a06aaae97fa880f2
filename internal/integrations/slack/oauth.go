package slack

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/thientv98/slack-oauth/internal/config"
	"github.com/thientv98/slack-oauth/internal/metrics"
	"github.com/thientv98/slack-oauth/internal/storage"
)

const (
	// AuthorizeURL is Slack's OAuth v2 consent page
	AuthorizeURL = "https://slack.com/oauth/v2/authorize"
	// Scopes requested for the bot token, comma separated as Slack expects
	Scopes = "channels:read,chat:write,commands,incoming-webhook,users:read"

	oauthExchangeTimeout = 15 * time.Second
)

// HTTPDoer is the transport used for the server-to-server token exchange
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OAuthHandler drives the install flow: consent redirect, code exchange,
// installation upsert and the final redirect to a result page.
type OAuthHandler struct {
	clientID      string
	clientSecret  string
	redirects     config.RedirectURLs
	installations storage.InstallationStore
	httpClient    HTTPDoer
	newState      func() string
}

func NewOAuthHandler(cfg *config.Config, installations storage.InstallationStore, httpClient HTTPDoer) *OAuthHandler {
	return &OAuthHandler{
		clientID:      cfg.SlackClientID,
		clientSecret:  cfg.SlackClientSecret,
		redirects:     cfg.RedirectURLs(),
		installations: installations,
		httpClient:    httpClient,
		newState:      func() string { return uuid.New().String() },
	}
}

// Authorize redirects the browser to Slack's consent page
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	if h.clientID == "" {
		slog.Error("OAuth authorize requested without SLACK_CLIENT_ID")
		writeConfigurationError(w, "SLACK_CLIENT_ID is not configured. Set it in the environment and restart the server.")
		return
	}

	// TODO: persist the state and verify it on callback; it is currently not checked
	state := h.newState()

	params := url.Values{}
	params.Set("client_id", h.clientID)
	params.Set("scope", Scopes)
	params.Set("redirect_uri", h.redirects.OAuthCallback)
	params.Set("state", state)

	slog.Info("Redirecting to Slack OAuth", "redirect_uri", h.redirects.OAuthCallback)
	http.Redirect(w, r, AuthorizeURL+"?"+params.Encode(), http.StatusFound)
}

// Callback handles Slack's return leg. It always ends in a redirect.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if slackErr := query.Get("error"); slackErr != "" {
		slog.Warn("Slack reported an OAuth error", "error", slackErr)
		h.redirectError(w, r, slackErr)
		return
	}

	code := query.Get("code")
	if code == "" {
		slog.Warn("OAuth callback without code")
		h.redirectError(w, r, "no_code")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), oauthExchangeTimeout)
	defer cancel()

	resp, err := slack.GetOAuthV2ResponseContext(ctx, h.httpClient, h.clientID, h.clientSecret, code, h.redirects.OAuthCallback)
	if err != nil {
		errorCode := oauthErrorCode(resp, err)
		slog.Error("OAuth token exchange failed", "error", err, "error_code", errorCode)
		h.redirectError(w, r, errorCode)
		return
	}

	inst := &storage.Installation{
		TeamID:      resp.Team.ID,
		TeamName:    resp.Team.Name,
		AccessToken: resp.AccessToken,
		BotUserID:   resp.BotUserID,
		Scope:       resp.Scope,
	}
	if err := h.installations.UpsertInstallation(ctx, inst); err != nil {
		// The grant succeeded; a lost token is degraded state, not a user error
		slog.Error("Failed to save installation", "error", err, "team_id", inst.TeamID)
	} else {
		slog.Info("Installation saved", "team_id", inst.TeamID, "team_name", inst.TeamName)
	}

	metrics.OAuthCallbacks.WithLabelValues("success").Inc()
	http.Redirect(w, r, h.redirects.Success+"?"+url.Values{"team": {inst.TeamName}}.Encode(), http.StatusFound)
}

func (h *OAuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	metrics.OAuthCallbacks.WithLabelValues("error").Inc()
	http.Redirect(w, r, h.redirects.Error+"?"+url.Values{"error": {code}}.Encode(), http.StatusFound)
}

// oauthErrorCode maps an exchange failure to the code shown on the error page
func oauthErrorCode(resp *slack.OAuthV2Response, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "slack_api_timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "slack_api_timeout"
	}
	if resp != nil && resp.Error != "" {
		return resp.Error
	}
	var apiErr slack.SlackErrorResponse
	if errors.As(err, &apiErr) && apiErr.Err != "" {
		return apiErr.Err
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return "slack_api_error"
	}
	return "oauth_failed"
}

func writeConfigurationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>Configuration Error</title></head>"+
		"<body><h1>Configuration Error</h1><p>%s</p></body></html>", html.EscapeString(message))
}
