package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thientv98/slack-oauth/internal/apperror"
	"github.com/thientv98/slack-oauth/internal/config"
	"github.com/thientv98/slack-oauth/internal/storage"
)

// brokenStore fails every read the way a lost database connection would
type brokenStore struct {
	*storage.MemoryStore
}

func (brokenStore) GetInstallation(ctx context.Context, teamID string) (*storage.Installation, error) {
	return nil, fmt.Errorf("query failed: %w", apperror.ErrPersistence)
}

func (brokenStore) ListInstallations(ctx context.Context) ([]*storage.Installation, error) {
	return nil, fmt.Errorf("query failed: %w", apperror.ErrPersistence)
}

func newRouter(h *InstallationHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/installations", h.HandleListInstallations).Methods(http.MethodGet)
	router.HandleFunc("/api/installations/{teamId}", h.HandleGetInstallation).Methods(http.MethodGet)
	return router
}

func seededStore(t *testing.T) *storage.MemoryStore {
	t.Helper()

	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertInstallation(ctx, &storage.Installation{
		TeamID: "T1", TeamName: "Acme", AccessToken: "xoxb-1", BotUserID: "UBOT", Scope: "commands",
	}))
	name := "general"
	require.NoError(t, store.UpsertChannelConfig(ctx, &storage.ChannelConfig{
		TeamID: "T1", ChannelID: "C1", ChannelName: &name, TranslateOnMention: true,
	}))
	return store
}

func get(t *testing.T, handler http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return rr, body
}

func TestGetInstallationWithSavedChannel(t *testing.T) {
	router := newRouter(NewInstallationHandler(seededStore(t)))

	rr, body := get(t, router, "/api/installations/T1?channel=C1")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "T1", data["team_id"])
	assert.Equal(t, "xoxb-1", data["access_token"])
	assert.NotContains(t, data, "default_config")

	cfg := data["channel_config"].(map[string]interface{})
	assert.Equal(t, "C1", cfg["channel_id"])
	assert.Equal(t, "general", cfg["channel_name"])
	assert.Equal(t, false, cfg["translate_on_reaction"])
	assert.Equal(t, true, cfg["translate_on_mention"])
	assert.NotNil(t, cfg["created_at"])
}

func TestGetInstallationWithUnsavedChannel(t *testing.T) {
	router := newRouter(NewInstallationHandler(seededStore(t)))

	_, body := get(t, router, "/api/installations/T1?channel=C404")

	cfg := body["data"].(map[string]interface{})["channel_config"].(map[string]interface{})
	assert.Equal(t, "C404", cfg["channel_id"])
	assert.Nil(t, cfg["channel_name"])
	assert.Equal(t, true, cfg["translate_on_reaction"])
	assert.Equal(t, false, cfg["translate_on_new_message"])
	assert.Equal(t, false, cfg["translate_on_mention"])
	assert.Equal(t, "auto", cfg["source_language"])
	assert.Equal(t, "en", cfg["target_language"])
	assert.Nil(t, cfg["created_at"])
	assert.Nil(t, cfg["updated_at"])
}

func TestGetInstallationWithoutChannel(t *testing.T) {
	router := newRouter(NewInstallationHandler(seededStore(t)))

	_, body := get(t, router, "/api/installations/T1")

	data := body["data"].(map[string]interface{})
	assert.NotContains(t, data, "channel_config")
	defaults := data["default_config"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{
		"translate_on_reaction":    true,
		"translate_on_new_message": false,
		"translate_on_mention":     false,
		"source_language":          "auto",
		"target_language":          "en",
	}, defaults)
}

func TestGetInstallationErrors(t *testing.T) {
	rr, body := get(t, newRouter(NewInstallationHandler(seededStore(t))), "/api/installations/T404")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "installation_not_found", body["error"])
	assert.Contains(t, body["message"], "T404")

	rr, body = get(t, newRouter(NewInstallationHandler(brokenStore{storage.NewMemoryStore()})), "/api/installations/T1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "database_error", body["error"])

	// Called outside the router there is no teamId variable
	rr, body = get(t, http.HandlerFunc(NewInstallationHandler(seededStore(t)).HandleGetInstallation), "/api/installations/")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "team_id is required", body["error"])
}

func TestListInstallations(t *testing.T) {
	store := seededStore(t)
	time.Sleep(time.Millisecond)
	require.NoError(t, store.UpsertInstallation(context.Background(), &storage.Installation{TeamID: "T2", AccessToken: "xoxb-2"}))

	rr, body := get(t, newRouter(NewInstallationHandler(store)), "/api/installations")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])
	data := body["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "T2", data[0].(map[string]interface{})["team_id"])
	assert.Equal(t, "xoxb-2", data[0].(map[string]interface{})["access_token"])
}

func TestListInstallationsEmptyAndBroken(t *testing.T) {
	_, body := get(t, newRouter(NewInstallationHandler(storage.NewMemoryStore())), "/api/installations")
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["data"])

	rr, body := get(t, newRouter(NewInstallationHandler(brokenStore{storage.NewMemoryStore()})), "/api/installations")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "database_error", body["error"])
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:           "https://app.example.com",
		SlackClientID:     "123.456",
		SlackClientSecret: "",
	}
}

func TestHealth(t *testing.T) {
	h := NewSystemHandler(testConfig(), "echo")
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.startedAt = start
	h.now = func() time.Time { return start.Add(90 * time.Second) }

	rr, body := get(t, http.HandlerFunc(h.HandleHealth), "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(90), body["uptime"])
	assert.Equal(t, "2024-01-01T12:01:30Z", body["timestamp"])
}

func TestStatus(t *testing.T) {
	h := NewSystemHandler(testConfig(), "openai")

	_, body := get(t, http.HandlerFunc(h.HandleStatus), "/status")

	assert.Equal(t, "healthy", body["status"])
	cfg := body["config"].(map[string]interface{})
	assert.Equal(t, true, cfg["client_id_configured"])
	assert.Equal(t, false, cfg["client_secret_configured"])
	assert.Equal(t, false, cfg["signing_secret_configured"])
	assert.Equal(t, "openai", cfg["translator"])
	assert.Equal(t, "https://app.example.com", cfg["base_url"])
	redirects := cfg["redirect_urls"].(map[string]interface{})
	assert.Equal(t, "https://app.example.com/slack/oauth/callback", redirects["oauth_callback"])
}

func TestPing(t *testing.T) {
	rr := httptest.NewRecorder()
	NewSystemHandler(testConfig(), "echo").HandlePing(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestPages(t *testing.T) {
	h := NewPageHandler(testConfig())

	rr := httptest.NewRecorder()
	h.HandleHome(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `href="/slack/oauth/authorize"`)
	assert.Contains(t, rr.Body.String(), "https://app.example.com/slack/oauth/callback")

	rr = httptest.NewRecorder()
	h.HandleSuccess(rr, httptest.NewRequest(http.MethodGet, "/success?team=Acme+Corp", nil))
	assert.Contains(t, rr.Body.String(), "<strong>Acme Corp</strong>")

	rr = httptest.NewRecorder()
	h.HandleError(rr, httptest.NewRequest(http.MethodGet, "/error?error=access_denied", nil))
	assert.Contains(t, rr.Body.String(), "Error: access_denied")

	rr = httptest.NewRecorder()
	h.HandleHome(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPagesEscapeQueryValues(t *testing.T) {
	h := NewPageHandler(testConfig())

	rr := httptest.NewRecorder()
	h.HandleError(rr, httptest.NewRequest(http.MethodGet, "/error?error=%3Cscript%3Ealert(1)%3C%2Fscript%3E", nil))

	assert.NotContains(t, rr.Body.String(), "<script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}
