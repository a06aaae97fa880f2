package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thientv98/slack-oauth/internal/storage"
)

type recordedCall struct {
	Method string
	Token  string
	Form   url.Values
	JSON   map[string]interface{}
}

// fakeSlack stands in for https://slack.com/api/ and records every call
type fakeSlack struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string
	server    *httptest.Server
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()

	f := &fakeSlack{
		responses: map[string]string{
			"views.open":            `{"ok":true,"view":{"id":"V123"}}`,
			"chat.postMessage":      `{"ok":true,"channel":"C1","ts":"1700000000.000200"}`,
			"conversations.history": `{"ok":true,"messages":[]}`,
		},
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		call := recordedCall{Method: strings.TrimPrefix(r.URL.Path, "/")}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			_ = json.Unmarshal(body, &call.JSON)
		} else {
			call.Form, _ = url.ParseQuery(string(body))
		}

		call.Token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if call.Token == "" && call.Form != nil {
			call.Token = call.Form.Get("token")
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		resp, ok := f.responses[call.Method]
		f.mu.Unlock()

		if !ok {
			resp = `{"ok":false,"error":"unknown_method"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeSlack) respond(method, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = body
}

func (f *fakeSlack) clients() ClientFactory {
	return NewClientFactory(f.server.URL+"/", f.server.Client())
}

func (f *fakeSlack) callsTo(method string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []recordedCall
	for _, c := range f.calls {
		if c.Method == method {
			matched = append(matched, c)
		}
	}
	return matched
}

func (f *fakeSlack) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func runInline(f func()) { f() }

// installedStore returns a memory store with team T1 installed
func installedStore(t *testing.T) *storage.MemoryStore {
	t.Helper()

	store := storage.NewMemoryStore()
	require.NoError(t, store.UpsertInstallation(context.Background(), &storage.Installation{
		TeamID:      "T1",
		TeamName:    "Acme",
		AccessToken: "xoxb-test",
		BotUserID:   "UBOT",
		Scope:       Scopes,
	}))
	return store
}

func saveConfig(t *testing.T, store storage.Store, channelID string, reaction, newMessage, mention bool) {
	t.Helper()

	name := "general"
	require.NoError(t, store.UpsertChannelConfig(context.Background(), &storage.ChannelConfig{
		TeamID:                "T1",
		ChannelID:             channelID,
		ChannelName:           &name,
		TranslateOnReaction:   reaction,
		TranslateOnNewMessage: newMessage,
		TranslateOnMention:    mention,
	}))
}
