package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/pawsense/vetagent/internal/agent"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/server"
	"github.com/pawsense/vetagent/pkg/types"
)

// echoEngine replies with a fixed response and assigns session IDs.
type echoEngine struct {
	err error
}

func (e *echoEngine) HandleMessage(ctx context.Context, sessionID, message string) (*agent.TurnResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	if strings.TrimSpace(message) == "" {
		return nil, agent.ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = "generated-session"
	}
	return &agent.TurnResult{
		SessionID: sessionID,
		Response:  "What symptoms have you noticed?",
		Status:    types.StatusInquiry,
	}, nil
}

func serverConfig() config.ServerConfig {
	return config.ServerConfig{Host: "127.0.0.1", Port: 0, RateLimitRPS: 1000, RateLimitBurst: 1000}
}

func newTestServer(t *testing.T, engine server.ChatEngine, sessions agent.SessionStore) *httptest.Server {
	t.Helper()
	if sessions == nil {
		sessions = agent.NewMemorySessionStore()
	}
	ts := httptest.NewServer(server.New(engine, sessions, serverConfig()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp := postChat(t, ts, `{"message": "my dog is vomiting"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var result agent.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "generated-session", result.SessionID)
	assert.Equal(t, types.StatusInquiry, result.Status)
	assert.NotEmpty(t, result.Response)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp := postChat(t, ts, `{"message": "   "}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpointRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp := postChat(t, ts, `{not json`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpointMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp, err := http.Get(ts.URL + "/api/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChatEndpointEngineFailure(t *testing.T) {
	ts := newTestServer(t, &echoEngine{err: errors.New("boom")}, nil)

	resp := postChat(t, ts, `{"message": "hello"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	sessions := agent.NewMemorySessionStore()
	state := types.NewConversationState("s-42")
	state.Status = types.StatusInquiry
	state.Profile.Name = "Rex"
	require.NoError(t, sessions.Save(context.Background(), state))

	ts := newTestServer(t, &echoEngine{}, sessions)

	resp, err := http.Get(ts.URL + "/api/sessions/s-42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded types.ConversationState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
	assert.Equal(t, "Rex", loaded.Profile.Name)
}

func TestGetSessionNotFound(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp, err := http.Get(ts.URL + "/api/sessions/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestMetricsExposed(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiting(t *testing.T) {
	sessions := agent.NewMemorySessionStore()
	cfg := config.ServerConfig{Host: "127.0.0.1", RateLimitRPS: 1, RateLimitBurst: 2}
	ts := httptest.NewServer(server.New(&echoEngine{}, sessions, cfg).Handler())
	defer ts.Close()

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "burst of 5 against burst limit 2 must trip the limiter")
}

func TestWebSocketChat(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"message": "my dog is vomiting"}))

	var result agent.TurnResult
	require.NoError(t, wsjson.Read(ctx, conn, &result))
	assert.Equal(t, "generated-session", result.SessionID)
	assert.NotEmpty(t, result.Response)
}

func TestWebSocketEmptyMessageGetsErrorFrame(t *testing.T) {
	ts := newTestServer(t, &echoEngine{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"message": ""}))

	var frame map[string]string
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Contains(t, frame["error"], "empty")
}
