package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surf/pkg/agent"
	"github.com/entrhq/surf/pkg/dispatch"
	"github.com/entrhq/surf/pkg/toolserver"
)

type fakeBrowser struct {
	connected    bool
	endpoint     string
	connectErr   error
	disconnected bool
	attachCalls  int
}

func (f *fakeBrowser) Connected() bool { return f.connected }

func (f *fakeBrowser) Connect(endpoint string) error {
	f.attachCalls++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	f.endpoint = endpoint
	return nil
}

func (f *fakeBrowser) Disconnect() error {
	f.connected = false
	f.disconnected = true
	return nil
}

func (f *fakeBrowser) Endpoint() string { return f.endpoint }

type fakeToolServer struct {
	connected  bool
	connectErr error
	closed     bool
}

func (f *fakeToolServer) Connected() bool { return f.connected }

func (f *fakeToolServer) Connect(_ context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeToolServer) Close() error {
	f.connected = false
	f.closed = true
	return nil
}

type fakeDispatcher struct {
	tools    []toolserver.ToolDescriptor
	listErr  error
	result   *dispatch.Result
	callErr  error
	lastName string
	lastArgs map[string]any
}

func (f *fakeDispatcher) ListTools(_ context.Context) ([]toolserver.ToolDescriptor, error) {
	return f.tools, f.listErr
}

func (f *fakeDispatcher) CallTool(_ context.Context, name string, args map[string]any) (*dispatch.Result, error) {
	f.lastName = name
	f.lastArgs = args
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.result, nil
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Store == nil {
		deps.Store = agent.NewStore()
	}
	if deps.ToolServer == nil {
		deps.ToolServer = &fakeToolServer{}
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = &fakeDispatcher{}
	}
	if deps.RunSession == nil {
		deps.RunSession = func(_ context.Context, _ string, _ int) error { return nil }
	}
	return NewServer(deps)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestConnectAttachesBothBackends(t *testing.T) {
	browser := &fakeBrowser{}
	toolServer := &fakeToolServer{}
	s := newTestServer(t, Deps{
		Browser:    browser,
		ToolServer: toolServer,
		Endpoint:   "http://127.0.0.1:9222",
	})

	recorder := doRequest(t, s, http.MethodPost, "/connect", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])
	browserInfo := body["browser"].(map[string]any)
	assert.Equal(t, true, browserInfo["connected"])
	assert.Equal(t, "http://127.0.0.1:9222", browserInfo["endpoint"])
	assert.True(t, toolServer.connected)
}

func TestConnectTwiceAttachesOnce(t *testing.T) {
	browser := &fakeBrowser{}
	toolServer := &fakeToolServer{}
	s := newTestServer(t, Deps{
		Browser:    browser,
		ToolServer: toolServer,
		Endpoint:   "http://127.0.0.1:9222",
	})

	for i := 0; i < 2; i++ {
		recorder := doRequest(t, s, http.MethodPost, "/connect", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		body := decodeBody(t, recorder)
		browserInfo := body["browser"].(map[string]any)
		assert.Equal(t, true, browserInfo["connected"], "request %d", i+1)
	}

	assert.Equal(t, 1, browser.attachCalls)
	assert.True(t, toolServer.connected)
}

func TestConnectRequestEndpointWins(t *testing.T) {
	browser := &fakeBrowser{}
	s := newTestServer(t, Deps{
		Browser:  browser,
		Endpoint: "http://127.0.0.1:9222",
	})

	recorder := doRequest(t, s, http.MethodPost, "/connect",
		ConnectRequest{Endpoint: "http://127.0.0.1:9555"})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "http://127.0.0.1:9555", browser.endpoint)
}

func TestConnectWithoutBrowserIsSubprocessOnly(t *testing.T) {
	toolServer := &fakeToolServer{}
	s := newTestServer(t, Deps{
		ToolServer: toolServer,
		DetectEndpoint: func(_ context.Context) string {
			return "" // nothing listening locally
		},
	})

	recorder := doRequest(t, s, http.MethodPost, "/connect", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])
	browserInfo := body["browser"].(map[string]any)
	assert.Equal(t, false, browserInfo["connected"])
	assert.True(t, toolServer.connected)
}

func TestConnectBrowserFailureDegrades(t *testing.T) {
	browser := &fakeBrowser{connectErr: errors.New("connection refused")}
	s := newTestServer(t, Deps{
		Browser:  browser,
		Endpoint: "http://127.0.0.1:9222",
	})

	recorder := doRequest(t, s, http.MethodPost, "/connect", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	browserInfo := body["browser"].(map[string]any)
	assert.Equal(t, false, browserInfo["connected"])
}

func TestConnectFailsWhenNoBackendComesUp(t *testing.T) {
	s := newTestServer(t, Deps{
		ToolServer: &fakeToolServer{connectErr: errors.New("npx not found")},
	})

	recorder := doRequest(t, s, http.MethodPost, "/connect", nil)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestDisconnectDetachesAndStopsWorker(t *testing.T) {
	browser := &fakeBrowser{connected: true}
	toolServer := &fakeToolServer{connected: true}
	s := newTestServer(t, Deps{Browser: browser, ToolServer: toolServer})

	recorder := doRequest(t, s, http.MethodPost, "/disconnect", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, browser.disconnected)
	assert.True(t, toolServer.closed)
}

func TestListTools(t *testing.T) {
	s := newTestServer(t, Deps{
		Dispatcher: &fakeDispatcher{
			tools: []toolserver.ToolDescriptor{
				{Name: "browser_navigate", Description: "Navigate to a URL"},
			},
		},
	})

	recorder := doRequest(t, s, http.MethodGet, "/tools", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	first := tools[0].(map[string]any)
	assert.Equal(t, "browser_navigate", first["name"])
}

func TestListToolsUnavailable(t *testing.T) {
	s := newTestServer(t, Deps{
		Dispatcher: &fakeDispatcher{listErr: dispatch.ErrBackendUnavailable},
	})

	recorder := doRequest(t, s, http.MethodGet, "/tools", nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestCallTool(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &dispatch.Result{Text: "navigated to https://example.com/"}}
	s := newTestServer(t, Deps{Dispatcher: dispatcher})

	recorder := doRequest(t, s, http.MethodPost, "/tools/browser_navigate",
		CallToolRequest{Args: map[string]any{"url": "https://example.com"}})
	require.Equal(t, http.StatusOK, recorder.Code)

	assert.Equal(t, "browser_navigate", dispatcher.lastName)
	assert.Equal(t, "https://example.com", dispatcher.lastArgs["url"])

	body := decodeBody(t, recorder)
	result := body["result"].(map[string]any)
	assert.Equal(t, "navigated to https://example.com/", result["text"])
}

func TestCallToolEmptyBody(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &dispatch.Result{Text: "ok"}}
	s := newTestServer(t, Deps{Dispatcher: dispatcher})

	recorder := doRequest(t, s, http.MethodPost, "/tools/browser_snapshot", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.NotNil(t, dispatcher.lastArgs)
}

func TestCallToolErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"disabled", dispatch.ErrToolDisabled, http.StatusForbidden},
		{"unavailable", dispatch.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("worker crashed"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{Dispatcher: &fakeDispatcher{callErr: tt.err}})
			recorder := doRequest(t, s, http.MethodPost, "/tools/anything", nil)
			assert.Equal(t, tt.status, recorder.Code)
		})
	}
}

func TestCreateSessionForeground(t *testing.T) {
	store := agent.NewStore()
	var ranID string
	s := newTestServer(t, Deps{
		Store: store,
		RunSession: func(_ context.Context, id string, _ int) error {
			ranID = id
			return nil
		},
	})

	recorder := doRequest(t, s, http.MethodPost, "/session",
		SessionRequest{Task: "open example.com"})
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	session := body["session"].(map[string]any)
	assert.Equal(t, ranID, session["id"])
	assert.Equal(t, "open example.com", session["message"])
}

func TestCreateSessionBackground(t *testing.T) {
	store := agent.NewStore()
	started := make(chan string, 1)
	s := newTestServer(t, Deps{
		Store: store,
		RunSession: func(_ context.Context, id string, _ int) error {
			started <- id
			return nil
		},
	})

	recorder := doRequest(t, s, http.MethodPost, "/session",
		SessionRequest{Task: "open example.com", Background: true})
	require.Equal(t, http.StatusAccepted, recorder.Code)

	body := decodeBody(t, recorder)
	id := body["sessionId"].(string)
	assert.NotEmpty(t, id)

	select {
	case ranID := <-started:
		assert.Equal(t, id, ranID)
	case <-time.After(time.Second):
		t.Fatal("background session never started")
	}
}

func TestCreateSessionAutoSessionAlias(t *testing.T) {
	store := agent.NewStore()
	started := make(chan string, 1)
	s := newTestServer(t, Deps{
		Store: store,
		RunSession: func(_ context.Context, id string, _ int) error {
			started <- id
			return nil
		},
	})

	recorder := doRequest(t, s, http.MethodPost, "/session",
		SessionRequest{Task: "open example.com", AutoSession: true})
	require.Equal(t, http.StatusAccepted, recorder.Code)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("background session never started")
	}
}

func TestCreateSessionAppendsContext(t *testing.T) {
	store := agent.NewStore()
	s := newTestServer(t, Deps{
		Store:      store,
		RunSession: func(_ context.Context, _ string, _ int) error { return nil },
	})

	recorder := doRequest(t, s, http.MethodPost, "/session",
		SessionRequest{Task: "log in", Context: "use the staging account"})
	require.Equal(t, http.StatusOK, recorder.Code)

	sessions := store.List()
	require.Len(t, sessions, 1)
	assert.Contains(t, sessions[0].Message, "log in")
	assert.Contains(t, sessions[0].Message, "use the staging account")
}

func TestCreateSessionRequiresTask(t *testing.T) {
	s := newTestServer(t, Deps{})
	recorder := doRequest(t, s, http.MethodPost, "/session", SessionRequest{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetSession(t *testing.T) {
	store := agent.NewStore()
	id := store.Create("task")
	s := newTestServer(t, Deps{Store: store})

	recorder := doRequest(t, s, http.MethodGet, "/session/"+id, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	session := body["session"].(map[string]any)
	assert.Equal(t, id, session["id"])
	assert.Equal(t, "created", session["status"])
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestServer(t, Deps{})
	recorder := doRequest(t, s, http.MethodGet, "/session/nope", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListSessions(t *testing.T) {
	store := agent.NewStore()
	store.Create("first")
	store.Create("second")
	s := newTestServer(t, Deps{Store: store})

	recorder := doRequest(t, s, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Len(t, body["sessions"].([]any), 2)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Deps{
		Browser:    &fakeBrowser{connected: true},
		ToolServer: &fakeToolServer{connected: true},
	})

	recorder := doRequest(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["browser"])
	assert.Equal(t, true, body["toolServer"])
}
