package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluetech/invoice-desk/internal/config"
	"github.com/bluetech/invoice-desk/internal/testfixtures"
)

func testConfig(dsn string) config.Config {
	cfg := config.Default()
	cfg.SQLiteDSN = dsn
	cfg.StatusResetDelay = time.Hour
	cfg.WebhookTimeout = 5 * time.Second
	return cfg
}

func startDesk(t *testing.T, cfg config.Config) (*desk, *httptest.Server) {
	t.Helper()

	d, err := newDesk(context.Background(), cfg, testfixtures.DiscardLogger())
	require.NoError(t, err)
	server := httptest.NewServer(d.Handler)
	t.Cleanup(server.Close)
	return d, server
}

func call(t *testing.T, server *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &payload)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := call(t, server, http.MethodPost, "/sessions", "", map[string]string{"username": "admin", "password": "admin"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := resp.Header.Get("X-Session-Token")
	require.NotEmpty(t, token)
	return token
}

func TestDeskEndToEnd(t *testing.T) {
	receiver := testfixtures.NewWebhookServer(t, http.StatusOK)
	d, server := startDesk(t, testConfig(":memory:"))
	defer d.Close()

	token := login(t, server)

	resp := call(t, server, http.MethodPut, "/admin/webhook", token, map[string]string{"webhookUrl": receiver.URL})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	edits := []map[string]any{
		{"name": "fullName", "value": "Dana Reyes"},
		{"name": "gstInput", "value": 14.75, "type": "number"},
	}
	for _, edit := range edits {
		resp := call(t, server, http.MethodPatch, "/draft/fields", token, edit)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp = call(t, server, http.MethodPatch, "/draft/items/0", token, map[string]any{"field": "qty", "value": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = call(t, server, http.MethodPatch, "/draft/items/0", token, map[string]any{"field": "unitValue", "value": 295})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, server, http.MethodPost, "/submissions", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		History struct {
			ID         string  `json:"id"`
			ClientName string  `json:"clientName"`
			Total      float64 `json:"total"`
		} `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Regexp(t, `^INV-\d+$`, created.History.ID)
	assert.Equal(t, "Dana Reyes", created.History.ClientName)
	assert.Equal(t, 309.75, created.History.Total)
	assert.Equal(t, 1, receiver.Calls())
}

func TestDeskPersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig("file:" + filepath.Join(t.TempDir(), "desk.db"))

	first, server := startDesk(t, cfg)
	login(t, server)
	server.Close()
	first.Close()

	second, server := startDesk(t, cfg)
	defer second.Close()
	token := login(t, server)

	resp := call(t, server, http.MethodGet, "/admin/audit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var audit struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&audit))
	require.Len(t, audit.Entries, 2)
	assert.Equal(t, "User Login", audit.Entries[1].Action)
}

func TestNewDeskRejectsEmptyDSN(t *testing.T) {
	_, err := newDesk(context.Background(), testConfig(" "), testfixtures.DiscardLogger())
	require.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	go func() { done <- serve(ctx, listener, handler, testfixtures.DiscardLogger()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestRunRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv(config.EnvDotenv, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(config.EnvHTTPPort, "0")

	var out bytes.Buffer
	err := run(context.Background(), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvHTTPPort)
}
