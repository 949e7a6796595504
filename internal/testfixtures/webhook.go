package testfixtures

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// WebhookServer is an httptest receiver that records every JSON body it gets
// and answers with a configurable status.
type WebhookServer struct {
	URL string

	mu       sync.Mutex
	status   int
	payloads []map[string]any
}

// NewWebhookServer starts a receiver answering with status. The server is
// closed through tb.Cleanup.
func NewWebhookServer(tb testing.TB, status int) *WebhookServer {
	tb.Helper()

	ws := &WebhookServer{status: status}
	server := httptest.NewServer(http.HandlerFunc(ws.serve))
	tb.Cleanup(server.Close)
	ws.URL = server.URL
	return ws
}

func (s *WebhookServer) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.payloads = append(s.payloads, body)
	status := s.status
	s.mu.Unlock()

	w.WriteHeader(status)
}

// SetStatus changes the status returned to later calls.
func (s *WebhookServer) SetStatus(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Calls reports how many posts arrived.
func (s *WebhookServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// Payloads returns the decoded bodies in arrival order.
func (s *WebhookServer) Payloads() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.payloads...)
}
