package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bluetech/invoice-desk/internal/persistence"
	"github.com/bluetech/invoice-desk/internal/webhook"
)

var referenceTime = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type desk struct {
	store      *persistence.MemoryStore
	clock      *fakeClock
	workspace  *Workspace
	auth       *AuthService
	users      *UserService
	form       *FormService
	submission *SubmissionService
	admin      *AdminService
}

func newDesk(t *testing.T, poster Poster) *desk {
	t.Helper()
	return newDeskOnStore(t, persistence.NewMemoryStore(), poster)
}

func newDeskOnStore(t *testing.T, store *persistence.MemoryStore, poster Poster) *desk {
	t.Helper()

	clock := &fakeClock{now: referenceTime}
	logger := discardLogger()
	ids := sequence("id")
	ws := OpenWorkspace(context.Background(), store, clock.Now, logger)
	auth := NewAuthServiceWithLogger(ws, sequence("token"), ids, clock.Now, logger)
	submission := NewSubmissionServiceWithLogger(ws, poster, ids, clock.Now, time.Hour, logger)
	t.Cleanup(submission.Close)

	return &desk{
		store:      store,
		clock:      clock,
		workspace:  ws,
		auth:       auth,
		users:      NewUserServiceWithLogger(ws, ids, clock.Now, logger),
		form:       NewFormServiceWithLogger(ws, logger),
		submission: submission,
		admin:      NewAdminServiceWithLogger(ws, auth, logger),
	}
}

func (d *desk) adminPrincipal() Principal {
	return DefaultUser().Principal()
}

func (d *desk) viewerPrincipal() Principal {
	return Principal{UserID: "viewer-1", Username: "viewer", Role: RoleViewer}
}

type stubPoster struct {
	mu       sync.Mutex
	calls    []string
	payloads []any
	resp     webhook.Response
	err      error
	block    chan struct{}
	started  chan struct{}
}

func (p *stubPoster) Post(ctx context.Context, endpoint string, payload any) (webhook.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, endpoint)
	p.payloads = append(p.payloads, payload)
	block, started := p.block, p.started
	p.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return p.resp, p.err
}

func (p *stubPoster) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
