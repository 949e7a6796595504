package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/bluetech/invoice-desk/internal/application"
	"github.com/bluetech/invoice-desk/internal/persistence"
	"github.com/bluetech/invoice-desk/internal/webhook"
)

// ServiceFactory assists tests with constructing a fully wired desk using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock            *Clock
	IDGenerator      *IDGenerator
	TokenGenerator   *IDGenerator
	Store            persistence.KeyValueStore
	Poster           application.Poster
	StatusResetDelay time.Duration
	Logger           *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: an in-memory
// store, a real webhook client, an hour long status reset and a silent logger.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:            NewClock(time.Time{}),
		IDGenerator:      NewIDGenerator("id"),
		TokenGenerator:   NewIDGenerator("token"),
		Store:            persistence.NewMemoryStore(),
		StatusResetDelay: time.Hour,
		Logger:           DiscardLogger(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Poster == nil {
		factory.Poster = webhook.NewClient(5*time.Second, factory.Logger)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if clock != nil {
			factory.Clock = clock
		}
	}
}

// WithStore overrides the record store.
func WithStore(store persistence.KeyValueStore) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Store = store
	}
}

// WithPoster overrides the webhook poster.
func WithPoster(poster application.Poster) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Poster = poster
	}
}

// WithStatusResetDelay overrides how long submission feedback stays visible.
func WithStatusResetDelay(d time.Duration) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.StatusResetDelay = d
	}
}

// WithLogger overrides the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if logger != nil {
			factory.Logger = logger
		}
	}
}

// Desk bundles the workspace and every service built on it.
type Desk struct {
	Workspace   *application.Workspace
	Auth        *application.AuthService
	Users       *application.UserService
	Form        *application.FormService
	Submissions *application.SubmissionService
	Admin       *application.AdminService
}

// Close stops pending submission timers.
func (d *Desk) Close() {
	if d != nil && d.Submissions != nil {
		d.Submissions.Close()
	}
}

// NewDesk hydrates a workspace from the factory store and wires the services.
func (f *ServiceFactory) NewDesk(ctx context.Context) *Desk {
	now := f.Clock.NowFunc()
	ids := f.IDGenerator.NextFunc()

	ws := application.OpenWorkspace(ctx, f.Store, now, f.Logger)
	auth := application.NewAuthServiceWithLogger(ws, f.TokenGenerator.NextFunc(), ids, now, f.Logger)
	return &Desk{
		Workspace:   ws,
		Auth:        auth,
		Users:       application.NewUserServiceWithLogger(ws, ids, now, f.Logger),
		Form:        application.NewFormServiceWithLogger(ws, f.Logger),
		Submissions: application.NewSubmissionServiceWithLogger(ws, f.Poster, ids, now, f.StatusResetDelay, f.Logger),
		Admin:       application.NewAdminServiceWithLogger(ws, auth, f.Logger),
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
