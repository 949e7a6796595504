package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bluetech/invoice-desk/internal/application"
	"github.com/bluetech/invoice-desk/internal/config"
	httptransport "github.com/bluetech/invoice-desk/internal/http"
	"github.com/bluetech/invoice-desk/internal/logging"
	"github.com/bluetech/invoice-desk/internal/persistence/sqlite"
	"github.com/bluetech/invoice-desk/internal/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	if err := config.LoadDotenv(""); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, core := logging.NewWithCore(stdout, cfg.Env, cfg.LogLevel)
	defer func() { _ = core.Sync() }()

	desk, err := newDesk(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start invoice desk", "error", err)
		return err
	}
	defer desk.Close()

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Addr(), "error", err)
		return err
	}
	return serve(ctx, listener, desk.Handler, logger)
}

// desk is the assembled application: storage, services and the HTTP handler.
type desk struct {
	Handler     http.Handler
	Auth        *application.AuthService
	Submissions *application.SubmissionService
	store       *sqlite.Store
	logger      *slog.Logger
}

func newDesk(ctx context.Context, cfg config.Config, logger *slog.Logger) (*desk, error) {
	store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	now := time.Now
	idGenerator := uuid.NewString
	tokenGenerator := func() string { return uuid.NewString() + uuid.NewString() }

	workspace := application.OpenWorkspace(ctx, store, now, logger)
	authService := application.NewAuthServiceWithLogger(workspace, tokenGenerator, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(workspace, idGenerator, now, logger)
	formService := application.NewFormServiceWithLogger(workspace, logger)
	submissionService := application.NewSubmissionServiceWithLogger(workspace, webhook.NewClient(cfg.WebhookTimeout, logger), idGenerator, now, cfg.StatusResetDelay, logger)
	adminService := application.NewAdminServiceWithLogger(workspace, authService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Draft:       httptransport.NewDraftHandler(formService, logger),
		Submissions: httptransport.NewSubmissionHandler(submissionService, logger),
		Users:       httptransport.NewUserHandler(userService, logger),
		Admin:       httptransport.NewAdminHandler(adminService, logger),
		Sessions:    authService,
		Logger:      logger,
	})

	return &desk{
		Handler:     router,
		Auth:        authService,
		Submissions: submissionService,
		store:       store,
		logger:      logger,
	}, nil
}

func (d *desk) Close() {
	d.Submissions.Close()
	if err := d.store.Close(); err != nil {
		d.logger.Error("failed to close storage", "error", err)
	}
}

// serve runs the HTTP server on listener until ctx is cancelled.
func serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	logger.Info("invoice desk listening", "addr", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}

	if err := <-shutdownDone; err != nil {
		logger.Error("failed to shutdown server", "error", err)
		return err
	}
	logger.Info("invoice desk stopped")
	return nil
}
