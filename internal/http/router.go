package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires handlers into the router. Nil handlers leave their routes
// unregistered.
type RouterConfig struct {
	Auth        *AuthHandler
	Draft       *DraftHandler
	Submissions *SubmissionHandler
	Users       *UserHandler
	Admin       *AdminHandler
	Sessions    SessionValidator
	Logger      *slog.Logger
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, RequestLogger(logger), middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusNotFound, errorResponse{Message: "resource not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusMethodNotAllowed, errorResponse{Message: http.StatusText(http.StatusMethodNotAllowed)})
	})

	r.Get("/healthz", Healthz)
	if cfg.Auth != nil {
		r.Post("/sessions", cfg.Auth.CreateSession)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(cfg.Sessions, logger))

		if cfg.Auth != nil {
			r.Delete("/sessions/current", cfg.Auth.DeleteCurrentSession)
		}
		if cfg.Draft != nil {
			r.Get("/catalog", cfg.Draft.Catalog)
			r.Get("/draft", cfg.Draft.Get)
			r.Patch("/draft/fields", cfg.Draft.SetField)
			r.Patch("/draft/items/{index}", cfg.Draft.SetLineItem)
		}
		if cfg.Submissions != nil {
			r.Post("/submissions", cfg.Submissions.Create)
			r.Get("/submissions/status", cfg.Submissions.Status)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(logger))

			if cfg.Users != nil {
				r.Get("/users", cfg.Users.List)
				r.Post("/users", cfg.Users.Create)
				r.Delete("/users/{id}", cfg.Users.Delete)
			}
			if cfg.Admin != nil {
				r.Get("/history", cfg.Admin.History)
				r.Get("/history/export", cfg.Admin.Export)
				r.Get("/audit", cfg.Admin.Audit)
				r.Get("/webhook", cfg.Admin.Webhook)
				r.Put("/webhook", cfg.Admin.SetWebhook)
				r.Post("/reset", cfg.Admin.Reset)
			}
		})
	})

	return r
}

// Healthz is a liveness probe.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
