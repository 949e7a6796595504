package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bluetech/invoice-desk/internal/application"
)

var (
	errBadRequestBody      = errors.New("request body is not valid JSON")
	errMissingSessionToken = errors.New("session token is required")
)

// Stable error codes returned in errorResponse.ErrorCode.
const (
	codeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	codeSessionRequired    = "AUTH_SESSION_REQUIRED"
	codeForbidden          = "AUTH_FORBIDDEN"
	codeDuplicateUsername  = "USER_DUPLICATE_USERNAME"
	codeWebhookMissing     = "SUBMISSION_WEBHOOK_MISSING"
	codeSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	codeSubmissionFailed   = "SUBMISSION_FAILED"
	codeValidation         = "VALIDATION_FAILED"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) writeFieldErrors(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		ErrorCode: codeValidation,
		Message:   "request contains invalid fields",
		Errors:    fields,
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeInvalidCredentials,
			Message:   "invalid username or password",
		})
	case errors.Is(err, application.ErrNotAuthenticated):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeSessionRequired,
			Message:   "a valid session is required",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: codeForbidden,
			Message:   "administrator privileges are required",
		})
	case errors.Is(err, application.ErrDuplicateUsername):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeDuplicateUsername,
			Message:   "username already exists",
		})
	case errors.Is(err, application.ErrSubmissionInFlight):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeSubmissionInFlight,
			Message:   "a submission is already in progress",
		})
	case errors.Is(err, application.ErrMissingWebhookConfig):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeWebhookMissing,
			Message:   "webhook URL is not configured",
			Errors:    map[string]string{"webhookUrl": "is required"},
		})
	case errors.Is(err, application.ErrSubmissionFailed):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: codeSubmissionFailed,
			Message:   "the webhook did not accept the invoice",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeFieldErrors(ctx, w, vErr.FieldErrors)
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// decodeJSON reads one JSON document into dst. Numbers are kept as json.Number.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
