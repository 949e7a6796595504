package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/bluetech/invoice-desk/internal/application"
	"github.com/bluetech/invoice-desk/internal/export"
)

type adminService interface {
	History(ctx context.Context, principal application.Principal) ([]application.HistoryItem, error)
	RecentAudit(ctx context.Context, principal application.Principal, n int) ([]application.AuditEntry, error)
	ExportHistory(ctx context.Context, principal application.Principal, w io.Writer, format export.Format) error
	Reset(ctx context.Context, principal application.Principal, confirm application.Confirmer) error
	WebhookURL(ctx context.Context, principal application.Principal) (string, error)
	SetWebhookURL(ctx context.Context, principal application.Principal, url string) error
}

// AdminHandler serves history, audit, export and reset.
type AdminHandler struct {
	service   adminService
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(service adminService, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	history, err := h.service.History(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "History").WarnContext(r.Context(), "history read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, historyResponse{History: history})
}

// Export streams the history as a file attachment.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.responder.writeFieldErrors(r.Context(), w, map[string]string{"format": "must be one of json xlsx"})
		return
	}

	logger := h.log(r.Context(), "Export", "format", string(format))

	// Buffer first so a failed export can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.service.ExportHistory(r.Context(), principal, &buf, format); err != nil {
		logger.WarnContext(r.Context(), "history export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.ErrorContext(r.Context(), "failed to write export", "error", err)
	}
}

// Audit returns the newest audit entries. limit=0 or an absent limit returns all.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	var query auditQuery
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeFieldErrors(r.Context(), w, map[string]string{"limit": "must be an integer"})
			return
		}
		query.Limit = n
	}
	if err := application.Validate(query); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries, err := h.service.RecentAudit(r.Context(), principal, query.Limit)
	if err != nil {
		h.log(r.Context(), "Audit").WarnContext(r.Context(), "audit read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, auditResponse{Entries: entries})
}

// Webhook reports the configured submission target.
func (h *AdminHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	url, err := h.service.WebhookURL(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Webhook").WarnContext(r.Context(), "webhook read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, webhookPayload{WebhookURL: url})
}

// SetWebhook replaces the submission target.
func (h *AdminHandler) SetWebhook(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "SetWebhook", "principal_id", principal.UserID)

	var req webhookPayload
	if err := decodeJSON(r, &req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode webhook request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.service.SetWebhookURL(r.Context(), principal, req.WebhookURL); err != nil {
		logger.WarnContext(r.Context(), "webhook update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, req)
}

// Reset wipes the desk when confirm=true is present.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Reset", "principal_id", principal.UserID)
	if err := h.service.Reset(r.Context(), principal, confirmation(r)); err != nil {
		logger.ErrorContext(r.Context(), "reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type historyResponse struct {
	History []application.HistoryItem `json:"history"`
}

type auditResponse struct {
	Entries []application.AuditEntry `json:"entries"`
}

type auditQuery struct {
	Limit int `json:"limit" validate:"gte=0"`
}

type webhookPayload struct {
	WebhookURL string `json:"webhookUrl"`
}
