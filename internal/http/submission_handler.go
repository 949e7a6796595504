package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bluetech/invoice-desk/internal/application"
)

type submissionService interface {
	Submit(ctx context.Context, principal application.Principal) (application.HistoryItem, error)
	Status() application.SubmissionStatus
}

// SubmissionHandler sends the draft and reports submission status.
type SubmissionHandler struct {
	service   submissionService
	responder responder
	logger    *slog.Logger
}

func NewSubmissionHandler(service submissionService, logger *slog.Logger) *SubmissionHandler {
	base := defaultLogger(logger)
	return &SubmissionHandler{service: service, responder: newResponder(base), logger: base}
}

// Create submits the current draft.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := handlerLogger(r.Context(), h.logger, "SubmissionHandler", "Create")

	item, err := h.service.Submit(r.Context(), principal)
	if err != nil {
		logger.WarnContext(r.Context(), "submission rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "invoice submitted", "history_id", item.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, submissionResponse{History: item})
}

// Status reports the transient submission status.
func (h *SubmissionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, statusResponse{Status: h.service.Status()})
}

type submissionResponse struct {
	History application.HistoryItem `json:"history"`
}

type statusResponse struct {
	Status application.SubmissionStatus `json:"status"`
}
