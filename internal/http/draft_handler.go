package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bluetech/invoice-desk/internal/application"
	"github.com/bluetech/invoice-desk/internal/invoice"
)

type formService interface {
	Catalog() []invoice.ServiceType
	Draft(ctx context.Context) (application.DraftView, error)
	SetField(ctx context.Context, principal application.Principal, change application.FieldChange) (application.DraftView, error)
	SetLineItem(ctx context.Context, principal application.Principal, change application.LineItemChange) (application.DraftView, error)
}

// DraftHandler serves the draft editor.
type DraftHandler struct {
	service   formService
	responder responder
	logger    *slog.Logger
}

func NewDraftHandler(service formService, logger *slog.Logger) *DraftHandler {
	base := defaultLogger(logger)
	return &DraftHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DraftHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DraftHandler", operation, attrs...)
}

func (h *DraftHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// Catalog lists the service types and menu options.
func (h *DraftHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, catalogResponse{
		ServiceTypes: h.service.Catalog(),
		MenuOptions:  invoice.MenuOptions(),
	})
}

// Get returns the draft with its totals.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	view, err := h.service.Draft(r.Context())
	if err != nil {
		h.log(r.Context(), "Get").ErrorContext(r.Context(), "draft read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

// SetField applies one field change.
func (h *DraftHandler) SetField(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "SetField", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode field change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := application.Validate(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "SetField", "field", req.Name)
	view, err := h.service.SetField(r.Context(), principal, application.FieldChange{
		Name:  req.Name,
		Value: inputText(req.Value),
		Type:  req.Type,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "field change rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

// SetLineItem applies one line item change.
func (h *DraftHandler) SetLineItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.responder.writeFieldErrors(r.Context(), w, map[string]string{"index": "must be an integer"})
		return
	}

	var req lineItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "SetLineItem", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode line item change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := application.Validate(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "SetLineItem", "index", index, "field", req.Field)
	view, err := h.service.SetLineItem(r.Context(), principal, application.LineItemChange{
		Index: index,
		Field: req.Field,
		Value: inputText(req.Value),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "line item change rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

type catalogResponse struct {
	ServiceTypes []invoice.ServiceType `json:"serviceTypes"`
	MenuOptions  []string              `json:"menuOptions"`
}

type fieldRequest struct {
	Name  string `json:"name" validate:"required"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}

type lineItemRequest struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

// inputText renders a decoded JSON value the way a form input reports it.
func inputText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
