package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bluetech/invoice-desk/internal/invoice"
)

// InputTypeNumber marks a change sent from a numeric input.
const InputTypeNumber = "number"

// FormService applies operator edits to the draft. Totals are derived on every read.
type FormService struct {
	workspace *Workspace
	logger    *slog.Logger
}

// NewFormService constructs a FormService.
func NewFormService(workspace *Workspace) *FormService {
	return NewFormServiceWithLogger(workspace, nil)
}

// NewFormServiceWithLogger constructs a FormService with a specified logger.
func NewFormServiceWithLogger(workspace *Workspace, logger *slog.Logger) *FormService {
	return &FormService{workspace: workspace, logger: defaultLogger(logger)}
}

func (s *FormService) loggerWith(ctx context.Context, operation string, principal Principal, attrs ...any) *slog.Logger {
	pairs := append([]any{"principal_id", principal.UserID}, attrs...)
	return serviceLogger(ctx, s.logger, "FormService", operation, pairs...)
}

// Catalog lists the billable service types.
func (s *FormService) Catalog() []invoice.ServiceType {
	return invoice.Catalog()
}

// Draft returns the current draft with its totals.
func (s *FormService) Draft(ctx context.Context) (DraftView, error) {
	if s == nil || s.workspace == nil {
		return DraftView{}, fmt.Errorf("FormService not configured")
	}
	return newDraftView(s.workspace.Snapshot().Draft), nil
}

// Calculated returns the totals of the current draft.
func (s *FormService) Calculated(ctx context.Context) (invoice.Calculated, error) {
	view, err := s.Draft(ctx)
	if err != nil {
		return invoice.Calculated{}, err
	}
	return view.Calculated, nil
}

// SetField assigns one top-level draft field. Numeric fields, and text fields
// sent from a numeric input, use parse-or-zero coercion.
func (s *FormService) SetField(ctx context.Context, principal Principal, change FieldChange) (view DraftView, err error) {
	if s == nil || s.workspace == nil {
		err = fmt.Errorf("FormService not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetField", principal, "field", change.Name)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "field change rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "field changed", "total", view.Calculated.Total)
	}()

	if !principal.Authenticated() {
		err = ErrNotAuthenticated
		return
	}

	var draft invoice.Draft
	err = s.workspace.Update(ctx, func(st *State) error {
		switch invoice.LookupField(change.Name) {
		case invoice.FieldNumber:
			st.Draft.SetNumber(change.Name, invoice.ParseNumber(change.Value))
		case invoice.FieldText:
			value := change.Value
			if change.Type == InputTypeNumber {
				value = strconv.FormatFloat(invoice.ParseNumber(change.Value), 'f', -1, 64)
			}
			st.Draft.SetText(change.Name, value)
		default:
			return fieldError("name", fmt.Sprintf("unknown field %q", change.Name))
		}
		draft = st.Draft.Clone()
		return nil
	})
	if err != nil {
		return
	}
	view = newDraftView(draft)
	return
}

// SetLineItem assigns one field of the line item at change.Index.
func (s *FormService) SetLineItem(ctx context.Context, principal Principal, change LineItemChange) (view DraftView, err error) {
	if s == nil || s.workspace == nil {
		err = fmt.Errorf("FormService not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetLineItem", principal, "index", change.Index, "field", change.Field)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "line item change rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "line item changed", "subtotal", view.Calculated.Subtotal)
	}()

	if !principal.Authenticated() {
		err = ErrNotAuthenticated
		return
	}

	var draft invoice.Draft
	err = s.workspace.Update(ctx, func(st *State) error {
		if change.Index < 0 || change.Index >= len(st.Draft.ServiceItems) {
			return fieldError("index", fmt.Sprintf("must be between 0 and %d", len(st.Draft.ServiceItems)-1))
		}
		if err := st.Draft.ServiceItems[change.Index].Set(change.Field, change.Value); err != nil {
			return fieldError("field", fmt.Sprintf("unknown line item field %q", change.Field))
		}
		draft = st.Draft.Clone()
		return nil
	})
	if err != nil {
		return
	}
	view = newDraftView(draft)
	return
}
