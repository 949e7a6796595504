package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bluetech/invoice-desk/internal/export"
)

// SessionEnder ends every active session.
type SessionEnder interface {
	EndAllSessions()
}

// AdminService exposes history, audit data and the full reset to administrators.
type AdminService struct {
	workspace *Workspace
	sessions  SessionEnder
	logger    *slog.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(workspace *Workspace, sessions SessionEnder) *AdminService {
	return NewAdminServiceWithLogger(workspace, sessions, nil)
}

// NewAdminServiceWithLogger constructs an AdminService with a specified logger.
func NewAdminServiceWithLogger(workspace *Workspace, sessions SessionEnder, logger *slog.Logger) *AdminService {
	return &AdminService{workspace: workspace, sessions: sessions, logger: defaultLogger(logger)}
}

func (s *AdminService) authorize(principal Principal) error {
	if s == nil {
		return fmt.Errorf("AdminService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.workspace == nil {
		return fmt.Errorf("workspace not configured")
	}
	return nil
}

// History returns every sent invoice, newest first.
func (s *AdminService) History(ctx context.Context, principal Principal) ([]HistoryItem, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	return s.workspace.Snapshot().History, nil
}

// AuditLog returns the audit log, newest first.
func (s *AdminService) AuditLog(ctx context.Context, principal Principal) ([]AuditEntry, error) {
	return s.RecentAudit(ctx, principal, 0)
}

// RecentAudit returns at most n audit entries, newest first. A non-positive n returns all.
func (s *AdminService) RecentAudit(ctx context.Context, principal Principal, n int) ([]AuditEntry, error) {
	if err := s.authorize(principal); err != nil {
		return nil, err
	}
	entries := s.workspace.Snapshot().Audit
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// WebhookURL returns the configured submission target.
func (s *AdminService) WebhookURL(ctx context.Context, principal Principal) (string, error) {
	if err := s.authorize(principal); err != nil {
		return "", err
	}
	return s.workspace.Snapshot().Draft.WebhookURL, nil
}

// SetWebhookURL stores the submission target. The value is kept as entered;
// an unusable URL surfaces as a failed submission.
func (s *AdminService) SetWebhookURL(ctx context.Context, principal Principal, url string) (err error) {
	if err = s.authorize(principal); err != nil {
		return err
	}

	logger := serviceLogger(ctx, s.logger, "AdminService", "SetWebhookURL", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "webhook update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "webhook updated", "configured", url != "")
	}()

	return s.workspace.Update(ctx, func(st *State) error {
		st.Draft.WebhookURL = url
		return nil
	})
}

// ExportHistory writes the history to w in the requested format.
func (s *AdminService) ExportHistory(ctx context.Context, principal Principal, w io.Writer, format export.Format) (err error) {
	if err = s.authorize(principal); err != nil {
		return err
	}

	history := s.workspace.Snapshot().History
	logger := serviceLogger(ctx, s.logger, "AdminService", "ExportHistory",
		"principal_id", principal.UserID, "format", string(format), "entries", len(history))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "history export failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "history exported")
	}()

	switch format {
	case export.FormatJSON:
		return export.WriteJSON(w, history)
	case export.FormatXLSX:
		rows := make([]export.Row, len(history))
		for i, h := range history {
			rows[i] = export.Row{ID: h.ID, Date: h.Date, ClientName: h.ClientName, Total: h.Total, Status: string(h.Status)}
		}
		return export.WriteXLSX(w, rows)
	}
	return fieldError("format", fmt.Sprintf("unsupported format %q", format))
}

// Reset clears every persisted record, restores defaults and ends all sessions
// once confirmed. A declined confirmation changes nothing.
func (s *AdminService) Reset(ctx context.Context, principal Principal, confirm Confirmer) (err error) {
	if err = s.authorize(principal); err != nil {
		return err
	}

	logger := serviceLogger(ctx, s.logger, "AdminService", "Reset", "principal_id", principal.UserID)
	if !confirmed(ctx, confirm, "Reset all invoice desk data?") {
		logger.InfoContext(ctx, "reset declined")
		return nil
	}

	if err = s.workspace.Reset(ctx); err != nil {
		logger.ErrorContext(ctx, "reset failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if s.sessions != nil {
		s.sessions.EndAllSessions()
	}
	logger.WarnContext(ctx, "desk reset to defaults")
	return nil
}
