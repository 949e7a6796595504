package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bluetech/invoice-desk/internal/invoice"
	"github.com/bluetech/invoice-desk/internal/webhook"
)

// SubmissionStatus is transient feedback about the latest submission.
type SubmissionStatus string

const (
	StatusIdle       SubmissionStatus = "idle"
	StatusSubmitting SubmissionStatus = "submitting"
	StatusSuccess    SubmissionStatus = "success"
	StatusError      SubmissionStatus = "error"
)

// DefaultStatusResetDelay is how long success and error stay visible.
const DefaultStatusResetDelay = 5 * time.Second

// UnknownClient names history entries whose draft has no full name.
const UnknownClient = "Unknown"

// Poster delivers one payload to the webhook.
type Poster interface {
	Post(ctx context.Context, endpoint string, payload any) (webhook.Response, error)
}

// SubmissionService sends the draft to the configured webhook and records the outcome.
// At most one submission is in flight.
type SubmissionService struct {
	workspace  *Workspace
	poster     Poster
	audit      auditRecorder
	now        func() time.Time
	resetDelay time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	status     SubmissionStatus
	generation uint64
	timer      *time.Timer
	lastID     int64
}

// NewSubmissionService constructs a SubmissionService. A non-positive resetDelay
// selects DefaultStatusResetDelay.
func NewSubmissionService(workspace *Workspace, poster Poster, idGenerator func() string, now func() time.Time, resetDelay time.Duration) *SubmissionService {
	return NewSubmissionServiceWithLogger(workspace, poster, idGenerator, now, resetDelay, nil)
}

// NewSubmissionServiceWithLogger constructs a SubmissionService with a specified logger.
func NewSubmissionServiceWithLogger(workspace *Workspace, poster Poster, idGenerator func() string, now func() time.Time, resetDelay time.Duration, logger *slog.Logger) *SubmissionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if resetDelay <= 0 {
		resetDelay = DefaultStatusResetDelay
	}
	return &SubmissionService{
		workspace:  workspace,
		poster:     poster,
		audit:      auditRecorder{idGenerator: idGenerator, now: now},
		now:        now,
		resetDelay: resetDelay,
		logger:     defaultLogger(logger),
		status:     StatusIdle,
	}
}

// Status reports the current submission state.
func (s *SubmissionService) Status() SubmissionStatus {
	if s == nil {
		return StatusIdle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Submit posts the current draft once. On a 2xx reply a history entry and an
// audit entry are recorded; on any other outcome only an audit entry is.
// The draft is never modified. The outbound call is not cancelled with ctx.
func (s *SubmissionService) Submit(ctx context.Context, principal Principal) (item HistoryItem, err error) {
	if s == nil {
		err = fmt.Errorf("SubmissionService is nil")
		return
	}
	if s.workspace == nil || s.poster == nil {
		err = fmt.Errorf("SubmissionService not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "SubmissionService", "Submit", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "submission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("history_id", item.ID, "total", item.Total).InfoContext(ctx, "submission succeeded")
	}()

	if !principal.Authenticated() {
		err = ErrNotAuthenticated
		return
	}

	draft, gen, err := s.begin()
	if err != nil {
		return
	}

	at := s.now()
	payload := invoice.NewPayload(draft, at, principal.Username)

	_, postErr := s.poster.Post(context.WithoutCancel(ctx), draft.WebhookURL, payload)
	if postErr != nil {
		applied, _ := s.workspace.updateSince(ctx, gen, func(st *State) error {
			st.Audit = prependAudit(st.Audit, s.audit.entry(ActionSubmissionFailed, principal.Username))
			return nil
		})
		if !applied {
			logger.WarnContext(ctx, "desk was reset during submission, failure not recorded")
		}
		s.finish(StatusError)
		err = fmt.Errorf("%w: %w", ErrSubmissionFailed, postErr)
		return
	}

	item = HistoryItem{
		ID:         s.nextHistoryID(at),
		Date:       at.Format(DisplayTimeLayout),
		ClientName: clientName(draft.FullName),
		Total:      payload.Calculated.Total,
		Status:     HistorySent,
		Payload:    payload,
	}
	applied, _ := s.workspace.updateSince(ctx, gen, func(st *State) error {
		st.History = append([]HistoryItem{item.clone()}, st.History...)
		st.Audit = prependAudit(st.Audit, s.audit.entry(InvoiceSentAction(item.ID), principal.Username))
		return nil
	})
	if !applied {
		logger.WarnContext(ctx, "desk was reset during submission, history not recorded", "history_id", item.ID)
	}
	s.finish(StatusSuccess)
	return
}

// Close stops a pending status reset.
func (s *SubmissionService) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// begin checks preconditions and moves to submitting. The status is left
// untouched when the webhook URL is missing. gen identifies the workspace
// state the draft was read from.
func (s *SubmissionService) begin() (invoice.Draft, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSubmitting {
		return invoice.Draft{}, 0, ErrSubmissionInFlight
	}
	state, gen := s.workspace.snapshotGeneration()
	if state.Draft.WebhookURL == "" {
		return invoice.Draft{}, 0, ErrMissingWebhookConfig
	}

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.status = StatusSubmitting
	return state.Draft, gen, nil
}

// finish records the outcome and schedules the revert to idle.
func (s *SubmissionService) finish(status SubmissionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	gen := s.generation
	s.timer = time.AfterFunc(s.resetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen && s.status == status {
			s.status = StatusIdle
			s.timer = nil
		}
	})
}

// nextHistoryID returns INV-<unix ms>, bumped so ids strictly increase.
func (s *SubmissionService) nextHistoryID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := at.UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms
	return "INV-" + strconv.FormatInt(ms, 10)
}

func clientName(fullName string) string {
	if fullName == "" {
		return UnknownClient
	}
	return fullName
}
