package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bluetech/invoice-desk/internal/invoice"
	"github.com/bluetech/invoice-desk/internal/persistence"
)

// State is the complete desk: the draft plus the three logs.
type State struct {
	Draft   invoice.Draft
	History []HistoryItem
	Audit   []AuditEntry
	Users   []User
}

// DefaultState returns the first-run state.
func DefaultState(now time.Time) State {
	return State{
		Draft:   invoice.DefaultDraft(now),
		History: []HistoryItem{},
		Audit:   []AuditEntry{},
		Users:   []User{DefaultUser()},
	}
}

func (s State) clone() State {
	out := State{
		Draft:   s.Draft.Clone(),
		History: make([]HistoryItem, len(s.History)),
		Audit:   make([]AuditEntry, len(s.Audit)),
		Users:   make([]User, len(s.Users)),
	}
	for i, h := range s.History {
		out.History[i] = h.clone()
	}
	copy(out.Audit, s.Audit)
	copy(out.Users, s.Users)
	return out
}

func (s State) records() []persistence.Record {
	return []persistence.Record{
		{Key: persistence.KeyDraft, Value: s.Draft},
		{Key: persistence.KeyHistory, Value: s.History},
		{Key: persistence.KeyAudit, Value: s.Audit},
		{Key: persistence.KeyUsers, Value: s.Users},
	}
}

func (s State) findUser(id string) (User, int, bool) {
	for i, u := range s.Users {
		if u.ID == id {
			return u, i, true
		}
	}
	return User{}, -1, false
}

// Workspace owns the in-memory state and flushes every accepted change to the
// store. Mutations are serialized.
type Workspace struct {
	mu     sync.Mutex
	store  persistence.KeyValueStore
	state  State
	now    func() time.Time
	logger *slog.Logger
	// generation counts resets.
	generation uint64
}

// OpenWorkspace hydrates the state from store. Missing or malformed records
// fall back to their defaults.
func OpenWorkspace(ctx context.Context, store persistence.KeyValueStore, now func() time.Time, logger *slog.Logger) *Workspace {
	if now == nil {
		now = time.Now
	}
	w := &Workspace{store: store, now: now, logger: defaultLogger(logger)}
	w.state = w.load(ctx)
	return w
}

func (w *Workspace) load(ctx context.Context) State {
	logger := serviceLogger(ctx, w.logger, "Workspace", "Load")
	def := DefaultState(w.now())

	draft := persistence.LoadWithDefault(ctx, w.store, persistence.KeyDraft,
		func() invoice.Draft { return def.Draft.Clone() }, invoice.DecodeDraft, logger)
	history := persistence.LoadWithDefault(ctx, w.store, persistence.KeyHistory,
		func() []HistoryItem { return []HistoryItem{} }, nil, logger)
	audit := persistence.LoadWithDefault(ctx, w.store, persistence.KeyAudit,
		func() []AuditEntry { return []AuditEntry{} }, nil, logger)
	users := persistence.LoadWithDefault(ctx, w.store, persistence.KeyUsers,
		func() []User { return []User{DefaultUser()} }, nil, logger)

	if history == nil {
		history = []HistoryItem{}
	}
	if audit == nil {
		audit = []AuditEntry{}
	}

	return State{
		Draft:   draft,
		History: history,
		Audit:   capAudit(audit),
		Users:   ensureDefaultUser(users),
	}
}

// ensureDefaultUser keeps the seeded account present even when the stored list lost it.
func ensureDefaultUser(users []User) []User {
	for _, u := range users {
		if u.IsDefault {
			return users
		}
	}
	return append([]User{DefaultUser()}, users...)
}

// Snapshot returns a deep copy of the current state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// snapshotGeneration returns a deep copy of the state and the reset generation
// it belongs to.
func (w *Workspace) snapshotGeneration() (State, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone(), w.generation
}

// updateSince behaves like Update unless a Reset happened after gen, in which
// case fn is not applied and applied is false.
func (w *Workspace) updateSince(ctx context.Context, gen uint64, fn func(*State) error) (applied bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.generation != gen {
		return false, nil
	}
	next := w.state.clone()
	if err := fn(&next); err != nil {
		return false, err
	}
	w.state = next
	w.flushLocked(ctx)
	return true, nil
}

// Update applies fn to a copy of the state. When fn succeeds the copy replaces
// the state and every record is written; when it fails nothing changes.
// Write failures are logged and do not undo the accepted change.
func (w *Workspace) Update(ctx context.Context, fn func(*State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	w.state = next
	w.flushLocked(ctx)
	return nil
}

// Reset clears every persisted record and restores the first-run state.
func (w *Workspace) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.store != nil {
		if err := persistence.ResetAll(ctx, w.store); err != nil {
			return fmt.Errorf("reset workspace: %w", err)
		}
	}
	w.state = DefaultState(w.now())
	w.generation++
	return nil
}

func (w *Workspace) flushLocked(ctx context.Context) {
	if w.store == nil {
		return
	}
	// An accepted change is written even if the caller has gone away.
	if err := persistence.SaveAll(context.WithoutCancel(ctx), w.store, w.state.records()...); err != nil {
		serviceLogger(ctx, w.logger, "Workspace", "Flush").ErrorContext(ctx, "failed to persist state", "error", err)
	}
}
