package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bluetech/invoice-desk/internal/persistence/sqlite"
)

// SQLiteHarness provides a migrated SQLite record store in a temporary file.
// Reopen simulates a process restart against the same file.
type SQLiteHarness struct {
	Store *sqlite.Store
	Path  string

	tb testing.TB
}

// NewSQLiteHarness opens and migrates a temporary store. The store is closed
// through tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	h := &SQLiteHarness{Path: filepath.Join(tb.TempDir(), "invoice-desk.db"), tb: tb}
	h.Store = h.open()
	return h
}

// Reopen closes the current store and opens the same file again.
func (h *SQLiteHarness) Reopen() *sqlite.Store {
	h.tb.Helper()
	if err := h.Store.Close(); err != nil {
		h.tb.Fatalf("failed to close storage: %v", err)
	}
	h.Store = h.open()
	return h.Store
}

func (h *SQLiteHarness) open() *sqlite.Store {
	h.tb.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, sqlite.DefaultConfig(h.Path))
	if err != nil {
		h.tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		h.tb.Fatalf("failed to migrate storage: %v", err)
	}
	h.tb.Cleanup(func() { _ = store.Close() })
	return store
}
