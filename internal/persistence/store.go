// Package persistence stores the desk's four named records (form draft, invoice
// history, audit log and user list) in a key-value store that outlives the
// process. Each record is an independent JSON document; there is no cross-key
// transaction.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Record keys. They must stay stable across restarts of a deployment.
const (
	KeyDraft   = "invoice-config"
	KeyHistory = "invoice-history"
	KeyAudit   = "invoice-audit"
	KeyUsers   = "invoice-users"
)

// Keys lists every record key in flush order.
func Keys() []string {
	return []string{KeyDraft, KeyHistory, KeyAudit, KeyUsers}
}

// KeyValueStore is the durable byte store behind the records.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// Record pairs a key with the value to serialize under it.
type Record struct {
	Key   string
	Value any
}

// Decoder decodes stored bytes into a value seeded from a default.
type Decoder[T any] func(data []byte, def T) (T, error)

// JSONDecoder unmarshals data into a fresh T. def is returned for a JSON null
// and on error; it is never used as the decode target, so stored elements cannot
// inherit fields from default elements.
func JSONDecoder[T any](data []byte, def T) (T, error) {
	if isNull(data) {
		return def, nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return def, err
	}
	return out, nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// LoadWithDefault reads key and decodes it, failing open: a missing key, a read
// failure or undecodable data all yield a fresh def(). def is called for every
// fallback so callers never share a partially decoded value.
func LoadWithDefault[T any](ctx context.Context, store KeyValueStore, key string, def func() T, decode Decoder[T], logger *slog.Logger) T {
	if logger == nil {
		logger = slog.Default()
	}
	if decode == nil {
		decode = JSONDecoder[T]
	}
	if store == nil {
		return def()
	}

	raw, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to read record, using default", "key", key, "error", err)
		}
		return def()
	}

	value, err := decode(raw, def())
	if err != nil {
		logger.WarnContext(ctx, "stored record is malformed, using default", "key", key, "error", err)
		return def()
	}
	return value
}

// SaveAll serializes and writes every record. Each key is written on its own;
// a failure on one key does not stop the others and all failures are joined.
func SaveAll(ctx context.Context, store KeyValueStore, records ...Record) error {
	if store == nil {
		return fmt.Errorf("persistence: store not configured")
	}
	var errs []error
	for _, rec := range records {
		data, err := json.Marshal(rec.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", rec.Key, err))
			continue
		}
		if err := store.Put(ctx, rec.Key, data); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", rec.Key, err))
		}
	}
	return errors.Join(errs...)
}

// ResetAll removes every persisted record.
func ResetAll(ctx context.Context, store KeyValueStore) error {
	if store == nil {
		return fmt.Errorf("persistence: store not configured")
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}
