package persistence

import "errors"

var (
	// ErrNotFound is returned when no record is stored under a key.
	ErrNotFound = errors.New("persistence: record not found")
	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("persistence: store closed")
)
