package application

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/bluetech/invoice-desk/internal/webhook"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                       nil,
		"unauthorized":           fmt.Errorf("wrapped: %w", ErrUnauthorized),
		"not_authenticated":      ErrNotAuthenticated,
		"duplicate_username":     ErrDuplicateUsername,
		"invalid_credentials":    ErrInvalidCredentials,
		"missing_webhook_config": ErrMissingWebhookConfig,
		"submission_in_flight":   ErrSubmissionInFlight,
		"submission_failed":      fmt.Errorf("%w: %w", ErrSubmissionFailed, errors.New("dial tcp")),
		"webhook_status":         fmt.Errorf("%w: %w", ErrSubmissionFailed, &webhook.StatusError{StatusCode: 500}),
		"validation":             fieldError("username", "is required"),
		"unexpected":             errors.New("boom"),
	}

	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
