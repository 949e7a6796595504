package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotAuthenticated is returned when no valid session backs the call.
	ErrNotAuthenticated = errors.New("application: not authenticated")
	// ErrInvalidCredentials is returned when no user matches the supplied username and password.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrDuplicateUsername is returned when a new user reuses an existing username.
	ErrDuplicateUsername = errors.New("application: username already exists")
	// ErrMissingWebhookConfig is returned when a submission is attempted without a webhook URL.
	ErrMissingWebhookConfig = errors.New("application: webhook url not configured")
	// ErrSubmissionInFlight is returned while another submission awaits its reply.
	ErrSubmissionInFlight = errors.New("application: submission already in flight")
	// ErrSubmissionFailed wraps webhook rejections and transport failures.
	ErrSubmissionFailed = errors.New("application: submission failed")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func fieldError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}
