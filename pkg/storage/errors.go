package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceMissing is returned when the staged temp file is gone.
	ErrSourceMissing = errors.New("source file missing")
	// ErrInvalidKey is returned for logical keys that are absolute or escape the root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// ConfigurationError reports a backend whose options are incomplete after
// resolving credential indirections. It is never retried.
type ConfigurationError struct {
	Kind  Kind
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s backend misconfigured: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s backend misconfigured: %s: %s", e.Kind, e.Field, e.Msg)
}

// Missing builds a ConfigurationError for a required field.
func Missing(kind Kind, field string) error {
	return &ConfigurationError{Kind: kind, Field: field, Msg: "is required"}
}

// TransferError wraps a transport failure talking to a backend.
type TransferError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// UnsupportedBackendError is returned when no provider exists for a kind,
// or when a locator cannot be served for the backend it belongs to.
type UnsupportedBackendError struct {
	Kind    Kind
	Locator string
}

func (e *UnsupportedBackendError) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("unsupported backend %q for locator %q", e.Kind, e.Locator)
	}
	return fmt.Sprintf("unsupported backend %q", e.Kind)
}

// IsRetryable reports whether err came from a transient transport failure.
func IsRetryable(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
