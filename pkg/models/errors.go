package models

import (
	"errors"
	"fmt"
)

// The three failure classes every client maps its backend's errors into. The
// host does not branch on them, but callers that surface errors to a UI can:
// ErrAuthRequired should prompt for credentials, ErrBackendUnavailable is
// worth retrying, ErrProviderError is a definitive rejection.
var (
	ErrAuthRequired       = errors.New("model: authentication required")
	ErrBackendUnavailable = errors.New("model: backend unavailable")
	ErrProviderError      = errors.New("model: provider error")
)

// AuthRequiredError wraps a backend detail message in ErrAuthRequired.
func AuthRequiredError(detail string) error {
	return fmt.Errorf("%w: %s", ErrAuthRequired, detail)
}

// BackendUnavailableError wraps a transport-level failure in
// ErrBackendUnavailable.
func BackendUnavailableError(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

// ProviderFailure wraps the backend's own error message, verbatim, in
// ErrProviderError.
func ProviderFailure(message string) error {
	return fmt.Errorf("%w: %s", ErrProviderError, message)
}
