package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing credentials or paths. Fatal at startup,
	// never raised per-request.
	ErrConfiguration = errors.New("configuration error")

	// ErrInsufficientInput marks a question from which no usable trade lane
	// could be extracted. Retrying the identical question would fail
	// identically, so the pipeline halts without retry.
	ErrInsufficientInput = errors.New("insufficient input")

	// ErrAcquisition marks a hard network/automation failure while fetching
	// documents. The user may re-submit.
	ErrAcquisition = errors.New("acquisition failed")

	// ErrIndexUnavailable is the expected Cold state of an empty corpus. It
	// drives the fallback answer branch and is never surfaced to the user as
	// an error.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrSynthesis marks a completion-service failure. There is no further
	// fallback once synthesis fails.
	ErrSynthesis = errors.New("synthesis failed")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
