package errs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Error taxonomy shared by the store, the messenger service and the
// HTTP layer. Callers classify with errors.Is.
var (
	// ErrNotFound: a referenced conversation or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: rejected input (bad page size, malformed
	// cursor, sender == receiver, empty content).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTimeout: a storage call exceeded the caller's deadline.
	ErrTimeout = errors.New("deadline exceeded")
	// ErrUnavailable: the storage layer is unreachable; the caller may
	// retry the whole operation.
	ErrUnavailable = errors.New("storage unavailable")
)

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted detail message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// FromStore normalizes storage-layer errors into the taxonomy. Pebble
// misses become ErrNotFound, context expiry becomes ErrTimeout, and
// anything else is wrapped as ErrUnavailable.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
}
