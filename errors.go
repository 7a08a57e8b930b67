package netgate

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoTransport = errors.New("netgate: transport is required")

	// ErrClosed is classified as a cancellation.
	ErrClosed = fmt.Errorf("netgate: gateway closed: %w", context.Canceled)
)

// OptionError reports an invalid Options field.
type OptionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *OptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("netgate: option %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("netgate: option %s: %s", e.Field, e.Reason)
}

func (e *OptionError) Unwrap() error { return e.Err }
