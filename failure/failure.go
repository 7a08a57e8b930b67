// Package failure maps transport outcomes to a closed set of failure kinds.
//
// Callers branch on Failure.Kind and Failure.Retryable to pick a retry or
// backoff policy; the gateway itself never retries.
package failure

import (
	"fmt"
	"time"
)

// Kind is the category of a classified failure.
type Kind uint8

const (
	Unknown Kind = iota
	Timeout
	NetworkUnavailable
	Cancelled
	Validation
	Authentication
	Authorization
	NotFound
	RateLimited
	ServerError
)

var kindNames = [...]string{
	Unknown:            "unknown",
	Timeout:            "timeout",
	NetworkUnavailable: "network_unavailable",
	Cancelled:          "cancelled",
	Validation:         "validation",
	Authentication:     "authentication",
	Authorization:      "authorization",
	NotFound:           "not_found",
	RateLimited:        "rate_limited",
	ServerError:        "server_error",
}

// Kinds lists every kind, Unknown first.
func Kinds() []Kind {
	return []Kind{Unknown, Timeout, NetworkUnavailable, Cancelled, Validation,
		Authentication, Authorization, NotFound, RateLimited, ServerError}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Unknown]
}

// MarshalText renders the kind as its snake_case name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Retryable reports whether an identical request may succeed later.
func (k Kind) Retryable() bool {
	switch k {
	case Timeout, NetworkUnavailable, RateLimited, ServerError:
		return true
	default:
		return false
	}
}

// Failure is a classified transport outcome. It is built once by a
// Classifier and never modified. It deliberately does not unwrap to the raw
// transport error.
type Failure struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (f *Failure) Error() string {
	if f.Code != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Code, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Is matches another *Failure of the same kind, so errors.Is(err, &Failure{Kind: NotFound})
// works as a kind check.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind
}
