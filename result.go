package netgate

import "github.com/unkn0wn-root/netgate/failure"

// Source tells where a successful Result came from.
type Source uint8

const (
	SourceNone Source = iota
	SourceCache
	SourceTransport
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceTransport:
		return "transport"
	default:
		return "none"
	}
}

// Result is the outcome of Read or Mutate. Exactly one of Value (with
// Failure == nil) or Failure is meaningful.
type Result[V any] struct {
	Value   V
	Failure *failure.Failure
	Source  Source
	Status  int // HTTP status when the transport answered; 0 on cache hits
}

func (r Result[V]) OK() bool { return r.Failure == nil }

// Unwrap returns the value and the failure as a plain error.
func (r Result[V]) Unwrap() (V, error) {
	if r.Failure != nil {
		return r.Value, r.Failure
	}
	return r.Value, nil
}
