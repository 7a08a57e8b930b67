package failure

import (
	"fmt"
	"net/http"
)

// Phase names the part of a call that timed out.
type Phase string

const (
	PhaseConnect Phase = "connect"
	PhaseSend    Phase = "send"
	PhaseReceive Phase = "receive"
)

// TimeoutError is returned by transports when one phase of a call exceeded
// its configured timeout. It satisfies net.Error.
type TimeoutError struct {
	Phase Phase
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return string(e.Phase) + " timeout"
	}
	return fmt.Sprintf("%s timeout: %v", e.Phase, e.Err)
}

func (e *TimeoutError) Unwrap() error   { return e.Err }
func (e *TimeoutError) Timeout() bool   { return true }
func (e *TimeoutError) Temporary() bool { return true }

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       []byte // may be truncated
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.StatusCode)
	if len(e.Body) == 0 {
		return fmt.Sprintf("http %d %s", e.StatusCode, text)
	}
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, text, e.Body)
}
