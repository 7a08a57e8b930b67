package failure

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Classifier turns transport errors into Failures stamped with its clock.
// The zero value uses the wall clock.
type Classifier struct {
	Now func() time.Time
}

// Classify maps err using the wall clock. It is total: every error, including
// nil, yields exactly one Kind.
func Classify(err error) Failure {
	return Classifier{}.Classify(err)
}

func (c Classifier) Classify(err error) Failure {
	var already *Failure
	if errors.As(err, &already) {
		return *already
	}

	kind, code := classify(err)
	msg := "no error"
	if err != nil {
		msg = err.Error()
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return Failure{
		Kind:      kind,
		Message:   msg,
		Code:      code,
		Retryable: kind.Retryable(),
		Timestamp: now(),
	}
}

func classify(err error) (Kind, string) {
	if err == nil {
		return Unknown, ""
	}

	// cancellation wins over anything it may have caused downstream
	if errors.Is(err, context.Canceled) {
		return Cancelled, ""
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return Timeout, string(te.Phase)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout, "deadline"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout, ""
	}

	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.StatusCode), strconv.Itoa(se.StatusCode)
	}

	if code, ok := unreachable(err); ok {
		return NetworkUnavailable, code
	}
	return Unknown, ""
}

// ClassifyStatus maps an HTTP status code on its own. 2xx maps to Unknown.
func ClassifyStatus(code int) Kind { return classifyStatus(code) }

func classifyStatus(code int) Kind {
	switch {
	case code == 400 || code == 422:
		return Validation
	case code == 401:
		return Authentication
	case code == 403:
		return Authorization
	case code == 404:
		return NotFound
	case code == 429:
		return RateLimited
	case code >= 500 && code <= 599:
		return ServerError
	default:
		return Unknown
	}
}

// unreachable recognises errors meaning no connection could be established
// or it dropped before a response arrived.
func unreachable(err error) (string, bool) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns", true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return "connection_refused", true
		case syscall.ECONNRESET:
			return "connection_reset", true
		case syscall.EHOSTUNREACH:
			return "host_unreachable", true
		case syscall.ENETUNREACH:
			return "network_unreachable", true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial", true
	}
	return "", false
}
