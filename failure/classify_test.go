package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "fake net error" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestClassifyStatusTable(t *testing.T) {
	cases := []struct {
		code int
		want Kind
	}{
		{400, Validation},
		{422, Validation},
		{401, Authentication},
		{403, Authorization},
		{404, NotFound},
		{429, RateLimited},
		{500, ServerError},
		{502, ServerError},
		{503, ServerError},
		{599, ServerError},
		{409, Unknown},
		{418, Unknown},
		{302, Unknown},
		{600, Unknown},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			f := Classify(&StatusError{StatusCode: tc.code})
			if f.Kind != tc.want {
				t.Fatalf("status %d: kind=%v want %v", tc.code, f.Kind, tc.want)
			}
			if f.Code != fmt.Sprint(tc.code) {
				t.Fatalf("code=%q", f.Code)
			}
			if f.Retryable != tc.want.Retryable() {
				t.Fatalf("retryable=%v", f.Retryable)
			}
		})
	}
}

func TestClassifyTransportErrors(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Unknown},
		{"plain", errors.New("boom"), Unknown},
		{"cancelled", context.Canceled, Cancelled},
		{"wrapped cancel", fmt.Errorf("get: %w", context.Canceled), Cancelled},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"phase timeout", &TimeoutError{Phase: PhaseReceive}, Timeout},
		{"net timeout", fakeNetErr{timeout: true}, Timeout},
		{"net non-timeout", fakeNetErr{}, Unknown},
		{"refused", refused, NetworkUnavailable},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), NetworkUnavailable},
		{"host unreachable", syscall.EHOSTUNREACH, NetworkUnavailable},
		{"net unreachable", syscall.ENETUNREACH, NetworkUnavailable},
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, NetworkUnavailable},
		{"dial other", &net.OpError{Op: "dial", Err: errors.New("x")}, NetworkUnavailable},
		{"read other", &net.OpError{Op: "read", Err: errors.New("x")}, Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err).Kind; got != tc.want {
				t.Fatalf("Classify(%v)=%v want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCancelWinsOverTimeout(t *testing.T) {
	err := &TimeoutError{Phase: PhaseSend, Err: context.Canceled}
	if got := Classify(err).Kind; got != Cancelled {
		t.Fatalf("kind=%v want cancelled", got)
	}
}

func TestTimeoutPhaseInCode(t *testing.T) {
	f := Classify(&TimeoutError{Phase: PhaseConnect, Err: errors.New("i/o timeout")})
	if f.Code != "connect" {
		t.Fatalf("code=%q want connect", f.Code)
	}
	if !f.Retryable {
		t.Fatal("timeouts are retryable")
	}
}

func TestClassifierUsesClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Classifier{Now: func() time.Time { return at }}
	if got := c.Classify(errors.New("x")).Timestamp; !got.Equal(at) {
		t.Fatalf("timestamp=%v want %v", got, at)
	}
}

func TestClassifyKeepsExistingFailure(t *testing.T) {
	orig := &Failure{Kind: RateLimited, Message: "slow down", Code: "429", Retryable: true}
	got := Classify(fmt.Errorf("wrapped: %w", orig))
	if got != *orig {
		t.Fatalf("got %+v want %+v", got, *orig)
	}
}

func TestFailureIsMatchesKind(t *testing.T) {
	f := Classify(&StatusError{StatusCode: 404})
	var err error = &f
	if !errors.Is(err, &Failure{Kind: NotFound}) {
		t.Fatal("errors.Is should match on kind")
	}
	if errors.Is(err, &Failure{Kind: ServerError}) {
		t.Fatal("different kind must not match")
	}
}

func TestRetryableKinds(t *testing.T) {
	retryable := map[Kind]bool{Timeout: true, NetworkUnavailable: true, RateLimited: true, ServerError: true}
	for _, k := range Kinds() {
		if k.Retryable() != retryable[k] {
			t.Errorf("%v.Retryable()=%v", k, k.Retryable())
		}
	}
	if Kind(200).String() != "unknown" {
		t.Fatal("out of range kind should print unknown")
	}
}
