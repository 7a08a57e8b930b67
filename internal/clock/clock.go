// Package clock abstracts time so TTLs and debounce windows can be driven
// deterministically in tests. Both clocks come from jonboulle/clockwork.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used by the cache, the scheduler and the
// classifier. clockwork's real and fake clocks satisfy it as is.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a pending AfterFunc call.
type Timer = clockwork.Timer

// Fake is a manually advanced clock. Advance expires due timers in deadline
// order; their callbacks still run on their own goroutines.
type Fake = clockwork.FakeClock

var (
	_ Clock = clockwork.NewRealClock()
	_ Clock = (*Fake)(nil)
)

// Real returns the wall clock.
func Real() Clock { return clockwork.NewRealClock() }

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake { return clockwork.NewFakeClockAt(start) }
