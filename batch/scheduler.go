// Package batch coalesces bursts of submitted operations into timed flushes.
//
// Every Submit re-arms a single debounce timer, so a flush starts Delay after
// the most recent submission and dispatches the whole queue concurrently.
// Operations are never inspected or merged; each one resolves its own Future.
//
// A steady stream of submissions arriving faster than Delay keeps pushing the
// flush back. Set MaxWait to bound how long the first queued operation waits.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/netgate/internal/clock"
)

const defaultDelay = 50 * time.Millisecond

var (
	// ErrClosed resolves submissions made after Close. It wraps
	// context.Canceled so callers classify it as a cancellation.
	ErrClosed = fmt.Errorf("batch: scheduler closed: %w", context.Canceled)

	ErrNilOp = errors.New("batch: nil operation")
)

// Options configure a Scheduler.
type Options struct {
	Delay   time.Duration // debounce window; 0 => 50ms
	MaxWait time.Duration // cap measured from the first queued submission; 0 disables

	// MaxConcurrency limits how many operations of one flush run at once.
	// 0 runs them all in parallel.
	MaxConcurrency int

	Clock clock.Clock

	// OnFlush is called with the batch size when a flush starts.
	OnFlush func(n int)
}

type task[T any] struct {
	ctx context.Context
	op  func(context.Context) (T, error)
	fut *Future[T]
}

// Scheduler is safe for concurrent use.
type Scheduler[T any] struct {
	mu      sync.Mutex
	queue   []*task[T]
	firstAt time.Time
	timer   clock.Timer
	gen     uint64 // bumped whenever the armed timer is replaced or disarmed
	closed  bool

	delay   time.Duration
	maxWait time.Duration
	limit   int
	clock   clock.Clock
	onFlush func(int)

	inflight sync.WaitGroup
}

func New[T any](opts Options) *Scheduler[T] {
	s := &Scheduler[T]{
		delay:   opts.Delay,
		maxWait: opts.MaxWait,
		limit:   opts.MaxConcurrency,
		clock:   opts.Clock,
		onFlush: opts.OnFlush,
	}
	if s.delay <= 0 {
		s.delay = defaultDelay
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	return s
}

// Delay returns the debounce window.
func (s *Scheduler[T]) Delay() time.Duration { return s.delay }

// Submit queues op and (re)arms the flush timer. op receives ctx when it runs;
// if ctx is already done at flush time op is skipped and the future resolves
// with ctx.Err().
func (s *Scheduler[T]) Submit(ctx context.Context, op func(context.Context) (T, error)) *Future[T] {
	var zero T
	if op == nil {
		return resolved(zero, ErrNilOp)
	}
	t := &task[T]{ctx: ctx, op: op, fut: newFuture[T]()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return resolved(zero, ErrClosed)
	}

	now := s.clock.Now()
	if len(s.queue) == 0 {
		s.firstAt = now
	}
	s.queue = append(s.queue, t)

	wait := s.delay
	if s.maxWait > 0 {
		if left := s.firstAt.Add(s.maxWait).Sub(now); left < wait {
			wait = max(left, 0)
		}
	}
	s.rearmLocked(wait)
	return t.fut
}

// Pending returns the number of queued operations not yet dispatched.
func (s *Scheduler[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush dispatches the queue now without waiting for the timer and returns
// how many operations were started.
func (s *Scheduler[T]) Flush() int {
	s.mu.Lock()
	s.disarmLocked()
	tasks := s.takeLocked()
	s.mu.Unlock()

	if len(tasks) > 0 {
		go s.dispatch(tasks)
	}
	return len(tasks)
}

// Close dispatches anything still queued, rejects later submissions with
// ErrClosed and waits for in-flight operations or ctx, whichever ends first.
func (s *Scheduler[T]) Close(ctx context.Context) error {
	s.mu.Lock()
	var tasks []*task[T]
	if !s.closed {
		s.closed = true
		s.disarmLocked()
		tasks = s.takeLocked()
	}
	s.mu.Unlock()

	if len(tasks) > 0 {
		go s.dispatch(tasks)
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler[T]) rearmLocked(d time.Duration) {
	s.disarmLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Scheduler[T]) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler[T]) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		// superseded by a later Submit, Flush or Close
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.gen++
	tasks := s.takeLocked()
	s.mu.Unlock()

	if len(tasks) > 0 {
		s.dispatch(tasks)
	}
}

// takeLocked empties the queue and registers the batch as in flight.
func (s *Scheduler[T]) takeLocked() []*task[T] {
	tasks := s.queue
	s.queue = nil
	if len(tasks) > 0 {
		s.inflight.Add(1)
	}
	return tasks
}

func (s *Scheduler[T]) dispatch(tasks []*task[T]) {
	defer s.inflight.Done()
	if s.onFlush != nil {
		s.onFlush(len(tasks))
	}

	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for _, t := range tasks {
		g.Go(func() error {
			t.run()
			return nil // failures stay on the task's own future
		})
	}
	_ = g.Wait()
}

func (t *task[T]) run() {
	var zero T
	if err := t.ctx.Err(); err != nil {
		t.fut.resolve(zero, err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.fut.resolve(zero, &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	v, err := t.op(t.ctx)
	t.fut.resolve(v, err)
}
