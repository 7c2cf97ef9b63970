// Package crossbuild lets Builds wait on one another and join on a shared teardown barrier.
//
// A Coordinator owns all state shared between the pipelines of one run: the
// completion bus, the set of completed Builds, the build counter and the
// dispose-all barrier. Each run creates its own Coordinator.
package crossbuild

import (
	"context"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

// Result describes how a wait item was consumed.
type Result struct {
	Outcome domain.WaitOutcome
	// AlreadyDone is set when the target had completed before the wait started.
	AlreadyDone bool
	Elapsed     time.Duration
}

// Coordinator synchronizes the Builds of one run.
type Coordinator struct {
	counter atomic.Int64

	mu          sync.Mutex
	completed   map[string]struct{}
	subscribers map[string][]chan struct{}

	barrierMu    sync.Mutex
	armed        bool
	expected     int
	disposed     map[string]struct{}
	fired        bool
	onDisposeAll []func()
	allDisposed  chan struct{}
}

// New creates a Coordinator with an empty completed set.
func New() *Coordinator {
	return &Coordinator{
		completed:   make(map[string]struct{}),
		subscribers: make(map[string][]chan struct{}),
		disposed:    make(map[string]struct{}),
		allDisposed: make(chan struct{}),
	}
}

// NextID returns the next build number of this run, starting at 1.
func (c *Coordinator) NextID() int64 {
	return c.counter.Add(1)
}

// MarkDone records that a Build completed without errors and wakes every waiter
// subscribed to its name or type.
func (c *Coordinator) MarkDone(build *domain.Build) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, event := range build.DoneEvents() {
		c.completed[event] = struct{}{}
		for _, ch := range c.subscribers[event] {
			close(ch)
		}
		delete(c.subscribers, event)
	}
}

// IsDone reports whether the named Build, or a Build of that type, has completed.
func (c *Coordinator) IsDone(target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.completed[domain.DoneEvent(target)]
	return ok
}

// Completed returns the completion signals seen so far, sorted.
func (c *Coordinator) Completed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.completed))
	for event := range c.completed {
		out = append(out, event)
	}
	slices.Sort(out)
	return out
}

// subscribe returns a channel closed when target completes. If target already
// completed it returns ok=false and no channel; the check and the subscription
// happen under one lock so a completion is never missed.
func (c *Coordinator) subscribe(target string) (ch chan struct{}, ok bool) {
	event := domain.DoneEvent(target)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.completed[event]; done {
		return nil, false
	}
	ch = make(chan struct{})
	c.subscribers[event] = append(c.subscribers[event], ch)
	return ch, true
}

func (c *Coordinator) unsubscribe(target string, ch chan struct{}) {
	event := domain.DoneEvent(target)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscribers[event] = slices.DeleteFunc(c.subscribers[event], func(s chan struct{}) bool { return s == ch })
	if len(c.subscribers[event]) == 0 {
		delete(c.subscribers, event)
	}
}

// Wait blocks until item's condition holds or its timeout fires, whichever
// comes first. A timeout is not an error. Wait only fails when ctx is done.
func (c *Coordinator) Wait(ctx context.Context, item domain.WaitItem) (Result, error) {
	start := time.Now()

	timeout := item.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultWaitTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var condition <-chan struct{}
	switch item.Mode {
	case domain.WaitPoll:
		condition = poll(ctx, item.Path, item.PollInterval)
	default:
		ch, ok := c.subscribe(item.Target)
		if !ok {
			return Result{Outcome: domain.WaitResolved, AlreadyDone: true}, nil
		}
		defer c.unsubscribe(item.Target, ch)
		condition = ch
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-condition:
		return Result{Outcome: domain.WaitResolved, Elapsed: time.Since(start)}, nil
	case <-timer.C:
		return Result{Outcome: domain.WaitTimedOut, Elapsed: time.Since(start)}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// poll returns a channel closed once path exists. Polling stops when ctx is done.
func poll(ctx context.Context, path string, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = domain.DefaultPollInterval
	}

	found := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if path != "" {
				if _, err := os.Stat(path); err == nil {
					close(found)
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return found
}

// ExpectDisposals arms the barrier with the number of Builds that must report
// disposal before it fires. A count of zero fires it at once.
func (c *Coordinator) ExpectDisposals(n int) {
	c.barrierMu.Lock()
	c.armed = true
	c.expected = n
	c.barrierMu.Unlock()
	c.maybeFire()
}

// Disposed records that the named Build finished disposing. Repeated calls for
// the same Build count once.
func (c *Coordinator) Disposed(build string) {
	c.barrierMu.Lock()
	c.disposed[build] = struct{}{}
	c.barrierMu.Unlock()
	c.maybeFire()
}

// OnDisposeAll registers fn to run once every expected Build has disposed.
// If the barrier already fired, fn runs immediately.
func (c *Coordinator) OnDisposeAll(fn func()) {
	c.barrierMu.Lock()
	if c.fired {
		c.barrierMu.Unlock()
		fn()
		return
	}
	c.onDisposeAll = append(c.onDisposeAll, fn)
	c.barrierMu.Unlock()
}

// AllDisposed returns a channel closed when the dispose-all barrier fires.
func (c *Coordinator) AllDisposed() <-chan struct{} {
	return c.allDisposed
}

func (c *Coordinator) maybeFire() {
	c.barrierMu.Lock()
	if !c.armed || c.fired || len(c.disposed) < c.expected {
		c.barrierMu.Unlock()
		return
	}
	c.fired = true
	callbacks := c.onDisposeAll
	c.onDisposeAll = nil
	close(c.allDisposed)
	c.barrierMu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
