package loop

import (
	"sync"
	"time"
)

// Loop is a single-consumer work queue. Any goroutine may Post; exactly one
// goroutine may Pump and WaitForWork.
type Loop struct {
	mu    sync.Mutex
	queue []func()

	// wake carries at most one pending wakeup token.
	wake chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn for execution on the next Pump. Safe to call from any
// goroutine, including from inside a callback running on the loop.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
		// A wakeup is already pending.
	}
}

// Pump runs every callback that was queued when Pump was called and returns
// the number of callbacks executed. Callbacks posted during Pump run on the
// next Pump, which keeps a re-posting callback from starving the caller.
func (l *Loop) Pump() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// WaitForWork blocks until work is posted or the interval elapses, whichever
// comes first. It returns true if work is queued. Spurious true returns are
// possible when a wakeup token from an already-pumped Post is still pending;
// the following Pump is then a no-op.
func (l *Loop) WaitForWork(interval time.Duration) bool {
	if l.Len() > 0 {
		return true
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-l.wake:
		return true
	case <-timer.C:
		return l.Len() > 0
	}
}
