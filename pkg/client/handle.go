package client

import (
	"fmt"
	"io"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/mytechnotalent/picopost/pkg/log"
)

// Handle is the mutable state of one connection attempt. It is created by
// the Driver, mutated exclusively by its own callbacks on the event loop,
// read once after the loop exits, and then discarded.
//
// complete transitions false to true exactly once. Once it is true the
// connection reference is nil and every late signal is a no-op.
type Handle struct {
	state    State
	conn     Conn
	complete bool
	err      error

	request []byte
	port    uint16
	timeout time.Duration

	resolver  Resolver
	acc       *Accumulator
	logger    log.Logger
	attemptID string
}

// newHandle allocates the connection object for one attempt. An allocation
// failure is recorded on the returned handle, which is already complete.
func newHandle(dial DialFunc, res Resolver, port uint16, request []byte, timeout time.Duration, sink io.Writer, maxChunk int, logger log.Logger) *Handle {
	h := &Handle{
		state:     StateIdle,
		request:   request,
		port:      port,
		timeout:   timeout,
		resolver:  res,
		logger:    log.OrNoop(logger),
		attemptID: uuid.NewString(),
	}

	conn, err := dial()
	if err != nil {
		h.recordErr(fmt.Errorf("%w: %v", ErrAllocationFailed, err))
		h.close()
		return h
	}
	h.conn = conn
	h.acc = NewAccumulator(sink, maxChunk, conn.Acknowledge, h.logger, h.attemptID)
	return h
}

// AttemptID returns the unique identifier logged with this attempt's events.
func (h *Handle) AttemptID() string { return h.attemptID }

// Complete reports whether the attempt has finished. The Driver's pump loop
// exits on this flag.
func (h *Handle) Complete() bool { return h.complete }

// Err returns the recorded attempt error, nil on clean completion.
func (h *Handle) Err() error { return h.err }

// State returns the current attempt state.
func (h *Handle) State() State { return h.state }

// open registers the callback slots and starts resolution. It returns false
// when the attempt failed immediately; the handle is then already closed
// with the failure recorded.
func (h *Handle) open(host string) bool {
	if h.complete {
		return false
	}

	h.conn.SetConnectedCallback(h.onConnected)
	h.conn.SetReceiveCallback(h.onReceived)
	h.conn.SetErrorCallback(h.onError)
	// The watchdog interval equals the timeout budget; with detection
	// granularity of one interval the attempt cannot outlive roughly twice
	// the budget. Registration also arms it for the resolving stage.
	h.conn.SetIdleCallback(h.onIdlePoll, h.timeout)

	h.transition(StateResolving, "")

	addr, done, err := h.resolver.Resolve(host, h.onResolved)
	if err != nil {
		h.recordErr(fmt.Errorf("%w: %v", ErrResolutionFailed, err))
		h.close()
		return false
	}
	if done {
		h.connectTo(addr)
		return !h.complete
	}
	return true
}

// onResolved consumes the asynchronous resolution result.
func (h *Handle) onResolved(addr netip.Addr, err error) {
	if h.complete {
		return
	}
	if err != nil {
		h.recordErr(fmt.Errorf("%w: %v", ErrResolutionFailed, err))
		h.close()
		return
	}
	h.connectTo(addr)
}

func (h *Handle) connectTo(addr netip.Addr) {
	h.transition(StateConnecting, "")
	h.progress(fmt.Sprintf("connecting to %s port %d", addr, h.port))
	if err := h.conn.Connect(addr, h.port); err != nil {
		h.recordErr(fmt.Errorf("%w: %v", ErrConnectFailed, err))
		h.close()
	}
}

// onConnected consumes the dial outcome. On success the whole request is
// written in one call.
func (h *Handle) onConnected(err error) {
	if h.complete {
		return
	}
	if err != nil {
		h.recordErr(fmt.Errorf("%w: %v", ErrConnectFailed, err))
		h.close()
		return
	}

	h.transition(StateEstablished, "")

	if err := h.conn.Write(h.request); err != nil {
		h.recordErr(fmt.Errorf("%w: %v", ErrWriteFailed, err))
		h.close()
		return
	}
	h.progress(fmt.Sprintf("request sent, %d bytes", len(h.request)))
}

// onReceived consumes one inbound chunk. A nil chunk is the peer's orderly
// close and completes the attempt without error.
func (h *Handle) onReceived(chunk []byte) {
	if h.complete {
		return
	}
	if chunk == nil {
		h.close()
		return
	}
	if err := h.acc.Consume(chunk); err != nil {
		h.recordErr(err)
		h.close()
	}
}

// onIdlePoll fires when no activity occurred within the timeout budget.
func (h *Handle) onIdlePoll() {
	if h.complete {
		return
	}
	h.recordErr(ErrTimedOut)
	h.close()
}

// onError consumes a fatal transport condition. It may arrive after a prior
// close already released the connection; the guard makes that a no-op.
func (h *Handle) onError(err error) {
	if h.complete {
		return
	}
	h.recordErr(fmt.Errorf("%w: %v", ErrTransport, err))
	h.close()
}

// cancel records err and closes the handle. The Driver uses it between
// pumps when the caller's context expires.
func (h *Handle) cancel(err error) {
	if h.complete {
		return
	}
	h.recordErr(err)
	h.close()
}

// close finishes the attempt. Idempotent. complete is set before teardown so
// a late callback racing the driver's exit check always loses; callbacks are
// unregistered before shutdown so the shutdown itself cannot re-enter close.
// The connection reference is dropped last.
func (h *Handle) close() {
	h.complete = true
	if h.conn == nil {
		if h.state != StateClosed {
			h.transition(StateClosed, reasonFor(h.err))
		}
		return
	}

	conn := h.conn
	conn.ClearCallbacks()
	if err := conn.Close(); err != nil {
		conn.Abort()
	}
	h.conn = nil

	h.transition(StateClosed, reasonFor(h.err))
}

// recordErr records the first error only; later signals must not overwrite.
func (h *Handle) recordErr(err error) {
	if h.err != nil {
		return
	}
	h.err = err
	h.logger.Log(log.Event{
		Timestamp: time.Now(),
		AttemptID: h.attemptID,
		Category:  log.CategoryError,
		Error:     &log.ErrorEvent{Kind: errorKind(err), Message: err.Error()},
	})
}

func (h *Handle) transition(next State, reason string) {
	old := h.state
	h.state = next
	h.logger.Log(log.Event{
		Timestamp:   time.Now(),
		AttemptID:   h.attemptID,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{OldState: old.String(), NewState: next.String(), Reason: reason},
	})
}

func (h *Handle) progress(msg string) {
	h.logger.Log(log.Event{
		Timestamp: time.Now(),
		AttemptID: h.attemptID,
		Category:  log.CategoryProgress,
		Message:   msg,
	})
}

func reasonFor(err error) string {
	if err == nil {
		return ""
	}
	return errorKind(err)
}
