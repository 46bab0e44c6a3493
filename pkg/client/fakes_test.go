package client

import (
	"net/netip"
	"time"

	"github.com/mytechnotalent/picopost/pkg/loop"
	"github.com/mytechnotalent/picopost/pkg/resolver"
)

// fakeConn is a scriptable Conn. Events fire as posts on the loop, the way
// the real transport delivers them.
type fakeConn struct {
	lp *loop.Loop

	onConnected func(error)
	onReceive   func([]byte)
	onIdle      func()
	onError     func(error)

	idleInterval time.Duration
	idleTimer    *time.Timer

	// Script: outcome of Connect and Write, the chunks delivered after a
	// successful write (a trailing nil chunk is the peer's close), and an
	// optional transport error delivered after the write instead.
	connectErr    error
	connectAsync  error
	writeErr      error
	closeErr      error
	chunks        [][]byte
	errAfterWrite error

	connectCalls []netip.AddrPort
	written      [][]byte
	acked        int
	closed       int
	aborted      int
	cleared      int
}

func (f *fakeConn) SetConnectedCallback(fn func(error)) { f.onConnected = fn }
func (f *fakeConn) SetReceiveCallback(fn func([]byte))  { f.onReceive = fn }
func (f *fakeConn) SetErrorCallback(fn func(error))     { f.onError = fn }

func (f *fakeConn) SetIdleCallback(fn func(), interval time.Duration) {
	f.onIdle = fn
	f.idleInterval = interval
	if interval > 0 {
		f.idleTimer = time.AfterFunc(interval, func() {
			f.lp.Post(func() {
				if f.onIdle != nil {
					f.onIdle()
				}
			})
		})
	}
}

func (f *fakeConn) ClearCallbacks() {
	f.cleared++
	f.onConnected = nil
	f.onReceive = nil
	f.onIdle = nil
	f.onError = nil
	if f.idleTimer != nil {
		f.idleTimer.Stop()
	}
}

func (f *fakeConn) Connect(addr netip.Addr, port uint16) error {
	f.connectCalls = append(f.connectCalls, netip.AddrPortFrom(addr, port))
	if f.connectErr != nil {
		return f.connectErr
	}
	outcome := f.connectAsync
	f.lp.Post(func() {
		if f.onConnected != nil {
			f.onConnected(outcome)
		}
	})
	return nil
}

func (f *fakeConn) Write(p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	for _, chunk := range f.chunks {
		chunk := chunk
		f.lp.Post(func() {
			if f.onReceive != nil {
				f.onReceive(chunk)
			}
		})
	}
	if f.errAfterWrite != nil {
		err := f.errAfterWrite
		f.lp.Post(func() {
			if f.onError != nil {
				f.onError(err)
			}
		})
	}
	return nil
}

func (f *fakeConn) Acknowledge(n int) { f.acked += n }

func (f *fakeConn) Close() error {
	f.closed++
	return f.closeErr
}

func (f *fakeConn) Abort() { f.aborted++ }

// fakeResolver is a scriptable Resolver.
type fakeResolver struct {
	lp *loop.Loop

	addr     netip.Addr
	syncHit  bool
	syncErr  error
	asyncErr error
	silent   bool // never deliver the callback

	calls int
}

func (r *fakeResolver) Resolve(host string, cb resolver.Callback) (netip.Addr, bool, error) {
	r.calls++
	if r.syncErr != nil {
		return netip.Addr{}, false, r.syncErr
	}
	if r.syncHit {
		return r.addr, true, nil
	}
	if r.silent {
		return netip.Addr{}, false, nil
	}
	addr, err := r.addr, r.asyncErr
	r.lp.Post(func() { cb(addr, err) })
	return netip.Addr{}, false, nil
}
