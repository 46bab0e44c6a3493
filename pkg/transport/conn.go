package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mytechnotalent/picopost/pkg/loop"
)

// Transport defaults.
const (
	// DefaultDialTimeout bounds TCP connect plus TLS handshake.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReceiveWindow is the number of unacknowledged bytes the read
	// goroutine may hold before it stops pulling from the socket.
	DefaultReceiveWindow = 64 * 1024

	// DefaultReadBufferSize is the per-read chunk size.
	DefaultReadBufferSize = 4 * 1024
)

// Transport errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnClosed       = errors.New("connection closed")
)

// Config configures a Conn.
type Config struct {
	// TLS is the client TLS configuration. Required.
	TLS *tls.Config

	// DialTimeout bounds TCP connect plus TLS handshake (default: 10s).
	DialTimeout time.Duration

	// WriteTimeout is the deadline applied to each write (0 = none).
	WriteTimeout time.Duration

	// ReceiveWindow is the unacknowledged-byte limit (default: 64KB).
	ReceiveWindow int

	// ReadBufferSize is the per-read chunk size (default: 4KB).
	ReadBufferSize int
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig(tlsCfg *tls.Config) Config {
	return Config{
		TLS:            tlsCfg,
		DialTimeout:    DefaultDialTimeout,
		ReceiveWindow:  DefaultReceiveWindow,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// Conn is a TLS client connection whose events are delivered through an
// event loop. Callback registration and clearing are safe from loop
// callbacks; a cleared callback suppresses deliveries already queued.
type Conn struct {
	lp  *loop.Loop
	cfg Config

	mu  sync.Mutex
	raw net.Conn
	tc  *tls.Conn

	onConnected func(err error)
	onReceive   func(chunk []byte)
	onIdle      func()
	onError     func(err error)

	idleInterval time.Duration
	idleStarted  bool

	dialed  bool
	closing bool

	closeOnce sync.Once
	closeCh   chan struct{}

	lastActivity atomic.Int64

	// Receive window accounting, guarded by windowMu.
	windowMu sync.Mutex
	window   *sync.Cond
	unacked  int
}

// NewConn creates a connection bound to lp. It does not dial.
func NewConn(lp *loop.Loop, cfg Config) *Conn {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReceiveWindow == 0 {
		cfg.ReceiveWindow = DefaultReceiveWindow
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = DefaultReadBufferSize
	}

	c := &Conn{
		lp:      lp,
		cfg:     cfg,
		closeCh: make(chan struct{}),
	}
	c.window = sync.NewCond(&c.windowMu)
	c.touch()
	return c
}

// SetConnectedCallback registers the dial outcome callback. It fires once,
// with a nil error after a successful TLS handshake.
func (c *Conn) SetConnectedCallback(fn func(err error)) {
	c.mu.Lock()
	c.onConnected = fn
	c.mu.Unlock()
}

// SetReceiveCallback registers the data callback. A nil chunk signals an
// orderly close by the peer.
func (c *Conn) SetReceiveCallback(fn func(chunk []byte)) {
	c.mu.Lock()
	c.onReceive = fn
	c.mu.Unlock()
}

// SetIdleCallback registers the inactivity callback and starts the watchdog
// immediately, so the interval also covers time spent connecting.
func (c *Conn) SetIdleCallback(fn func(), interval time.Duration) {
	c.mu.Lock()
	c.onIdle = fn
	c.idleInterval = interval
	start := !c.idleStarted && interval > 0
	if start {
		c.idleStarted = true
	}
	c.mu.Unlock()

	if start {
		c.touch()
		go c.idleLoop(interval)
	}
}

// SetErrorCallback registers the fatal transport error callback.
func (c *Conn) SetErrorCallback(fn func(err error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// ClearCallbacks unregisters all callbacks. Events already queued on the
// loop become no-ops.
func (c *Conn) ClearCallbacks() {
	c.mu.Lock()
	c.onConnected = nil
	c.onReceive = nil
	c.onIdle = nil
	c.onError = nil
	c.mu.Unlock()
}

// Connect starts dialing addr:port in the background. The outcome arrives
// via the connected callback.
func (c *Conn) Connect(addr netip.Addr, port uint16) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if c.dialed {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.dialed = true
	c.mu.Unlock()

	go c.dial(netip.AddrPortFrom(addr.Unmap(), port))
	return nil
}

func (c *Conn) dial(ap netip.AddrPort) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", ap.String())
	if err != nil {
		c.notifyConnected(fmt.Errorf("dial failed: %w", err))
		return
	}

	tc := tls.Client(raw, c.cfg.TLS)
	if err := tc.HandshakeContext(ctx); err != nil {
		raw.Close()
		c.notifyConnected(fmt.Errorf("TLS handshake failed: %w", err))
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		tc.Close()
		c.notifyConnected(ErrConnClosed)
		return
	}
	c.raw = raw
	c.tc = tc
	c.mu.Unlock()

	c.touch()
	go c.readLoop(tc)
	c.notifyConnected(nil)
}

// Write sends p in full. It must not be called before the connected
// callback reports success.
func (c *Conn) Write(p []byte) error {
	c.mu.Lock()
	tc := c.tc
	closing := c.closing
	c.mu.Unlock()

	if closing {
		return ErrConnClosed
	}
	if tc == nil {
		return ErrNotConnected
	}

	if c.cfg.WriteTimeout > 0 {
		tc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		defer tc.SetWriteDeadline(time.Time{})
	}

	if _, err := tc.Write(p); err != nil {
		return err
	}
	c.touch()
	return nil
}

// Acknowledge returns n bytes to the receive window, allowing the read
// goroutine to pull more data from the socket.
func (c *Conn) Acknowledge(n int) {
	if n <= 0 {
		return
	}
	c.windowMu.Lock()
	c.unacked -= n
	if c.unacked < 0 {
		c.unacked = 0
	}
	c.windowMu.Unlock()
	c.window.Broadcast()
}

// Close shuts the connection down in an orderly fashion. On failure the
// underlying socket is kept so a subsequent Abort can still reach it.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	raw := c.raw
	tc := c.tc
	c.mu.Unlock()

	c.signalShutdown()

	if tc == nil {
		if raw != nil {
			raw.Close()
		}
		return nil
	}

	if err := tc.Close(); err != nil {
		return err
	}

	c.mu.Lock()
	c.raw = nil
	c.tc = nil
	c.mu.Unlock()
	return nil
}

// Abort force-closes the connection, discarding unsent data.
func (c *Conn) Abort() {
	c.mu.Lock()
	c.closing = true
	raw := c.raw
	c.raw = nil
	c.tc = nil
	c.mu.Unlock()

	c.signalShutdown()

	if raw != nil {
		if tcp, ok := raw.(*net.TCPConn); ok {
			tcp.SetLinger(0)
		}
		raw.Close()
	}
}

// RemoteAddr returns the remote network address, or nil before connect.
func (c *Conn) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw != nil {
		return c.raw.RemoteAddr()
	}
	return nil
}

// TLSConnectionState returns the TLS state of an established connection.
func (c *Conn) TLSConnectionState() (tls.ConnectionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tc != nil {
		return c.tc.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

func (c *Conn) signalShutdown() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
	// Taking windowMu orders the broadcast after any in-flight closeCh
	// check in reserveWindow, so no waiter misses the wakeup.
	c.windowMu.Lock()
	c.window.Broadcast()
	c.windowMu.Unlock()
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Conn) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// reserveWindow blocks until n bytes fit in the receive window. It returns
// false if the connection shut down while waiting.
func (c *Conn) reserveWindow(n int) bool {
	c.windowMu.Lock()
	defer c.windowMu.Unlock()
	for c.unacked+n > c.cfg.ReceiveWindow {
		select {
		case <-c.closeCh:
			return false
		default:
		}
		c.window.Wait()
	}
	select {
	case <-c.closeCh:
		return false
	default:
	}
	c.unacked += n
	return true
}

func (c *Conn) readLoop(tc *tls.Conn) {
	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		n, err := tc.Read(buf)
		if n > 0 {
			c.touch()
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !c.reserveWindow(n) {
				return
			}
			c.notifyReceived(chunk)
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) || c.isClosing() {
				return
			}
			if errors.Is(err, io.EOF) {
				c.notifyReceived(nil)
				return
			}
			c.notifyError(fmt.Errorf("read error: %w", err))
			return
		}
	}
}

func (c *Conn) idleLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			last := time.Unix(0, c.lastActivity.Load())
			if time.Since(last) >= interval {
				c.notifyIdle()
			}
		}
	}
}

// The notify helpers post to the loop and re-read the callback at execution
// time, so ClearCallbacks also silences deliveries already in the queue.

func (c *Conn) notifyConnected(err error) {
	c.lp.Post(func() {
		c.mu.Lock()
		fn := c.onConnected
		c.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	})
}

func (c *Conn) notifyReceived(chunk []byte) {
	c.lp.Post(func() {
		c.mu.Lock()
		fn := c.onReceive
		c.mu.Unlock()
		if fn != nil {
			fn(chunk)
		}
	})
}

func (c *Conn) notifyIdle() {
	c.lp.Post(func() {
		c.mu.Lock()
		fn := c.onIdle
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (c *Conn) notifyError(err error) {
	c.lp.Post(func() {
		c.mu.Lock()
		fn := c.onError
		c.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	})
}
