package client

import (
	"net/netip"
	"time"

	"github.com/mytechnotalent/picopost/pkg/resolver"
	"github.com/mytechnotalent/picopost/pkg/transport"
)

// Conn is the transport surface the state machine drives: four registrable
// callback slots plus connect, write, acknowledge, and the close/abort pair.
type Conn interface {
	// SetConnectedCallback registers the dial outcome callback.
	SetConnectedCallback(fn func(err error))

	// SetReceiveCallback registers the data callback. A nil chunk signals
	// an orderly close by the peer.
	SetReceiveCallback(fn func(chunk []byte))

	// SetIdleCallback registers the inactivity callback.
	SetIdleCallback(fn func(), interval time.Duration)

	// SetErrorCallback registers the fatal transport error callback.
	SetErrorCallback(fn func(err error))

	// ClearCallbacks unregisters all callbacks, silencing queued events.
	ClearCallbacks()

	// Connect starts dialing addr:port; the outcome arrives via the
	// connected callback.
	Connect(addr netip.Addr, port uint16) error

	// Write sends p in full.
	Write(p []byte) error

	// Acknowledge returns n received bytes to the flow-control window.
	Acknowledge(n int)

	// Close shuts down in an orderly fashion.
	Close() error

	// Abort force-closes, discarding unsent data.
	Abort()
}

// Resolver turns a hostname into an address, synchronously when possible.
type Resolver interface {
	Resolve(host string, cb resolver.Callback) (netip.Addr, bool, error)
}

// DialFunc allocates the connection object for one attempt. Returning an
// error maps to an allocation failure before any network activity.
type DialFunc func() (Conn, error)

// Compile-time interface satisfaction checks.
var (
	_ Conn     = (*transport.Conn)(nil)
	_ Resolver = (*resolver.Resolver)(nil)
)
