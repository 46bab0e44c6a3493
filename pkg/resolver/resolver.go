// Package resolver turns hostnames into network addresses for a connection
// attempt without blocking the event loop.
//
// Resolve has a synchronous fast path: literal IP addresses and cached names
// produce an address immediately, and the callback is never invoked. Anything
// else resolves on a background goroutine and the result is delivered as a
// callback posted onto the attempt's event loop.
package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/mytechnotalent/picopost/pkg/loop"
)

// Resolution errors.
var (
	// ErrEmptyHostname indicates an empty hostname was supplied.
	ErrEmptyHostname = errors.New("empty hostname")

	// ErrNoAddress indicates the lookup succeeded but produced no usable address.
	ErrNoAddress = errors.New("no address found")
)

// DefaultLookupTimeout bounds a single background lookup.
const DefaultLookupTimeout = 10 * time.Second

// Callback delivers the final result of an asynchronous resolution.
// Exactly one of addr/err is meaningful: err == nil means addr is valid.
type Callback func(addr netip.Addr, err error)

// LookupFunc performs the actual lookup. Injectable for tests.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// Resolver resolves hostnames with a small positive cache. A cache hit is
// returned synchronously, mirroring a resolver library's in-cache fast path.
type Resolver struct {
	lp      *loop.Loop
	lookup  LookupFunc
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]netip.Addr
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup replaces the lookup function. Used by tests to avoid real DNS.
func WithLookup(fn LookupFunc) Option {
	return func(r *Resolver) { r.lookup = fn }
}

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// New creates a resolver that posts asynchronous results onto lp.
func New(lp *loop.Loop, opts ...Option) *Resolver {
	r := &Resolver{
		lp:      lp,
		timeout: DefaultLookupTimeout,
		cache:   make(map[string]netip.Addr),
		lookup: func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves host. The return forms are:
//
//	addr, true, nil:  resolved synchronously (literal IP or cache hit);
//	                  cb will not be invoked.
//	_, false, nil:    resolution in progress; cb is posted to the loop
//	                  exactly once with the result.
//	_, false, err:    immediate failure; cb will not be invoked.
func (r *Resolver) Resolve(host string, cb Callback) (netip.Addr, bool, error) {
	if host == "" {
		return netip.Addr{}, false, ErrEmptyHostname
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, true, nil
	}

	r.mu.Lock()
	addr, hit := r.cache[host]
	r.mu.Unlock()
	if hit {
		return addr, true, nil
	}

	go r.resolveAsync(host, cb)
	return netip.Addr{}, false, nil
}

// resolveAsync runs the lookup and posts the result onto the loop.
func (r *Resolver) resolveAsync(host string, cb Callback) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	addrs, err := r.lookup(ctx, host)
	if err == nil && len(addrs) == 0 {
		err = ErrNoAddress
	}
	if err != nil {
		r.lp.Post(func() { cb(netip.Addr{}, err) })
		return
	}

	addr := pickAddr(addrs)
	r.mu.Lock()
	r.cache[host] = addr
	r.mu.Unlock()

	r.lp.Post(func() { cb(addr, nil) })
}

// pickAddr prefers IPv4 when present, otherwise returns the first address.
func pickAddr(addrs []netip.Addr) netip.Addr {
	for _, a := range addrs {
		if a.Is4() || a.Is4In6() {
			return a.Unmap()
		}
	}
	return addrs[0]
}
