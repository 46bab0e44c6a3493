// Package discovery advertises the peer server on the local network via
// mDNS, so clients on the same segment can find it without a fixed address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/mytechnotalent/picopost/pkg/version"
)

// mDNS constants.
const (
	// ServiceType is the advertised DNS-SD service type.
	ServiceType = "_picopost._tcp"

	// Domain is the DNS-SD domain.
	Domain = "local."

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// DefaultBrowseTimeout bounds one Lookup call.
	DefaultBrowseTimeout = 5 * time.Second
)

// Config configures an Advertiser.
type Config struct {
	// Instance is the service instance name, e.g. the device name.
	Instance string

	// Port is the TCP port the server listens on.
	Port int

	// Interface restricts advertising to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the DNS record TTL (default: 120s).
	TTL time.Duration
}

// Advertiser publishes the server's mDNS service record.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser. It does not publish until Start.
func NewAdvertiser(config Config) (*Advertiser, error) {
	if config.Instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if config.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	return &Advertiser{config: config}, nil
}

// getInterfaces returns the interfaces to advertise on, nil meaning all.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Start publishes the service record. Calling Start on a running advertiser
// replaces the record.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	txt := []string{"proto=" + version.CurrentProtocol()}

	server, err := zeroconf.Register(
		a.config.Instance,
		ServiceType,
		Domain,
		a.config.Port,
		txt,
		a.getInterfaces(),
		zeroconf.TTL(uint32(a.config.TTL.Seconds())),
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the service record.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Entry is one discovered server.
type Entry struct {
	// Instance is the service instance name.
	Instance string

	// Addr is the server address.
	Addr netip.Addr

	// Port is the server port.
	Port uint16
}

// Lookup browses for advertised servers until timeout and returns what it
// found. An empty result is not an error.
func Lookup(ctx context.Context, timeout time.Duration) ([]Entry, error) {
	if timeout == 0 {
		timeout = DefaultBrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var (
		mu    sync.Mutex
		found []Entry
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			e, ok := toEntry(entry)
			if !ok {
				continue
			}
			mu.Lock()
			found = append(found, e)
			mu.Unlock()
		}
	}()
	go func() {
		for range removed {
		}
	}()

	if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed); err != nil {
		return nil, fmt.Errorf("browse failed: %w", err)
	}

	<-ctx.Done()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return found, nil
}

func toEntry(entry *zeroconf.ServiceEntry) (Entry, bool) {
	var addr netip.Addr
	for _, ip := range entry.AddrIPv4 {
		if a, ok := netip.AddrFromSlice(ip); ok {
			addr = a.Unmap()
			break
		}
	}
	if !addr.IsValid() {
		for _, ip := range entry.AddrIPv6 {
			if a, ok := netip.AddrFromSlice(ip); ok {
				addr = a
				break
			}
		}
	}
	if !addr.IsValid() {
		return Entry{}, false
	}
	if entry.Port < 0 || entry.Port > 65535 {
		return Entry{}, false
	}
	return Entry{
		Instance: entry.Instance,
		Addr:     addr,
		Port:     uint16(entry.Port),
	}, true
}

// String formats an entry for logs.
func (e Entry) String() string {
	return e.Instance + "@" + net.JoinHostPort(e.Addr.String(), strconv.Itoa(int(e.Port)))
}
