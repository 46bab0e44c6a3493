package discovery

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
)

func TestNewAdvertiserValidation(t *testing.T) {
	if _, err := NewAdvertiser(Config{Port: 443}); err == nil {
		t.Error("expected error for missing instance name")
	}
	if _, err := NewAdvertiser(Config{Instance: "dev"}); err == nil {
		t.Error("expected error for missing port")
	}

	a, err := NewAdvertiser(Config{Instance: "dev", Port: 443})
	if err != nil {
		t.Fatalf("NewAdvertiser: %v", err)
	}
	if a.config.TTL != DefaultTTL {
		t.Errorf("TTL default = %v", a.config.TTL)
	}
}

func TestAdvertiserStartStop(t *testing.T) {
	a, err := NewAdvertiser(Config{Instance: "picopost-test", Port: 8443})
	if err != nil {
		t.Fatalf("NewAdvertiser: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Skipf("mDNS unavailable in this environment: %v", err)
	}
	a.Stop()
	// Stop is idempotent.
	a.Stop()
}

func TestLookupFindsAdvertiser(t *testing.T) {
	a, err := NewAdvertiser(Config{Instance: "picopost-lookup-test", Port: 8443})
	if err != nil {
		t.Fatalf("NewAdvertiser: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Skipf("mDNS unavailable in this environment: %v", err)
	}
	defer a.Stop()

	found, err := Lookup(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	for _, e := range found {
		if e.Instance != "picopost-lookup-test" {
			continue
		}
		if e.Port != 8443 {
			t.Errorf("Port = %d, want 8443", e.Port)
		}
		if !e.Addr.IsValid() {
			t.Errorf("Addr = %v, want a valid address", e.Addr)
		}
		return
	}
	t.Skipf("advertisement not observed on this host's interfaces")
}

func TestToEntry(t *testing.T) {
	newServiceEntry := func(instance string, port int, v4 []net.IP, v6 []net.IP) *zeroconf.ServiceEntry {
		entry := &zeroconf.ServiceEntry{}
		entry.Instance = instance
		entry.Port = port
		entry.AddrIPv4 = v4
		entry.AddrIPv6 = v6
		return entry
	}

	t.Run("IPv4Preferred", func(t *testing.T) {
		entry := newServiceEntry("dev", 8443,
			[]net.IP{net.ParseIP("192.168.1.5")},
			[]net.IP{net.ParseIP("fe80::1")})

		e, ok := toEntry(entry)
		if !ok {
			t.Fatal("toEntry() = false, want entry")
		}
		if e.Instance != "dev" || e.Port != 8443 {
			t.Errorf("entry = %v", e)
		}
		if want := netip.MustParseAddr("192.168.1.5"); e.Addr != want {
			t.Errorf("Addr = %v, want %v", e.Addr, want)
		}
	})

	t.Run("IPv6Fallback", func(t *testing.T) {
		entry := newServiceEntry("dev", 8443, nil, []net.IP{net.ParseIP("fe80::1")})

		e, ok := toEntry(entry)
		if !ok {
			t.Fatal("toEntry() = false, want entry")
		}
		if want := netip.MustParseAddr("fe80::1"); e.Addr != want {
			t.Errorf("Addr = %v, want %v", e.Addr, want)
		}
	})

	t.Run("NoAddresses", func(t *testing.T) {
		if _, ok := toEntry(newServiceEntry("dev", 8443, nil, nil)); ok {
			t.Error("toEntry() = true for entry without addresses")
		}
	})

	t.Run("PortOutOfRange", func(t *testing.T) {
		entry := newServiceEntry("dev", -1, []net.IP{net.ParseIP("192.168.1.5")}, nil)
		if _, ok := toEntry(entry); ok {
			t.Error("toEntry() = true for negative port")
		}
	})
}

func TestEntryString(t *testing.T) {
	e := Entry{Instance: "dev", Addr: netip.MustParseAddr("192.168.1.5"), Port: 443}
	if got := e.String(); got != "dev@192.168.1.5:443" {
		t.Errorf("String = %q", got)
	}

	e = Entry{Instance: "dev", Addr: netip.MustParseAddr("fe80::1"), Port: 443}
	if got := e.String(); got != "dev@[fe80::1]:443" {
		t.Errorf("String = %q", got)
	}
}
