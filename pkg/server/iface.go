package server

import (
	"fmt"
	"net"
	"net/netip"
)

// InterfaceAddress returns the first usable unicast IPv4 address of the
// named interface, for binding the listener to a specific network the way a
// device binds its wireless interface. IPv6 is used only when the interface
// carries no IPv4 address.
func InterfaceAddress(name string) (netip.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %s: %w", name, err)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %s addresses: %w", name, err)
	}

	var fallback netip.Addr
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.Is4() {
			return addr, nil
		}
		if !fallback.IsValid() && !addr.IsLinkLocalUnicast() {
			fallback = addr
		}
	}
	if fallback.IsValid() {
		return fallback, nil
	}
	return netip.Addr{}, fmt.Errorf("interface %s has no usable address", name)
}
