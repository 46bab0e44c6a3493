package client

import (
	"context"
	"fmt"
	"net"
)

// Link acquires lower-layer network connectivity before an attempt starts.
// On constrained devices this is joining the wireless network; on hosts with
// permanent connectivity NoopLink suffices.
type Link interface {
	Establish(ctx context.Context) error
}

// NoopLink reports the link as always established.
type NoopLink struct{}

// Establish always succeeds.
func (NoopLink) Establish(context.Context) error { return nil }

// InterfaceLink treats a named network interface as the link: established
// means the interface exists, is up, and has at least one address.
type InterfaceLink struct {
	// Name is the interface name, e.g. "wlan0".
	Name string
}

// Establish checks the interface state.
func (l *InterfaceLink) Establish(context.Context) error {
	ifi, err := net.InterfaceByName(l.Name)
	if err != nil {
		return fmt.Errorf("interface %s: %w", l.Name, err)
	}
	if ifi.Flags&net.FlagUp == 0 {
		return fmt.Errorf("interface %s is down", l.Name)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return fmt.Errorf("interface %s addresses: %w", l.Name, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("interface %s has no address", l.Name)
	}
	return nil
}
