package client

import (
	"testing"
)

func TestNoopLink(t *testing.T) {
	if err := (NoopLink{}).Establish(t.Context()); err != nil {
		t.Fatalf("Establish: %v", err)
	}
}

func TestInterfaceLinkUnknownInterface(t *testing.T) {
	link := &InterfaceLink{Name: "definitely-not-a-real-interface0"}
	if err := link.Establish(t.Context()); err == nil {
		t.Fatal("expected error for unknown interface")
	}
}

func TestInterfaceLinkLoopback(t *testing.T) {
	link := &InterfaceLink{Name: "lo"}
	if err := link.Establish(t.Context()); err != nil {
		t.Skipf("no loopback interface named lo: %v", err)
	}
}
