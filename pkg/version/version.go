// Package version provides protocol version parsing, comparison, and the
// mDNS TXT protocol token.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this library.
const Current = "1.0"

// ProtoVersion represents a parsed "major.minor" protocol version.
type ProtoVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtoVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtoVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtoVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtoVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtoVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtoVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtoVersion) Compatible(other ProtoVersion) bool {
	return v.Major == other.Major
}

// Protocol returns the protocol token for a major version: "picopost/N".
// It is advertised in the service's mDNS TXT record.
func Protocol(major uint16) string {
	return fmt.Sprintf("picopost/%d", major)
}

// MajorFromProtocol extracts the major version from a protocol token.
func MajorFromProtocol(proto string) (uint16, error) {
	if !strings.HasPrefix(proto, "picopost/") {
		return 0, fmt.Errorf("not a picopost protocol token: %q", proto)
	}

	suffix := proto[len("picopost/"):]
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in protocol token: %q", proto)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in protocol token %q: %w", proto, err)
	}

	return uint16(major), nil
}

// CurrentProtocol returns the protocol token for the current major version.
func CurrentProtocol() string {
	current, _ := Parse(Current)
	return Protocol(current.Major)
}
