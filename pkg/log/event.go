package log

import (
	"time"
)

// Event describes one occurrence during a connection attempt.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// AttemptID uniquely identifies the attempt (UUID).
	AttemptID string `cbor:"2,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"3,keyasint"`

	// RemoteAddr is the peer address (IP:port) when known.
	RemoteAddr string `cbor:"4,keyasint,omitempty"`

	// Message is an optional human-readable progress line.
	Message string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (at most one is set).
	StateChange *StateChangeEvent `cbor:"6,keyasint,omitempty"`
	Chunk       *ChunkEvent       `cbor:"7,keyasint,omitempty"`
	Error       *ErrorEvent       `cbor:"8,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryProgress indicates a human-readable progress message.
	CategoryProgress Category = 0
	// CategoryState indicates an attempt state transition.
	CategoryState Category = 1
	// CategoryData indicates an inbound data chunk.
	CategoryData Category = 2
	// CategoryError indicates an error recorded on the attempt.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryProgress:
		return "PROGRESS"
	case CategoryState:
		return "STATE"
	case CategoryData:
		return "DATA"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent records an attempt state transition.
type StateChangeEvent struct {
	// OldState is the state name before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state name after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason optionally explains the transition (e.g. "timed out").
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ChunkEvent records an inbound data chunk delivery.
type ChunkEvent struct {
	// Size is the chunk size in bytes as delivered by the transport.
	Size int `cbor:"1,keyasint"`

	// Truncated reports that the chunk exceeded the accumulator's maximum
	// and was cut to fit.
	Truncated bool `cbor:"2,keyasint,omitempty"`
}

// ErrorEvent records an error observed during the attempt.
type ErrorEvent struct {
	// Kind is the error classification (e.g. "timed out", "connect failed").
	Kind string `cbor:"1,keyasint"`

	// Message is the underlying error text.
	Message string `cbor:"2,keyasint,omitempty"`
}
