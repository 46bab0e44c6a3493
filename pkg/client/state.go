package client

// State represents the attempt state.
type State uint8

const (
	// StateIdle indicates no attempt activity yet.
	StateIdle State = iota

	// StateResolving indicates hostname resolution is in flight.
	StateResolving

	// StateConnecting indicates the transport connect is in flight.
	StateConnecting

	// StateEstablished indicates the request was sent and the response is
	// being received.
	StateEstablished

	// StateClosed is terminal and reachable from every other state.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateResolving:
		return "RESOLVING"
	case StateConnecting:
		return "CONNECTING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
