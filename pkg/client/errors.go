package client

import "errors"

// Attempt errors. Exactly one of these is recorded on a failed Handle;
// successful attempts leave the error nil.
var (
	// ErrResolutionFailed indicates hostname resolution returned no address.
	ErrResolutionFailed = errors.New("resolution failed")

	// ErrConnectFailed indicates the TCP connect or TLS handshake failed.
	ErrConnectFailed = errors.New("connect failed")

	// ErrWriteFailed indicates the request could not be written in full.
	ErrWriteFailed = errors.New("write failed")

	// ErrTimedOut indicates the idle watchdog fired before completion.
	ErrTimedOut = errors.New("timed out")

	// ErrTransport indicates a fatal error reported by the transport layer.
	ErrTransport = errors.New("transport failure")

	// ErrAllocationFailed indicates the connection object could not be
	// created, before any network activity.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrChunkTruncated indicates an inbound chunk exceeded the
	// accumulator's maximum and was cut to fit.
	ErrChunkTruncated = errors.New("chunk truncated")

	// ErrLinkEstablishment is reported by the Driver when the network link
	// could not be established within the retry budget.
	ErrLinkEstablishment = errors.New("exceeded retry limit")
)

// errorKind maps an attempt error to its event classification.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrResolutionFailed):
		return "resolution failed"
	case errors.Is(err, ErrConnectFailed):
		return "connect failed"
	case errors.Is(err, ErrWriteFailed):
		return "write failed"
	case errors.Is(err, ErrTimedOut):
		return "timed out"
	case errors.Is(err, ErrAllocationFailed):
		return "allocation failed"
	case errors.Is(err, ErrChunkTruncated):
		return "chunk truncated"
	case errors.Is(err, ErrLinkEstablishment):
		return "link establishment failed"
	case errors.Is(err, ErrTransport):
		return "transport failure"
	default:
		return "failure"
	}
}
