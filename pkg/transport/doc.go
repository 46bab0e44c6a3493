// Package transport provides the TLS connection primitive the client state
// machine drives. A Conn owns a background read goroutine and an idle
// watchdog, but it never invokes callbacks directly: every event is posted
// to the owning event loop, so callback code runs single threaded inside
// loop.Pump.
//
// Received bytes count against a receive window. The read goroutine stops
// pulling from the socket once the window is full of unacknowledged bytes
// and resumes when the consumer calls Acknowledge.
package transport
