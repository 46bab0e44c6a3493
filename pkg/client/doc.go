// Package client implements the connection lifecycle for the posting
// device: resolve the server name, establish a TLS connection, write one
// fixed request, accumulate the streamed response, and tear everything down
// exactly once.
//
// The package is built around three pieces. A Handle is the mutable state of
// one attempt and carries the state machine reacting to transport signals.
// An Accumulator copies inbound chunks to the output sink and acknowledges
// them for flow control. The Driver owns one Handle at a time, pumps the
// event loop until the attempt completes, and applies the bounded outer
// retry policy on link failures.
//
// Everything here runs on a single event loop. Handle methods must only be
// called from loop callbacks or from the goroutine pumping the loop.
package client
