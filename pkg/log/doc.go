// Package log provides structured event logging for connection attempts.
//
// Components emit Event values describing attempt state transitions,
// received data chunks, and errors. Applications choose where events go by
// supplying a Logger implementation:
//
//   - NoopLogger discards everything (the default).
//   - SlogAdapter writes human-readable lines through log/slog.
//   - FileLogger captures events to a CBOR file for later analysis.
//   - MultiLogger fans out to several of the above.
//
// Reader streams events back out of a capture file, optionally filtered.
package log
