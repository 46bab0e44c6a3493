// Package persistence provides runtime state persistence for the picopost
// server.
//
// This package handles the JSON serialization of the server's runtime state
// (the most recent decoded message and request counters) so it survives
// restarts. Certificate storage is handled separately by the cert package.
package persistence
