// Package wire defines the bytes exchanged between client and server: a
// fixed HTTP/1.1 POST request with a percent-encoded form body, and the fixed
// 200 OK response the server returns.
//
// The client builds the entire request up front with BuildRequest and writes
// it in a single call. The server reads one buffered request and parses it
// with ParseRequest. Neither side implements HTTP beyond this one exchange.
package wire
