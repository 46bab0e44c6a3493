package wire

import (
	"fmt"
	"strconv"
)

// DefaultPort is the TLS port both sides use unless configured otherwise.
const DefaultPort uint16 = 443

// ResponseOK is the complete response the server writes for an accepted
// POST before closing the connection.
const ResponseOK = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nHello from the server!"

// ResponseTooLarge is written when a request exceeds the server's size limit.
const ResponseTooLarge = "HTTP/1.1 413 Content Too Large\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\nRequest too large."

// BuildRequest assembles the full POST request the client sends. The message
// is percent-encoded and the Content-Length header reflects the encoded body
// length in bytes.
func BuildRequest(host, message string) []byte {
	body := EncodeForm(message)
	req := "POST / HTTP/1.1\r\n" +
		"Host: " + host + "\r\n" +
		"Connection: close\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" +
		body
	return []byte(req)
}

// HostPort formats host and port for dialing, bracketing IPv6 literals.
func HostPort(host string, port uint16) string {
	for i := 0; i < len(host); i++ {
		if host[i] == ':' {
			return fmt.Sprintf("[%s]:%d", host, port)
		}
	}
	return fmt.Sprintf("%s:%d", host, port)
}
