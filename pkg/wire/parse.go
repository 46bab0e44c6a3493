package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
)

var (
	// ErrIncomplete indicates raw does not yet hold a full request. The
	// caller should read more bytes and try again.
	ErrIncomplete = errors.New("wire: incomplete request")

	// ErrMalformed indicates the bytes can never parse as a request.
	ErrMalformed = errors.New("wire: malformed request")
)

var headerTerminator = []byte("\r\n\r\n")

// Request is one parsed client request.
type Request struct {
	Method  string
	Target  string
	Proto   string
	Headers textproto.MIMEHeader
	Body    []byte
}

// ContentLength returns the declared body length, or 0 if the header is
// absent.
func (r *Request) ContentLength() int {
	v := r.Headers.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseRequest parses a buffered request. It returns ErrIncomplete when the
// header terminator has not arrived or the body is shorter than the declared
// Content-Length, so a server can accumulate reads until it succeeds.
func ParseRequest(raw []byte) (*Request, error) {
	idx := bytes.Index(raw, headerTerminator)
	if idx < 0 {
		return nil, ErrIncomplete
	}
	head := raw[:idx]
	rest := raw[idx+len(headerTerminator):]

	lineEnd := bytes.Index(head, []byte("\r\n"))
	requestLine := head
	if lineEnd >= 0 {
		requestLine = head[:lineEnd]
	}
	parts := strings.SplitN(string(requestLine), " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad request line %q", ErrMalformed, requestLine)
	}

	headers := make(textproto.MIMEHeader)
	if lineEnd >= 0 {
		// Header block including the blank-line terminator.
		block := raw[lineEnd+2 : idx+len(headerTerminator)]
		tr := textproto.NewReader(bufio.NewReader(bytes.NewReader(block)))
		h, err := tr.ReadMIMEHeader()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		headers = h
	}

	req := &Request{
		Method:  parts[0],
		Target:  parts[1],
		Proto:   parts[2],
		Headers: headers,
	}

	n := req.ContentLength()
	if len(rest) < n {
		return nil, ErrIncomplete
	}
	req.Body = rest[:n]
	return req, nil
}
