package wire

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestEncodeForm(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "helloworld", "helloworld"},
		{"space", "hello world", "hello%20world"},
		{"unreserved kept", "a-b_c.d~e", "a-b_c.d~e"},
		{"mixed", "a=b&c", "a%3Db%26c"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EncodeForm(tc.in); got != tc.want {
				t.Fatalf("EncodeForm(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeForm(t *testing.T) {
	got, err := DecodeForm("hello%20world")
	if err != nil {
		t.Fatalf("DecodeForm: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}

	got, err = DecodeForm("a+b")
	if err != nil {
		t.Fatalf("DecodeForm: %v", err)
	}
	if got != "a b" {
		t.Fatalf("got %q, want %q", got, "a b")
	}

	for _, bad := range []string{"%", "%2", "%zz", "abc%G1"} {
		if _, err := DecodeForm(bad); err == nil {
			t.Errorf("DecodeForm(%q) succeeded, want error", bad)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	inputs := []string{"hello world", "100% pure", "a+b=c&d", "\r\n\t", "ünïcode"}
	for _, in := range inputs {
		out, err := DecodeForm(EncodeForm(in))
		if err != nil {
			t.Fatalf("round trip %q: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip %q = %q", in, out)
		}
	}
}

func TestBuildRequest(t *testing.T) {
	raw := BuildRequest("example.com", "hello world")

	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Method != "POST" || req.Target != "/" || req.Proto != "HTTP/1.1" {
		t.Fatalf("request line = %s %s %s", req.Method, req.Target, req.Proto)
	}
	if got := req.Headers.Get("Host"); got != "example.com" {
		t.Errorf("Host = %q", got)
	}
	if got := req.Headers.Get("Connection"); got != "close" {
		t.Errorf("Connection = %q", got)
	}
	if got := req.Headers.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", got)
	}
	if string(req.Body) != "hello%20world" {
		t.Errorf("body = %q", req.Body)
	}
}

func TestBuildRequestContentLength(t *testing.T) {
	// Content-Length must always equal the encoded body byte count.
	messages := []string{"hello world", "x", "", "a b c d", "100%", strings.Repeat("é", 50)}
	for _, m := range messages {
		raw := BuildRequest("h", m)
		req, err := ParseRequest(raw)
		if err != nil {
			t.Fatalf("ParseRequest(%q): %v", m, err)
		}
		want := len(EncodeForm(m))
		if got := req.ContentLength(); got != want {
			t.Errorf("message %q: Content-Length %d, want %d", m, got, want)
		}
		if len(req.Body) != want {
			t.Errorf("message %q: body length %d, want %d", m, len(req.Body), want)
		}
	}
}

func TestParseRequestIncomplete(t *testing.T) {
	full := BuildRequest("example.com", "hello world")
	for i := 0; i < len(full); i++ {
		if _, err := ParseRequest(full[:i]); err != ErrIncomplete {
			t.Fatalf("prefix of %d bytes: err = %v, want ErrIncomplete", i, err)
		}
	}
	if _, err := ParseRequest(full); err != nil {
		t.Fatalf("full request: %v", err)
	}
}

func TestParseRequestMalformed(t *testing.T) {
	_, err := ParseRequest([]byte("NONSENSE\r\n\r\n"))
	if err == nil || err == ErrIncomplete {
		t.Fatalf("err = %v, want malformed", err)
	}
}

func TestParseRequestExtraBodyBytes(t *testing.T) {
	raw := []byte("POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nabcdef")
	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !bytes.Equal(req.Body, []byte("abc")) {
		t.Fatalf("body = %q, want %q", req.Body, "abc")
	}
}

func TestHostPort(t *testing.T) {
	if got := HostPort("example.com", 443); got != "example.com:443" {
		t.Errorf("got %q", got)
	}
	if got := HostPort("::1", 8443); got != "[::1]:8443" {
		t.Errorf("got %q", got)
	}
	if got := HostPort("10.0.0.1", DefaultPort); got != "10.0.0.1:"+strconv.Itoa(int(DefaultPort)) {
		t.Errorf("got %q", got)
	}
}
