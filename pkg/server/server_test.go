package server

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mytechnotalent/picopost/pkg/cert"
	"github.com/mytechnotalent/picopost/pkg/transport"
	"github.com/mytechnotalent/picopost/pkg/wire"
)

// hookRecorder collects hook invocations across goroutines.
type hookRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *hookRecorder) record(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *hookRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func startServer(t *testing.T, cfg Config) (*Server, *x509.CertPool) {
	t.Helper()

	pair, parsed, err := cert.GenerateSelfSigned("localhost", "127.0.0.1")
	if err != nil {
		t.Fatalf("generate certificate: %v", err)
	}
	cfg.TLSConfig = &transport.TLSConfig{Certificate: pair}
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:0"
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return srv, cert.PoolFor(parsed)
}

// exchange sends raw over a fresh TLS connection and returns everything the
// server writes back.
func exchange(t *testing.T, srv *Server, pool *x509.CertPool, raw []byte) string {
	t.Helper()

	conn, err := tls.Dial("tcp", srv.Addr().String(), &tls.Config{
		RootCAs:    pool,
		ServerName: "localhost",
		MinVersion: tls.VersionTLS13,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return string(resp)
}

func TestServeRequest(t *testing.T) {
	rec := &hookRecorder{}
	srv, pool := startServer(t, Config{Hook: rec.record})

	resp := exchange(t, srv, pool, wire.BuildRequest("localhost", "hello world"))

	if resp != wire.ResponseOK {
		t.Errorf("response = %q", resp)
	}
	if messages := rec.all(); len(messages) != 1 || messages[0] != "hello world" {
		t.Errorf("hook messages = %q", messages)
	}
}

func TestServeSequentialConnections(t *testing.T) {
	rec := &hookRecorder{}
	srv, pool := startServer(t, Config{Hook: rec.record})

	for i := 0; i < 3; i++ {
		resp := exchange(t, srv, pool, wire.BuildRequest("localhost", "msg"))
		if resp != wire.ResponseOK {
			t.Fatalf("connection %d: response = %q", i, resp)
		}
	}
	if got := len(rec.all()); got != 3 {
		t.Errorf("hook fired %d times", got)
	}
}

func TestServeNonPostSkipsHook(t *testing.T) {
	rec := &hookRecorder{}
	srv, pool := startServer(t, Config{Hook: rec.record})

	resp := exchange(t, srv, pool, []byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))

	if resp != wire.ResponseOK {
		t.Errorf("response = %q", resp)
	}
	if got := rec.all(); len(got) != 0 {
		t.Error("hook fired for non-POST request")
	}
}

func TestServeOversizeRequestRejected(t *testing.T) {
	rec := &hookRecorder{}
	srv, pool := startServer(t, Config{
		MaxRequestSize: 256,
		Hook:           rec.record,
	})

	big := wire.BuildRequest("localhost", strings.Repeat("a", 1024))
	resp := exchange(t, srv, pool, big)

	if !strings.HasPrefix(resp, "HTTP/1.1 413") {
		t.Errorf("response = %q, want 413 rejection", resp)
	}
	if got := rec.all(); len(got) != 0 {
		t.Error("hook fired for rejected request")
	}
}

func TestServeMalformedBody(t *testing.T) {
	rec := &hookRecorder{}
	srv, pool := startServer(t, Config{Hook: rec.record})

	raw := []byte("POST / HTTP/1.1\r\nHost: localhost\r\nContent-Length: 3\r\n\r\n%zz")
	resp := exchange(t, srv, pool, raw)

	// Still answered, matching the fixed-response contract, but the hook
	// must not see an undecodable body.
	if resp != wire.ResponseOK {
		t.Errorf("response = %q", resp)
	}
	if got := rec.all(); len(got) != 0 {
		t.Error("hook fired for undecodable body")
	}
}

func TestServeFragmentedRequest(t *testing.T) {
	rec := &hookRecorder{}
	srv, pool := startServer(t, Config{Hook: rec.record})

	conn, err := tls.Dial("tcp", srv.Addr().String(), &tls.Config{
		RootCAs:    pool,
		ServerName: "localhost",
		MinVersion: tls.VersionTLS13,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	raw := wire.BuildRequest("localhost", "hello world")
	for _, part := range [][]byte{raw[:10], raw[10:25], raw[25:]} {
		if _, err := conn.Write(part); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if !bytes.Equal(resp, []byte(wire.ResponseOK)) {
		t.Errorf("response = %q", resp)
	}
	if messages := rec.all(); len(messages) != 1 || messages[0] != "hello world" {
		t.Errorf("hook messages = %q", messages)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing TLS config")
	}
	if _, err := New(Config{TLSConfig: &transport.TLSConfig{}}); err == nil {
		t.Error("expected error for missing certificate")
	}
}

func TestStopIdempotent(t *testing.T) {
	srv, _ := startServer(t, Config{})
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
