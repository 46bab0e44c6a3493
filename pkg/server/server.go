// Package server implements the fixed-address peer: a TLS service that
// handles exactly one connection at a time, reads one buffered request,
// invokes the side-effect hook for parsed POST bodies, writes the fixed
// 200 OK response, and closes.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mytechnotalent/picopost/pkg/log"
	"github.com/mytechnotalent/picopost/pkg/transport"
	"github.com/mytechnotalent/picopost/pkg/wire"
)

// Server defaults.
const (
	// DefaultMaxRequestSize caps one buffered request. Larger requests are
	// rejected with 413 rather than truncated.
	DefaultMaxRequestSize = 4 * 1024

	// DefaultReadTimeout bounds reading one request.
	DefaultReadTimeout = 30 * time.Second
)

// Hook is invoked once per successfully parsed POST body, with the body
// already percent-decoded. It runs before the response is written; this is
// the extension point for side effects such as driving an output pin.
type Hook func(message string)

// Config configures a Server.
type Config struct {
	// TLSConfig carries the server certificate. Required.
	TLSConfig *transport.TLSConfig

	// Address to listen on (e.g., ":443" or "192.168.1.2:443").
	Address string

	// MaxRequestSize caps one buffered request (default: 4KB).
	MaxRequestSize int

	// ReadTimeout bounds reading one request (default: 30s).
	ReadTimeout time.Duration

	// Hook is called for each parsed POST body (optional).
	Hook Hook

	// Logger receives request events (optional).
	Logger log.Logger
}

// Server accepts and serves connections strictly one at a time. A second
// client connecting while a request is in flight waits in the TCP accept
// queue.
type Server struct {
	config  Config
	tlsConf *tls.Config

	listener net.Listener

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a server.
func New(config Config) (*Server, error) {
	if config.TLSConfig == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", wire.DefaultPort)
	}
	if config.MaxRequestSize == 0 {
		config.MaxRequestSize = DefaultMaxRequestSize
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	config.Logger = log.OrNoop(config.Logger)

	tlsConf, err := transport.NewServerTLSConfig(config.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	return &Server{
		config:  config,
		tlsConf: tlsConf,
	}, nil
}

// Start starts listening and serving.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.serveLoop()

	return nil
}

// Stop stops the server. The connection being served, if any, is allowed to
// finish its single request.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// serveLoop accepts and serves connections serially.
func (s *Server) serveLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.logError("", "", fmt.Errorf("accept error: %w", err))
			}
			continue
		}
		s.serveOne(conn)
	}
}

// serveOne handles one connection: handshake, one request, one response.
func (s *Server) serveOne(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	remote := conn.RemoteAddr().String()

	tlsConn := tls.Server(conn, s.tlsConf)
	if err := tlsConn.HandshakeContext(s.ctx); err != nil {
		s.logError(connID, remote, fmt.Errorf("TLS handshake failed: %w", err))
		return
	}

	tlsConn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

	req, err := s.readRequest(tlsConn)
	if err != nil {
		if errors.Is(err, errRequestTooLarge) {
			s.logError(connID, remote, err)
			tlsConn.Write([]byte(wire.ResponseTooLarge))
		} else {
			s.logError(connID, remote, fmt.Errorf("read request: %w", err))
		}
		tlsConn.Close()
		return
	}

	s.handleRequest(connID, remote, req)

	if _, err := tlsConn.Write([]byte(wire.ResponseOK)); err != nil {
		s.logError(connID, remote, fmt.Errorf("write response: %w", err))
	}
	tlsConn.Close()
}

var errRequestTooLarge = errors.New("request too large")

// readRequest accumulates reads until one request parses completely or the
// size limit is hit.
func (s *Server) readRequest(conn *tls.Conn) (*wire.Request, error) {
	buf := make([]byte, 0, s.config.MaxRequestSize)
	chunk := make([]byte, 1024)

	for {
		req, err := wire.ParseRequest(buf)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, wire.ErrIncomplete) {
			return nil, err
		}
		if len(buf) >= s.config.MaxRequestSize {
			return nil, fmt.Errorf("%w: %d byte limit", errRequestTooLarge, s.config.MaxRequestSize)
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			if len(buf)+n > s.config.MaxRequestSize {
				return nil, fmt.Errorf("%w: %d byte limit", errRequestTooLarge, s.config.MaxRequestSize)
			}
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("connection closed before full request")
			}
			return nil, err
		}
	}
}

// handleRequest decodes POST bodies and fires the hook.
func (s *Server) handleRequest(connID, remote string, req *wire.Request) {
	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		AttemptID:  connID,
		Category:   log.CategoryProgress,
		RemoteAddr: remote,
		Message:    fmt.Sprintf("%s %s, %d body bytes", req.Method, req.Target, len(req.Body)),
	})

	if req.Method != "POST" {
		return
	}

	message, err := wire.DecodeForm(string(req.Body))
	if err != nil {
		s.logError(connID, remote, fmt.Errorf("decode body: %w", err))
		return
	}

	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		AttemptID:  connID,
		Category:   log.CategoryData,
		RemoteAddr: remote,
		Message:    message,
		Chunk:      &log.ChunkEvent{Size: len(req.Body)},
	})

	if s.config.Hook != nil {
		s.config.Hook(message)
	}
}

func (s *Server) logError(connID, remote string, err error) {
	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		AttemptID:  connID,
		Category:   log.CategoryError,
		RemoteAddr: remote,
		Error:      &log.ErrorEvent{Kind: "server", Message: err.Error()},
	})
}
