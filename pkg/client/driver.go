package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mytechnotalent/picopost/pkg/log"
	"github.com/mytechnotalent/picopost/pkg/loop"
)

// Driver defaults.
const (
	// DefaultMaxRetries bounds link-establishment attempts.
	DefaultMaxRetries = 3

	// DefaultPollInterval bounds one driver wait between pumps.
	DefaultPollInterval = 100 * time.Millisecond
)

// DriverConfig configures a Driver.
type DriverConfig struct {
	// Loop is the event loop the attempt runs on. Required.
	Loop *loop.Loop

	// Resolver resolves the server hostname. Required.
	Resolver Resolver

	// Dial allocates the per-attempt connection object. Required.
	Dial DialFunc

	// Link acquires network connectivity before each attempt
	// (default: NoopLink).
	Link Link

	// MaxRetries bounds link-establishment attempts (default: 3).
	MaxRetries int

	// RetryProtocolFailures also spends retries on attempt-level failures
	// such as timeouts. Off by default: a protocol failure is terminal.
	RetryProtocolFailures bool

	// PollInterval bounds one wait between loop pumps (default: 100ms).
	PollInterval time.Duration

	// Sink receives accumulated response bytes (default: os.Stdout).
	Sink io.Writer

	// MaxChunkSize caps one forwarded chunk (default: 16KB).
	MaxChunkSize int

	// Logger receives attempt events (default: none).
	Logger log.Logger
}

// Driver owns one attempt at a time: it establishes the link, runs the
// attempt to completion on the event loop, and applies the bounded retry
// policy.
type Driver struct {
	cfg DriverConfig
}

// NewDriver creates a driver. Missing optional fields get defaults.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Loop == nil {
		return nil, fmt.Errorf("event loop is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if cfg.Dial == nil {
		return nil, fmt.Errorf("dial function is required")
	}
	if cfg.Link == nil {
		cfg.Link = NoopLink{}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Sink == nil {
		cfg.Sink = os.Stdout
	}
	cfg.Logger = log.OrNoop(cfg.Logger)
	return &Driver{cfg: cfg}, nil
}

// Run performs the full exchange: establish the link, then run one attempt,
// retrying within the budget per the retry policy. It returns nil when an
// attempt completed cleanly.
func (d *Driver) Run(ctx context.Context, host string, port uint16, request []byte, timeout time.Duration) error {
	retries := d.cfg.MaxRetries
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.cfg.Link.Establish(ctx); err != nil {
			retries--
			d.logProgress(fmt.Sprintf("link establishment failed (%d retries left): %v", retries, err))
			if retries <= 0 {
				return fmt.Errorf("%w: %v", ErrLinkEstablishment, err)
			}
			continue
		}

		err := d.RunAttempt(ctx, host, port, request, timeout)
		if err == nil {
			return nil
		}
		if !d.cfg.RetryProtocolFailures {
			return err
		}
		retries--
		d.logProgress(fmt.Sprintf("attempt failed (%d retries left): %v", retries, err))
		if retries <= 0 {
			return err
		}
	}
}

// RunAttempt runs exactly one attempt to completion. The handle is created,
// opened, pumped until complete, then read and discarded. The recorded
// attempt error is the return value.
func (d *Driver) RunAttempt(ctx context.Context, host string, port uint16, request []byte, timeout time.Duration) error {
	h := newHandle(d.cfg.Dial, d.cfg.Resolver, port, request, timeout, d.cfg.Sink, d.cfg.MaxChunkSize, d.cfg.Logger)
	if h.Complete() {
		// Allocation failed before any network activity.
		return h.Err()
	}

	if !h.open(host) {
		return h.Err()
	}

	for !h.Complete() {
		if err := ctx.Err(); err != nil {
			h.cancel(err)
			break
		}
		d.cfg.Loop.Pump()
		if h.Complete() {
			break
		}
		d.cfg.Loop.WaitForWork(d.cfg.PollInterval)
	}

	return h.Err()
}

func (d *Driver) logProgress(msg string) {
	d.cfg.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Category:  log.CategoryProgress,
		Message:   msg,
	})
}
