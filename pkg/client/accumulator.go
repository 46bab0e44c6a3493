package client

import (
	"fmt"
	"io"
	"time"

	"github.com/mytechnotalent/picopost/pkg/log"
)

// DefaultMaxChunkSize caps the bytes forwarded from a single delivery.
const DefaultMaxChunkSize = 16 * 1024

// Accumulator copies inbound chunks to the output sink and acknowledges
// their consumption for flow control. Chunks are independent; nothing is
// buffered across deliveries.
type Accumulator struct {
	sink      io.Writer
	max       int
	ack       func(n int)
	logger    log.Logger
	attemptID string
}

// NewAccumulator creates an accumulator writing to sink. ack is invoked with
// the full delivered length of every chunk, truncated or not, so the
// transport window keeps advancing.
func NewAccumulator(sink io.Writer, max int, ack func(n int), logger log.Logger, attemptID string) *Accumulator {
	if max <= 0 {
		max = DefaultMaxChunkSize
	}
	return &Accumulator{
		sink:      sink,
		max:       max,
		ack:       ack,
		logger:    log.OrNoop(logger),
		attemptID: attemptID,
	}
}

// Consume copies one chunk to the sink with a trailing newline and
// acknowledges it. A chunk larger than the maximum is cut to fit and
// ErrChunkTruncated is returned after the truncated copy is written.
func (a *Accumulator) Consume(chunk []byte) error {
	n := len(chunk)
	out := chunk
	truncated := false
	if n > a.max {
		out = chunk[:a.max]
		truncated = true
	}

	buf := make([]byte, 0, len(out)+1)
	buf = append(buf, out...)
	buf = append(buf, '\n')
	if _, err := a.sink.Write(buf); err != nil {
		a.ack(n)
		return fmt.Errorf("sink write: %w", err)
	}

	a.ack(n)

	a.logger.Log(log.Event{
		Timestamp: time.Now(),
		AttemptID: a.attemptID,
		Category:  log.CategoryData,
		Chunk:     &log.ChunkEvent{Size: n, Truncated: truncated},
	})

	if truncated {
		return fmt.Errorf("%w: %d bytes over %d byte limit", ErrChunkTruncated, n-a.max, a.max)
	}
	return nil
}
