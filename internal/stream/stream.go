// Package stream coordinates the bounded producer/consumer handoff between
// an upstream fetch and the client emitter, with optional concurrent cache
// population (spec.md §4.F).
package stream

import (
	"context"
	"io"
	"time"

	mirrorerrors "github.com/zmirror/zmirror/internal/errors"
)

const (
	// PutTimeout is how long the producer blocks trying to enqueue a chunk
	// before the request is aborted (spec.md §4.F: "fatal").
	PutTimeout = 10 * time.Second
	// GetTimeout is how long the consumer waits for the next chunk before
	// aborting the request (spec.md §4.F: "warn + abort").
	GetTimeout = 15 * time.Second
	// CacheAbandonThreshold is the cumulative buffered size past which
	// concurrent cache population for this response is abandoned.
	CacheAbandonThreshold = 8 * 1024 * 1024
)

// chunk is one queue element; a nil Data with Err == nil is never sent —
// end-of-stream is its own sentinel value (terminal).
type chunk struct {
	data     []byte
	err      error
	terminal bool
}

// Coordinator is the bounded FIFO linking exactly one producer and one
// consumer for a single request's body (spec.md §4.F, §5).
type Coordinator struct {
	queue chan chunk
}

// NewCoordinator returns a Coordinator with the given queue capacity
// (stream_async_preload_max).
func NewCoordinator(capacity int) *Coordinator {
	if capacity <= 0 {
		capacity = 1
	}
	return &Coordinator{queue: make(chan chunk, capacity)}
}

// Produce reads from upstream in buffer-sized chunks and pushes them onto
// the queue, blocking on put for at most PutTimeout. It always terminates
// the queue with a sentinel, whether upstream ended cleanly or with an
// error, so the consumer never blocks forever.
func (c *Coordinator) Produce(ctx context.Context, upstream io.Reader, bufferSize int) error {
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}
	buf := make([]byte, bufferSize)

	for {
		n, readErr := upstream.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if err := c.put(ctx, chunk{data: data}); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return c.put(ctx, chunk{terminal: true})
		}
		if readErr != nil {
			_ = c.put(ctx, chunk{terminal: true})
			return readErr
		}
	}
}

func (c *Coordinator) put(ctx context.Context, ch chunk) error {
	timer := time.NewTimer(PutTimeout)
	defer timer.Stop()

	select {
	case c.queue <- ch:
		return nil
	case <-timer.C:
		return mirrorerrors.NewStreamTimeout("producer", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume pulls chunks and calls emit for each one until the terminal
// sentinel arrives or an error occurs, waiting at most GetTimeout between
// chunks.
func (c *Coordinator) Consume(ctx context.Context, emit func([]byte) error) error {
	timer := time.NewTimer(GetTimeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(GetTimeout)

		select {
		case ch := <-c.queue:
			if ch.terminal {
				return nil
			}
			if err := emit(ch.data); err != nil {
				return err
			}
		case <-timer.C:
			return mirrorerrors.NewStreamTimeout("consumer", nil)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
