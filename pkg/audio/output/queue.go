// ABOUTME: Bounded FIFO queue between the ingest loop and an output
// ABOUTME: Push blocks while full; Next never blocks longer than requested
package output

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// Queue is a bounded FIFO of buffers with a single writer
type Queue struct {
	ch          chan *audio.Buffer
	writeClosed chan struct{}
	closed      chan struct{}
	closeWrite  sync.Once
	closeAll    sync.Once
	pushed      atomic.Int64
}

// NewQueue creates a queue holding at most capacity buffers
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueUnits
	}
	return &Queue{
		ch:          make(chan *audio.Buffer, capacity),
		writeClosed: make(chan struct{}),
		closed:      make(chan struct{}),
	}
}

// Push appends buf, blocking until there is room, ctx is done or the queue is closed
func (q *Queue) Push(ctx context.Context, buf *audio.Buffer) error {
	select {
	case <-q.writeClosed:
		return ErrClosed
	case <-q.closed:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- buf:
		q.pushed.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closed:
		return ErrClosed
	}
}

// Next returns the oldest buffer. It waits up to wait for one to arrive and
// returns (nil, nil) if none did. Once the writer has finished and the queue
// is empty, or the queue is closed, it returns io.EOF.
func (q *Queue) Next(wait time.Duration) (*audio.Buffer, error) {
	select {
	case buf := <-q.ch:
		return buf, nil
	case <-q.closed:
		return nil, io.EOF
	default:
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case buf := <-q.ch:
			return buf, nil
		case <-q.closed:
			return nil, io.EOF
		case <-q.writeClosed:
		case <-timer.C:
			return nil, nil
		}
	}

	select {
	case <-q.writeClosed:
		// Items pushed before CloseWrite still count
		select {
		case buf := <-q.ch:
			return buf, nil
		default:
			return nil, io.EOF
		}
	default:
		return nil, nil
	}
}

// CloseWrite marks the end of input. Buffers already queued can still be taken.
func (q *Queue) CloseWrite() {
	q.closeWrite.Do(func() { close(q.writeClosed) })
}

// Close aborts the queue, unblocking Push and ending Next
func (q *Queue) Close() {
	q.closeAll.Do(func() { close(q.closed) })
}

// Len returns the number of waiting buffers
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity
func (q *Queue) Cap() int { return cap(q.ch) }

// Pushed returns the number of buffers ever accepted
func (q *Queue) Pushed() int { return int(q.pushed.Load()) }
