// ABOUTME: Output that plays into nothing
// ABOUTME: Consumes the queue on its own goroutine, optionally at real-time pace
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

const discardBlockFrames = 441

// Discard consumes queued buffers without a device. With realtime set it
// paces consumption at the stream's sample rate; otherwise it runs as fast
// as buffers arrive. A tap, when set, sees every played sample.
type Discard struct {
	mu       sync.Mutex
	queue    *Queue
	reader   *reader
	realtime bool
	format   audio.Format
	paused   bool
	ready    bool
	closed   bool
	tap      func([]audio.Sample)

	wake     chan struct{}
	done     chan struct{}
	finished chan struct{}
}

// NewDiscard creates a discard output with a queue of queueUnits buffers
func NewDiscard(queueUnits int, realtime bool) *Discard {
	queue := NewQueue(queueUnits)
	return &Discard{
		queue:    queue,
		reader:   newReader(queue, drainPollInterval),
		realtime: realtime,
		paused:   true,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// SetTap registers a function receiving played samples. It must be set before Open.
func (d *Discard) SetTap(tap func([]audio.Sample)) {
	d.mu.Lock()
	d.tap = tap
	d.mu.Unlock()
}

// Open starts the consumer goroutine
func (d *Discard) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.ready {
		if d.format != format {
			return fmt.Errorf("%w: %v, requested %v", ErrFormatMismatch, d.format, format)
		}
		return nil
	}

	d.format = format
	d.ready = true
	go d.run(format, d.tap)
	return nil
}

func (d *Discard) run(format audio.Format, tap func([]audio.Sample)) {
	defer close(d.finished)

	block := make([]audio.Sample, discardBlockFrames*format.Channels)
	for {
		if d.IsPaused() {
			select {
			case <-d.wake:
			case <-d.done:
				return
			}
			continue
		}

		n, err := d.reader.pull(block)
		if n > 0 {
			if tap != nil {
				tap(block[:n])
			}
			if d.realtime {
				select {
				case <-time.After(format.Duration(n)):
				case <-d.done:
					return
				}
			}
		}
		if err == io.EOF {
			return
		}
	}
}

// Enqueue appends a buffer to the queue
func (d *Discard) Enqueue(ctx context.Context, buf *audio.Buffer) error {
	d.mu.Lock()
	ready, closed, format := d.ready, d.closed, d.format
	d.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ready {
		return ErrNotOpen
	}
	if buf.Format != format {
		return fmt.Errorf("%w: buffer %v, output %v", ErrFormatMismatch, buf.Format, format)
	}
	return d.queue.Push(ctx, buf)
}

func (d *Discard) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

func (d *Discard) Resume() {
	d.mu.Lock()
	wasPaused := d.paused
	d.paused = false
	d.mu.Unlock()

	if wasPaused {
		d.reader.resetStarved()
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
}

func (d *Discard) IsPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *Discard) QueueLength() int   { return d.queue.Len() }
func (d *Discard) QueueCapacity() int { return d.queue.Cap() }

// WaitDrained closes the queue for writing and waits for the consumer to finish
func (d *Discard) WaitDrained(ctx context.Context) error {
	d.mu.Lock()
	ready := d.ready
	d.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}

	d.queue.CloseWrite()
	select {
	case <-d.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Discard) Stats() Stats { return d.reader.stats() }

func (d *Discard) SetVolume(volume int) { d.reader.setVolume(volume) }

func (d *Discard) SetMuted(muted bool) { d.reader.setMuted(muted) }

// Close stops the consumer goroutine
func (d *Discard) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.queue.Close()
	close(d.done)
	slog.Debug("discard output closed", "stats", d.Stats())
	return nil
}

var _ Output = (*Discard)(nil)
