// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for queue-fed playback backends
package output

import (
	"context"
	"errors"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrNotOpen           = errors.New("output not initialized")
	ErrClosed            = errors.New("output closed")
	ErrFormatMismatch    = errors.New("output already opened with a different format")
)

// DefaultQueueUnits is the queue capacity used when none is configured
const DefaultQueueUnits = 8

// Output represents an audio output that plays buffers from a bounded FIFO
// queue on its own goroutine. A new output starts paused.
type Output interface {
	// Open initializes the output for a stream format
	Open(format audio.Format) error

	// Enqueue appends a buffer to the queue, blocking while it is full.
	// The output owns the buffer afterwards.
	Enqueue(ctx context.Context, buf *audio.Buffer) error

	// Pause stops consuming the queue
	Pause()

	// Resume starts or continues consuming the queue
	Resume()

	// IsPaused reports whether the output is paused
	IsPaused() bool

	// QueueLength returns the number of buffers waiting to be played
	QueueLength() int

	// QueueCapacity returns the maximum number of waiting buffers
	QueueCapacity() int

	// WaitDrained marks the end of input and blocks until every queued
	// buffer has been played
	WaitDrained(ctx context.Context) error

	// Stats returns playback counters
	Stats() Stats

	// SetVolume sets the volume (0-100)
	SetVolume(volume int)

	// SetMuted sets mute state
	SetMuted(muted bool)

	// Close releases output resources
	Close() error
}

// Stats holds playback counters
type Stats struct {
	Enqueued    int
	Played      int // buffers fully consumed
	Underruns   int // times playback ran out of queued audio while resumed
	QueueLength int
	Volume      int
	Muted       bool
}
