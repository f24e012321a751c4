// ABOUTME: Oto-based audio output implementation
// ABOUTME: Feeds a persistent oto player from the bounded queue with software volume control
package output

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

const drainPollInterval = 10 * time.Millisecond

// oto allows one context per process
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// Oto output implementation using oto library
type Oto struct {
	mu     sync.Mutex
	queue  *Queue
	reader *reader
	player *oto.Player
	format audio.Format
	paused bool
	ready  bool
	closed bool
}

// NewOto creates a new Oto output with a queue of queueUnits buffers
func NewOto(queueUnits int) *Oto {
	queue := NewQueue(queueUnits)
	return &Oto{
		queue:  queue,
		reader: newReader(queue, 0),
		paused: true,
	}
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready {
		if o.format != format {
			return fmt.Errorf("%w: %v, requested %v", ErrFormatMismatch, o.format, format)
		}
		return nil
	}

	ctx, err := sharedContext(format)
	if err != nil {
		return err
	}

	// The player pulls from the queue on oto's mixer goroutine; it stays
	// paused until the scheduler resumes it
	o.player = ctx.NewPlayer(o.reader)
	o.format = format
	o.ready = true

	slog.Info("audio output initialized", "format", format, "queue", o.queue.Cap())
	return nil
}

func sharedContext(format audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat != format {
			return nil, fmt.Errorf("%w: device running at %v, requested %v", ErrFormatMismatch, otoFormat, format)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create oto context: %v", ErrDeviceUnavailable, err)
	}
	<-readyChan

	otoCtx = ctx
	otoFormat = format
	return ctx, nil
}

// Enqueue appends a buffer to the playback queue
func (o *Oto) Enqueue(ctx context.Context, buf *audio.Buffer) error {
	o.mu.Lock()
	ready, closed := o.ready, o.closed
	o.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ready {
		return ErrNotOpen
	}
	if buf.Format != o.format {
		return fmt.Errorf("%w: buffer %v, output %v", ErrFormatMismatch, buf.Format, o.format)
	}
	return o.queue.Push(ctx, buf)
}

// Pause stops the player
func (o *Oto) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.paused {
		return
	}
	o.paused = true
	if o.player != nil {
		o.player.Pause()
	}
	slog.Debug("audio output paused")
}

// Resume starts the player
func (o *Oto) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.paused {
		return
	}
	o.paused = false
	o.reader.resetStarved()
	if o.player != nil {
		o.player.Play()
	}
	slog.Debug("audio output resumed", "queued", o.queue.Len())
}

// IsPaused reports whether the player is paused
func (o *Oto) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Oto) QueueLength() int   { return o.queue.Len() }
func (o *Oto) QueueCapacity() int { return o.queue.Cap() }

// WaitDrained closes the queue for writing and waits until the player has
// played everything, including oto's own buffer
func (o *Oto) WaitDrained(ctx context.Context) error {
	o.mu.Lock()
	player := o.player
	o.mu.Unlock()

	if player == nil {
		return ErrNotOpen
	}

	o.queue.CloseWrite()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		if o.reader.ended() && !player.IsPlaying() {
			if err := player.Err(); err != nil {
				return fmt.Errorf("player error: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Oto) Stats() Stats { return o.reader.stats() }

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.reader.setVolume(volume)
	slog.Debug("volume set", "volume", volume)
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.reader.setMuted(muted)
	slog.Debug("mute set", "muted", muted)
}

// Close releases output resources. The shared oto context is suspended but
// kept, since oto cannot create a second one.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.queue.Close()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			slog.Warn("failed to close player", "err", err)
		}
		o.player = nil
	}

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil && o.ready {
		if err := otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend audio context: %w", err)
		}
	}
	o.ready = false
	return nil
}

var _ Output = (*Oto)(nil)
