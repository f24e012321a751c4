// ABOUTME: High-level Player API for pcmstream
// ABOUTME: Connects to a stream endpoint and runs the playback pipeline
package pcmstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/decode"
	"github.com/Sendspin/pcmstream/pkg/audio/output"
	"github.com/Sendspin/pcmstream/pkg/stream"
	"github.com/Sendspin/pcmstream/pkg/transport"
)

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultWarmUp     = 3 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("player already running")
	ErrQueueTooSmall  = errors.New("output queue too small for warm-up")
)

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// URL of the stream (http, https, ws or wss)
	URL string

	// Format of the stream, agreed out of band (default: 44100 Hz stereo)
	Format audio.Format

	// Encoding of samples on the wire (default: big-endian float32)
	Encoding audio.Encoding

	// UnitBytes is the number of buffered bytes that form a playable unit
	// (default: one second of audio)
	UnitBytes int

	// WarmUp decides when playback starts (default: more than 3s buffered)
	WarmUp stream.WarmUp

	// QueueUnits is the output queue capacity (default: 8, raised to fit the
	// warm-up). A supplied Output's own capacity takes precedence.
	QueueUnits int

	// Output plays the units (default: the system audio device). Its queue
	// must hold every unit the warm-up waits for.
	Output output.Output

	// Volume is the initial volume (0-100, default: 100)
	Volume int

	// HTTPClient is used for http(s) streams (default: http.DefaultClient)
	HTTPClient *http.Client

	// ReadSize bounds a single transport read (default: 32 KiB)
	ReadSize int

	// OnStateChange is called when the ingest state changes
	OnStateChange func(stream.State)
}

// PlayerStats contains playback statistics
type PlayerStats struct {
	StreamID      string
	State         string
	Units         int
	BytesReceived int64
	Scheduler     stream.SchedulerStats
	Output        output.Stats
}

// Player plays one stream through the ingest, accumulator and scheduler pipeline
type Player struct {
	config PlayerConfig
	out    output.Output

	mu       sync.Mutex
	running  bool
	streamID string
	ingest   *stream.Ingest
	sched    *stream.Scheduler
}

// NewPlayer creates a new player with the given configuration
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.URL == "" {
		return nil, errors.New("stream URL is required")
	}
	if config.Format.SampleRate == 0 {
		config.Format.SampleRate = DefaultSampleRate
	}
	if config.Format.Channels == 0 {
		config.Format.Channels = DefaultChannels
	}
	if err := config.Format.Validate(); err != nil {
		return nil, err
	}
	if config.Encoding.Order == nil && config.Encoding.Width == 0 {
		config.Encoding = audio.BigEndianFloat32
	}
	if err := config.Encoding.Validate(); err != nil {
		return nil, err
	}
	if config.UnitBytes == 0 {
		config.UnitBytes = config.Format.BytesPerSecond(config.Encoding)
	}
	if config.WarmUp == nil {
		config.WarmUp = stream.BufferedFor(DefaultWarmUp)
	}
	if config.QueueUnits == 0 {
		config.QueueUnits = output.DefaultQueueUnits
	}
	if config.Volume == 0 {
		config.Volume = 100
	}

	unit := config.Format.Duration(config.UnitBytes / config.Encoding.Width)
	needed := config.WarmUp.UnitsNeeded(unit)
	if config.Output == nil {
		if config.QueueUnits < needed {
			slog.Debug("raising output queue to fit warm-up",
				"queue", config.QueueUnits, "needed", needed, "warmup", config.WarmUp.String())
			config.QueueUnits = needed
		}
		config.Output = output.NewOto(config.QueueUnits)
	}
	config.QueueUnits = config.Output.QueueCapacity()
	if config.QueueUnits < needed {
		return nil, fmt.Errorf("%w: %d units queued at most, %s needs %d",
			ErrQueueTooSmall, config.QueueUnits, config.WarmUp, needed)
	}

	config.Output.SetVolume(config.Volume)

	return &Player{
		config: config,
		out:    config.Output,
	}, nil
}

// Run connects to the stream and plays it until it ends, fails or ctx is
// cancelled. It returns nil once a complete stream has finished playing.
func (p *Player) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()

	if err := p.out.Open(p.config.Format); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	dec, err := decode.NewPCM(p.config.Encoding)
	if err != nil {
		return err
	}
	acc, err := stream.NewAccumulator(p.config.Format, dec, p.config.UnitBytes)
	if err != nil {
		return err
	}

	src, err := transport.Dial(ctx, p.config.HTTPClient, p.config.URL, p.config.ReadSize)
	if err != nil {
		return &stream.TransportError{Err: fmt.Errorf("failed to connect to %s: %w", p.config.URL, err)}
	}
	defer src.Close()

	sched := stream.NewScheduler(p.out, p.config.WarmUp)
	ingest := stream.NewIngest(src, acc, sched)
	ingest.OnStateChange = p.config.OnStateChange

	p.mu.Lock()
	p.streamID = src.StreamID()
	p.ingest = ingest
	p.sched = sched
	p.mu.Unlock()

	slog.Info("stream connected",
		"url", p.config.URL,
		"stream", src.StreamID(),
		"format", p.config.Format,
		"encoding", p.config.Encoding,
		"unit_bytes", acc.Threshold(),
		"unit_duration", p.config.Format.Duration(p.config.UnitBytes/p.config.Encoding.Width),
		"warmup", p.config.WarmUp.String())

	start := time.Now()
	if err := ingest.Run(ctx); err != nil {
		return err
	}

	slog.Info("playback finished", "stream", src.StreamID(), "elapsed", time.Since(start), "stats", p.out.Stats())
	return nil
}

// Config returns the effective configuration
func (p *Player) Config() PlayerConfig {
	return p.config
}

// Stats returns playback statistics
func (p *Player) Stats() PlayerStats {
	p.mu.Lock()
	ingest, sched, streamID := p.ingest, p.sched, p.streamID
	p.mu.Unlock()

	stats := PlayerStats{
		StreamID: streamID,
		State:    "connecting",
		Output:   p.out.Stats(),
	}
	if ingest != nil {
		stats.State = ingest.State().String()
		stats.Units = ingest.Units()
		stats.BytesReceived = ingest.BytesReceived()
	}
	if sched != nil {
		stats.Scheduler = sched.Stats()
	}
	return stats
}

// SetVolume sets the output volume (0-100)
func (p *Player) SetVolume(volume int) {
	p.out.SetVolume(volume)
}

// SetMuted sets the output mute state
func (p *Player) SetMuted(muted bool) {
	p.out.SetMuted(muted)
}

// Close releases the output
func (p *Player) Close() error {
	return p.out.Close()
}
