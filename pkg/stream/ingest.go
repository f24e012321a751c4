// ABOUTME: Streaming ingest loop driving the player pipeline
// ABOUTME: Moves chunks from the transport through the accumulator to the scheduler
package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// ChunkSource delivers the byte chunks of one stream. Next returns io.EOF at
// the end of the stream; any other error aborts it.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// State is the ingest loop state
type State int32

const (
	Receiving State = iota
	Draining
	Finished
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "receiving"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Ingest drives one stream from a ChunkSource to a Scheduler
type Ingest struct {
	src   ChunkSource
	acc   *Accumulator
	sched *Scheduler
	state atomic.Int32
	units atomic.Int64
	bytes atomic.Int64

	// OnStateChange, if set, is called on every state transition
	OnStateChange func(State)
}

// NewIngest creates an ingest loop in the Receiving state
func NewIngest(src ChunkSource, acc *Accumulator, sched *Scheduler) *Ingest {
	return &Ingest{src: src, acc: acc, sched: sched}
}

// State returns the current state
func (i *Ingest) State() State {
	return State(i.state.Load())
}

// Units returns the number of units handed to the scheduler
func (i *Ingest) Units() int {
	return int(i.units.Load())
}

// BytesReceived returns the number of stream bytes received
func (i *Ingest) BytesReceived() int64 {
	return i.bytes.Load()
}

func (i *Ingest) setState(s State) {
	if State(i.state.Swap(int32(s))) == s {
		return
	}
	slog.Debug("ingest state changed", "state", s)
	if i.OnStateChange != nil {
		i.OnStateChange(s)
	}
}

// Run receives the stream until it ends, then waits for playback to finish.
// A transport failure ends the stream immediately, without draining, and is
// returned as a *TransportError.
func (i *Ingest) Run(ctx context.Context) error {
	loadStart := time.Now()

	for {
		chunk, err := i.src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			i.setState(Finished)
			return &TransportError{Err: err}
		}

		i.bytes.Add(int64(len(chunk)))
		i.acc.Push(chunk)
		if !i.acc.Ready() {
			continue
		}

		unit := i.acc.Drain()
		n := i.units.Add(1)
		if err := i.sched.OnUnitReady(ctx, unit); err != nil {
			i.setState(Finished)
			return &OutputError{Err: err}
		}
		slog.Debug("unit loaded", "unit", n, "samples", unit.Len(), "duration", unit.Duration(),
			"elapsed", time.Since(loadStart), "queued", i.sched.QueueLength())
		loadStart = time.Now()
	}

	i.setState(Draining)

	unit, discarded := i.acc.Flush()
	if discarded > 0 {
		slog.Debug("dropping trailing partial sample at end of stream", "bytes", discarded)
	}
	if unit.Len() > 0 {
		n := i.units.Add(1)
		if err := i.sched.OnUnitReady(ctx, unit); err != nil {
			i.setState(Finished)
			return &OutputError{Err: err}
		}
		slog.Debug("final unit loaded", "unit", n, "samples", unit.Len(), "queued", i.sched.QueueLength())
	}
	i.sched.Start()

	i.setState(Finished)
	slog.Info("stream received", "units", i.Units(), "bytes", i.BytesReceived())

	if err := i.sched.WaitDrained(ctx); err != nil {
		return fmt.Errorf("waiting for playback to drain: %w", err)
	}
	return nil
}
