// ABOUTME: Playback scheduler for the streaming pipeline
// ABOUTME: Enqueues units on the output and resumes it once warm-up is satisfied
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/output"
)

// Scheduler owns the output handle and decides when playback starts. Once
// resumed it never pauses the output again.
type Scheduler struct {
	out    output.Output
	warmUp WarmUp

	mu        sync.Mutex
	enqueued  int
	buffered  time.Duration
	paused    bool
	created   time.Time
	resumedAt time.Time
}

// SchedulerStats reports scheduler progress
type SchedulerStats struct {
	Enqueued     int
	Buffered     time.Duration // total audio handed to the output
	Paused       bool
	StartupDelay time.Duration // time from creation to resume, zero while paused
}

// NewScheduler creates a scheduler and pauses the output until warmUp is
// satisfied. A nil warmUp starts playback with the first unit.
func NewScheduler(out output.Output, warmUp WarmUp) *Scheduler {
	if warmUp == nil {
		warmUp = UnitCount(0)
	}
	out.Pause()
	return &Scheduler{
		out:     out,
		warmUp:  warmUp,
		paused:  true,
		created: time.Now(),
	}
}

// OnUnitReady enqueues a unit, blocking while the output queue is full
func (s *Scheduler) OnUnitReady(ctx context.Context, unit *audio.Buffer) error {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	// A paused output never frees queue space, so waiting for room would
	// deadlock when the queue is smaller than the warm-up target
	if paused && s.out.QueueLength() >= s.out.QueueCapacity() {
		slog.Warn("output queue full before warm-up completed, starting playback early",
			"queued", s.out.QueueLength(), "warmup", s.warmUp.String())
		s.resume()
	}

	duration := unit.Duration()
	if err := s.out.Enqueue(ctx, unit); err != nil {
		return err
	}

	s.mu.Lock()
	s.enqueued++
	s.buffered += duration
	start := s.paused && s.warmUp.Satisfied(s.enqueued, s.buffered)
	enqueued, buffered := s.enqueued, s.buffered
	s.mu.Unlock()

	if start {
		slog.Info("warm-up complete, starting playback",
			"units", enqueued, "buffered", buffered, "warmup", s.warmUp.String())
		s.resume()
	}
	return nil
}

// Start resumes the output regardless of the warm-up policy. Used at the end
// of a stream too short to satisfy it.
func (s *Scheduler) Start() {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	if paused {
		slog.Debug("starting playback without completing warm-up")
		s.resume()
	}
}

func (s *Scheduler) resume() {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.resumedAt = time.Now()
	s.mu.Unlock()

	s.out.Resume()
}

// IsPaused reports whether playback has not started yet
func (s *Scheduler) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// QueueLength returns the number of units waiting in the output queue
func (s *Scheduler) QueueLength() int {
	return s.out.QueueLength()
}

// WaitDrained blocks until the output has played everything enqueued
func (s *Scheduler) WaitDrained(ctx context.Context) error {
	return s.out.WaitDrained(ctx)
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SchedulerStats{
		Enqueued: s.enqueued,
		Buffered: s.buffered,
		Paused:   s.paused,
	}
	if !s.paused {
		stats.StartupDelay = s.resumedAt.Sub(s.created)
	}
	return stats
}
