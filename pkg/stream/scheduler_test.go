// ABOUTME: Tests for the playback scheduler
// ABOUTME: Tests warm-up policies, single resume and queue-full handling
package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

func TestNewSchedulerPausesOutput(t *testing.T) {
	out := newRecordingOutput(8)
	out.paused = false

	s := NewScheduler(out, UnitCount(1))
	if !out.IsPaused() || !s.IsPaused() {
		t.Error("expected output paused after NewScheduler")
	}
}

func TestWarmUpUnitCountInvariant(t *testing.T) {
	for threshold := 0; threshold <= 5; threshold++ {
		out := newRecordingOutput(100)
		s := NewScheduler(out, UnitCount(threshold))

		for k := 1; k <= 8; k++ {
			if err := s.OnUnitReady(context.Background(), audio.NewBuffer(testFormat, []audio.Sample{0})); err != nil {
				t.Fatalf("threshold %d unit %d: %v", threshold, k, err)
			}

			wantPaused := k <= threshold
			if out.IsPaused() != wantPaused {
				t.Errorf("threshold %d unit %d: paused=%v, want %v", threshold, k, out.IsPaused(), wantPaused)
			}
		}

		if out.resumes != 1 {
			t.Errorf("threshold %d: expected exactly one resume, got %d", threshold, out.resumes)
		}
		if out.pauses != 1 {
			t.Errorf("threshold %d: expected only the initial pause, got %d", threshold, out.pauses)
		}
	}
}

func TestWarmUpBufferedFor(t *testing.T) {
	out := newRecordingOutput(100)
	s := NewScheduler(out, BufferedFor(time.Second))

	// 0.5s units at 8 kHz mono
	half := func() *audio.Buffer { return audio.NewBuffer(testFormat, make([]audio.Sample, 4000)) }

	s.OnUnitReady(context.Background(), half())
	s.OnUnitReady(context.Background(), half())
	if !out.IsPaused() {
		t.Fatal("expected paused with exactly 1s buffered")
	}

	// A short unit tips it over regardless of unit count
	s.OnUnitReady(context.Background(), audio.NewBuffer(testFormat, make([]audio.Sample, 8)))
	if out.IsPaused() {
		t.Fatal("expected playback to start once more than 1s was buffered")
	}

	stats := s.Stats()
	if stats.Enqueued != 3 || stats.Paused {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Buffered != time.Second+time.Millisecond {
		t.Errorf("expected 1.001s buffered, got %v", stats.Buffered)
	}
}

func TestWarmUpPolicyStrings(t *testing.T) {
	if UnitCount(3).String() != "more than 3 units" {
		t.Errorf("unexpected string %q", UnitCount(3).String())
	}
	if BufferedFor(2*time.Second).String() != "more than 2s buffered" {
		t.Errorf("unexpected string %q", BufferedFor(2*time.Second).String())
	}
}

func TestWarmUpUnitsNeeded(t *testing.T) {
	tests := []struct {
		name   string
		warmUp WarmUp
		unit   time.Duration
		want   int
	}{
		{"no units", UnitCount(0), time.Second, 1},
		{"three units", UnitCount(3), time.Second, 4},
		{"exact multiple", BufferedFor(3 * time.Second), time.Second, 4},
		{"fraction", BufferedFor(2500 * time.Millisecond), time.Second, 3},
		{"zero duration", BufferedFor(0), time.Second, 1},
		{"unknown unit length", BufferedFor(time.Second), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.warmUp.UnitsNeeded(tt.unit); got != tt.want {
				t.Errorf("UnitsNeeded(%v) = %d, want %d", tt.unit, got, tt.want)
			}
		})
	}
}

// A queue sized by UnitsNeeded holds every unit the warm-up waits for, so
// playback never starts early
func TestWarmUpUnitCountWithFittedQueue(t *testing.T) {
	for threshold := 0; threshold <= 5; threshold++ {
		warmUp := UnitCount(threshold)
		out := newRecordingOutput(warmUp.UnitsNeeded(time.Second))
		s := NewScheduler(out, warmUp)

		for k := 1; k <= threshold+1; k++ {
			if err := s.OnUnitReady(context.Background(), audio.NewBuffer(testFormat, []audio.Sample{0})); err != nil {
				t.Fatalf("threshold %d unit %d: %v", threshold, k, err)
			}
			if wantPaused := k <= threshold; out.IsPaused() != wantPaused {
				t.Errorf("threshold %d unit %d: paused=%v, want %v", threshold, k, out.IsPaused(), wantPaused)
			}
		}
		if out.resumedAt != threshold+1 {
			t.Errorf("threshold %d: expected resume with %d units queued, got %d", threshold, threshold+1, out.resumedAt)
		}
	}
}

func TestSchedulerResumesWhenQueueFullDuringWarmUp(t *testing.T) {
	out := newRecordingOutput(2)
	s := NewScheduler(out, UnitCount(5))

	for k := 1; k <= 3; k++ {
		s.OnUnitReady(context.Background(), audio.NewBuffer(testFormat, []audio.Sample{0}))
	}

	// The third unit found the queue full and resumed before enqueueing
	if !out.pausedLog[0] || !out.pausedLog[1] || out.pausedLog[2] {
		t.Errorf("unexpected paused states %v", out.pausedLog)
	}
	if out.resumedAt != 2 {
		t.Errorf("expected resume with 2 units queued, got %d", out.resumedAt)
	}
	if s.IsPaused() {
		t.Error("expected scheduler to be resumed")
	}
}

func TestSchedulerStart(t *testing.T) {
	out := newRecordingOutput(8)
	s := NewScheduler(out, UnitCount(10))

	s.Start()
	s.Start()

	if out.IsPaused() {
		t.Error("expected output resumed after Start")
	}
	if out.resumes != 1 {
		t.Errorf("expected one resume, got %d", out.resumes)
	}
	if s.Stats().StartupDelay < 0 {
		t.Error("expected non-negative startup delay")
	}
}

func TestSchedulerEnqueueError(t *testing.T) {
	out := newRecordingOutput(8)
	out.enqueueErr = errors.New("device gone")
	s := NewScheduler(out, nil)

	err := s.OnUnitReady(context.Background(), audio.NewBuffer(testFormat, []audio.Sample{0}))
	if !errors.Is(err, out.enqueueErr) {
		t.Errorf("expected enqueue error, got %v", err)
	}
	if s.Stats().Enqueued != 0 {
		t.Error("failed enqueue was counted")
	}
}
