// ABOUTME: Audio output tests
// ABOUTME: Tests the bounded queue, the shared reader and the discard backend
package output

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 1}

func unit(samples ...audio.Sample) *audio.Buffer {
	return audio.NewBuffer(testFormat, samples)
}

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestNewOtoStartsPaused(t *testing.T) {
	out := NewOto(4)
	if !out.IsPaused() {
		t.Error("expected new output to be paused")
	}
	if out.QueueCapacity() != 4 {
		t.Errorf("expected capacity 4, got %d", out.QueueCapacity())
	}
	if err := out.Enqueue(context.Background(), unit(1)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen before Open, got %v", err)
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Push(ctx, unit(audio.Sample(i))); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}

	for i := 0; i < 3; i++ {
		buf, err := q.Next(0)
		if err != nil || buf == nil {
			t.Fatalf("next %d: buf=%v err=%v", i, buf, err)
		}
		if buf.Samples[0] != audio.Sample(i) {
			t.Errorf("expected buffer %d, got %v", i, buf.Samples[0])
		}
	}

	buf, err := q.Next(0)
	if buf != nil || err != nil {
		t.Errorf("expected empty result from open empty queue, got %v %v", buf, err)
	}
}

func TestQueuePushBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.Push(context.Background(), unit(1)); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := q.Push(ctx, unit(2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected push to block until deadline, got %v", err)
	}

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(context.Background(), unit(3)) }()

	if _, err := q.Next(0); err != nil {
		t.Fatalf("next failed: %v", err)
	}
	select {
	case err := <-pushed:
		if err != nil {
			t.Errorf("push after room freed failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("push did not unblock after Next")
	}
}

func TestQueueCloseWrite(t *testing.T) {
	q := NewQueue(2)
	q.Push(context.Background(), unit(1))
	q.CloseWrite()

	if err := q.Push(context.Background(), unit(2)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after CloseWrite, got %v", err)
	}

	buf, err := q.Next(time.Millisecond)
	if err != nil || buf == nil {
		t.Fatalf("expected queued buffer after CloseWrite, got %v %v", buf, err)
	}
	if _, err := q.Next(time.Millisecond); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestQueueCloseUnblocksPush(t *testing.T) {
	q := NewQueue(1)
	q.Push(context.Background(), unit(1))

	done := make(chan error, 1)
	go func() { done <- q.Push(context.Background(), unit(2)) }()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Push")
	}
}

func TestReaderPadsUnderrunWithSilence(t *testing.T) {
	q := NewQueue(4)
	r := newReader(q, 0)
	q.Push(context.Background(), unit(0.5))

	p := make([]byte, 12)
	n, err := r.Read(p)
	if err != nil || n != 12 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}

	if got := math.Float32frombits(binary.LittleEndian.Uint32(p)); got != 0.5 {
		t.Errorf("expected first sample 0.5, got %v", got)
	}
	for i := 1; i < 3; i++ {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:])); got != 0 {
			t.Errorf("expected silence at %d, got %v", i, got)
		}
	}

	// Two reads during one dry spell count once
	r.Read(p)
	if stats := r.stats(); stats.Underruns != 1 {
		t.Errorf("expected 1 underrun, got %d", stats.Underruns)
	}
}

func TestReaderEndsAfterCloseWrite(t *testing.T) {
	q := NewQueue(4)
	r := newReader(q, 0)
	q.Push(context.Background(), unit(0.1, 0.2))
	q.CloseWrite()

	p := make([]byte, 16)
	n, err := r.Read(p)
	if err != nil || n != 8 {
		t.Fatalf("expected 8 bytes without padding, got n=%d err=%v", n, err)
	}

	if _, err := r.Read(p); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if stats := r.stats(); stats.Played != 1 {
		t.Errorf("expected 1 played buffer, got %d", stats.Played)
	}
}

func TestReaderVolume(t *testing.T) {
	tests := []struct {
		name     string
		volume   int
		muted    bool
		input    audio.Sample
		expected audio.Sample
	}{
		{"full volume", 100, false, 0.5, 0.5},
		{"half volume", 50, false, 0.5, 0.25},
		{"muted", 100, true, 0.5, 0},
		{"clamped volume", 150, false, 0.5, 0.5},
		{"zero volume", -10, false, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(1)
			r := newReader(q, 0)
			r.setVolume(tt.volume)
			r.setMuted(tt.muted)
			q.Push(context.Background(), unit(tt.input))

			dst := make([]audio.Sample, 1)
			if _, err := r.pull(dst); err != nil {
				t.Fatalf("pull failed: %v", err)
			}
			if math.Abs(float64(dst[0]-tt.expected)) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.expected, dst[0])
			}
		})
	}
}

func TestGetVolumeMultiplier(t *testing.T) {
	if getVolumeMultiplier(100, false) != 1.0 {
		t.Error("expected multiplier 1.0 at full volume")
	}
	if getVolumeMultiplier(80, true) != 0.0 {
		t.Error("expected multiplier 0 when muted")
	}
}

type tapRecorder struct {
	mu      sync.Mutex
	samples []audio.Sample
}

func (r *tapRecorder) record(samples []audio.Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, samples...)
	r.mu.Unlock()
}

func (r *tapRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestDiscardPlaysInOrderAfterResume(t *testing.T) {
	out := NewDiscard(4, false)
	defer out.Close()

	rec := &tapRecorder{}
	out.SetTap(rec.record)
	if err := out.Open(testFormat); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	out.Enqueue(ctx, unit(1, 2))
	out.Enqueue(ctx, unit(3))

	time.Sleep(30 * time.Millisecond)
	if rec.len() != 0 {
		t.Fatal("paused output consumed samples")
	}
	if out.QueueLength() != 2 {
		t.Errorf("expected 2 queued buffers, got %d", out.QueueLength())
	}

	out.Resume()
	out.Enqueue(ctx, unit(4, 5))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := out.WaitDrained(drainCtx); err != nil {
		t.Fatalf("WaitDrained failed: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.samples) != 5 {
		t.Fatalf("expected 5 samples, got %v", rec.samples)
	}
	for i, s := range rec.samples {
		if s != audio.Sample(i+1) {
			t.Errorf("sample %d: expected %d, got %v", i, i+1, s)
		}
	}

	stats := out.Stats()
	if stats.Enqueued != 3 || stats.Played != 3 {
		t.Errorf("expected 3 enqueued and played, got %+v", stats)
	}
}

func TestDiscardRealtimePacing(t *testing.T) {
	out := NewDiscard(4, true)
	defer out.Close()

	if err := out.Open(testFormat); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// 400 samples at 8 kHz mono is 50ms
	out.Enqueue(context.Background(), audio.NewBuffer(testFormat, make([]audio.Sample, 400)))
	out.Resume()

	start := time.Now()
	if err := out.WaitDrained(context.Background()); err != nil {
		t.Fatalf("WaitDrained failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected real-time pacing, drained in %v", elapsed)
	}
}

func TestDiscardFormatMismatch(t *testing.T) {
	out := NewDiscard(2, false)
	defer out.Close()

	if err := out.Open(testFormat); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	stereo := audio.NewBuffer(audio.Format{SampleRate: 8000, Channels: 2}, []audio.Sample{0, 0})
	if err := out.Enqueue(context.Background(), stereo); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch, got %v", err)
	}

	if err := out.Open(audio.Format{SampleRate: 48000, Channels: 1}); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch on reopen, got %v", err)
	}
}

func TestDiscardWaitDrainedHonorsContext(t *testing.T) {
	out := NewDiscard(2, false)
	defer out.Close()
	out.Open(testFormat)
	out.Enqueue(context.Background(), unit(1))

	// Still paused, so the queue never drains
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := out.WaitDrained(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDiscardEnqueueAfterClose(t *testing.T) {
	out := NewDiscard(2, false)
	out.Open(testFormat)
	out.Close()

	if err := out.Enqueue(context.Background(), unit(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
