// ABOUTME: Tests for the chunk accumulator
// ABOUTME: Tests threshold emission, partial samples and end-of-stream flushing
package stream

import (
	"errors"
	"testing"

	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/encode"
)

func TestNewAccumulatorRejectsSmallThreshold(t *testing.T) {
	_, err := NewAccumulator(testFormat, testDecoder(), 3)
	if !errors.Is(err, ErrThresholdTooSmall) {
		t.Errorf("expected ErrThresholdTooSmall, got %v", err)
	}

	_, err = NewAccumulator(audio.Format{}, testDecoder(), 8)
	if !errors.Is(err, audio.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestAccumulatorThresholdByteAtATime(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
	}{
		{"aligned", 12},
		{"one sample", 4},
		{"unaligned", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := NewAccumulator(testFormat, testDecoder(), tt.threshold)
			if err != nil {
				t.Fatalf("NewAccumulator failed: %v", err)
			}

			data := make([]byte, 100)
			units := 0
			for i := range data {
				acc.Push(data[i : i+1])

				if acc.Ready() {
					if acc.Buffered() != tt.threshold {
						t.Fatalf("byte %d: ready with %d bytes buffered, threshold %d", i, acc.Buffered(), tt.threshold)
					}
					unit := acc.Drain()
					if unit.Len() == 0 {
						t.Fatalf("byte %d: drained an empty unit", i)
					}
					if acc.Buffered() != tt.threshold%4 {
						t.Errorf("byte %d: expected %d bytes kept after drain, got %d", i, tt.threshold%4, acc.Buffered())
					}
					units++
				} else if acc.Buffered() >= tt.threshold {
					t.Fatalf("byte %d: %d bytes buffered but not ready", i, acc.Buffered())
				}
			}
			if units == 0 {
				t.Error("expected at least one unit")
			}
		})
	}
}

func TestAccumulatorDrainKeepsPartialSample(t *testing.T) {
	enc, _ := encode.NewPCM(audio.BigEndianFloat32)
	data := enc.Encode([]audio.Sample{0.5, -0.5, 0.25})

	acc, _ := NewAccumulator(testFormat, testDecoder(), 6)
	acc.Push(data[:6])

	unit := acc.Drain()
	if unit.Len() != 1 || unit.Samples[0] != 0.5 {
		t.Fatalf("expected one sample 0.5, got %v", unit.Samples)
	}

	acc.Push(data[6:])
	unit = acc.Drain()
	if unit.Len() != 2 || unit.Samples[0] != -0.5 || unit.Samples[1] != 0.25 {
		t.Fatalf("expected [-0.5 0.25], got %v", unit.Samples)
	}
	if unit.Format != testFormat {
		t.Errorf("expected unit format %v, got %v", testFormat, unit.Format)
	}
}

func TestAccumulatorFlush(t *testing.T) {
	acc, _ := NewAccumulator(testFormat, testDecoder(), 16)
	acc.Push(make([]byte, 10))

	unit, discarded := acc.Flush()
	if unit.Len() != 2 {
		t.Errorf("expected 2 samples, got %d", unit.Len())
	}
	if discarded != 2 {
		t.Errorf("expected 2 discarded bytes, got %d", discarded)
	}
	if acc.Buffered() != 0 {
		t.Errorf("expected empty accumulator after flush, got %d", acc.Buffered())
	}

	unit, discarded = acc.Flush()
	if unit.Len() != 0 || discarded != 0 {
		t.Errorf("expected empty flush, got %d samples and %d bytes", unit.Len(), discarded)
	}
}
