// ABOUTME: Tests for audio types
// ABOUTME: Tests formats, encodings, buffers and sample conversion functions
package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"stereo 44.1k", Format{SampleRate: 44100, Channels: 2}, false},
		{"mono 48k", Format{SampleRate: 48000, Channels: 1}, false},
		{"zero rate", Format{SampleRate: 0, Channels: 2}, true},
		{"zero channels", Format{SampleRate: 48000, Channels: 0}, true},
		{"negative rate", Format{SampleRate: -1, Channels: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFormat) {
					t.Errorf("expected ErrInvalidFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFormatSizes(t *testing.T) {
	format := Format{SampleRate: 44100, Channels: 2}

	if got := format.BytesPerSecond(BigEndianFloat32); got != 44100*8 {
		t.Errorf("expected %d bytes per second, got %d", 44100*8, got)
	}

	if got := format.BytesIn(500*time.Millisecond, BigEndianFloat32); got != 22050*8 {
		t.Errorf("expected %d bytes in 500ms, got %d", 22050*8, got)
	}

	if got := format.Duration(88200); got != time.Second {
		t.Errorf("expected 1s for 88200 samples, got %v", got)
	}

	if got := (Format{}).Duration(100); got != 0 {
		t.Errorf("expected 0 duration for empty format, got %v", got)
	}
}

func TestEncodingValidate(t *testing.T) {
	tests := []struct {
		name    string
		enc     Encoding
		wantErr bool
	}{
		{"f32be", BigEndianFloat32, false},
		{"f64le", Encoding{Order: binary.LittleEndian, Width: 8}, false},
		{"width 2", Encoding{Order: binary.BigEndian, Width: 2}, true},
		{"no order", Encoding{Width: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.enc.Validate()
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedWidth) {
				t.Errorf("expected ErrUnsupportedWidth, got %v", err)
			}
		})
	}
}

func TestParseEncodingRoundTrip(t *testing.T) {
	for _, name := range []string{"f32be", "f32le", "f64be", "f64le"} {
		enc, err := ParseEncoding(name)
		if err != nil {
			t.Fatalf("ParseEncoding(%q) failed: %v", name, err)
		}
		if enc.String() != name {
			t.Errorf("expected %q, got %q", name, enc.String())
		}
	}

	if _, err := ParseEncoding("s16le"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestBufferRead(t *testing.T) {
	buf := NewBuffer(Format{SampleRate: 8000, Channels: 1}, []Sample{0.1, 0.2, 0.3})

	dst := make([]Sample, 2)
	n, err := buf.Read(dst)
	if err != nil || n != 2 {
		t.Fatalf("first read: n=%d err=%v", n, err)
	}
	if buf.Remaining() != 1 {
		t.Errorf("expected 1 remaining, got %d", buf.Remaining())
	}

	n, err = buf.Read(dst)
	if err != nil || n != 1 || dst[0] != 0.3 {
		t.Fatalf("second read: n=%d err=%v dst=%v", n, err, dst)
	}

	if _, err := buf.Read(dst); err != io.EOF {
		t.Errorf("expected io.EOF after consuming buffer, got %v", err)
	}

	if buf.Len() != 3 {
		t.Errorf("Len should not change while reading, got %d", buf.Len())
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected Sample
	}{
		{"zero", 0, 0},
		{"half", 16384, 0.5},
		{"min", -32768, -1},
		{"negative half", -16384, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleFromInt16(tt.input); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSampleFromInt(t *testing.T) {
	if got := SampleFromInt(-8388608, 24); got != -1 {
		t.Errorf("expected -1 for 24-bit min, got %v", got)
	}
	if got := SampleFromInt(64, 8); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := SampleFromInt(1, 0); got != 0 {
		t.Errorf("expected 0 for invalid depth, got %v", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(1.5) != 1 || Clamp(-2) != -1 || Clamp(0.25) != 0.25 {
		t.Error("Clamp did not limit samples to [-1, 1]")
	}
}
