// ABOUTME: Audio type definitions
// ABOUTME: Defines samples, wire encodings, stream formats and playable buffers
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Sample is a single floating point amplitude, nominally in [-1, 1]
type Sample = float32

var (
	ErrInvalidFormat    = errors.New("invalid audio format")
	ErrUnsupportedWidth = errors.New("unsupported sample width")
)

// Encoding describes how samples are laid out on the wire
type Encoding struct {
	Order binary.ByteOrder
	Width int // bytes per sample: 4 (float32) or 8 (float64)
}

// BigEndianFloat32 is the default wire encoding
var BigEndianFloat32 = Encoding{Order: binary.BigEndian, Width: 4}

// Validate reports whether the encoding can be used by the codec
func (e Encoding) Validate() error {
	if e.Order == nil {
		return fmt.Errorf("%w: byte order not set", ErrUnsupportedWidth)
	}
	if e.Width != 4 && e.Width != 8 {
		return fmt.Errorf("%w: %d (supported: 4, 8)", ErrUnsupportedWidth, e.Width)
	}
	return nil
}

// String returns the short name used in flags and discovery records, e.g. "f32be"
func (e Encoding) String() string {
	order := "be"
	if e.Order == binary.LittleEndian {
		order = "le"
	}
	return fmt.Sprintf("f%d%s", e.Width*8, order)
}

// ParseEncoding parses names produced by Encoding.String
func ParseEncoding(s string) (Encoding, error) {
	var enc Encoding
	switch strings.ToLower(s) {
	case "f32be":
		enc = Encoding{Order: binary.BigEndian, Width: 4}
	case "f32le":
		enc = Encoding{Order: binary.LittleEndian, Width: 4}
	case "f64be":
		enc = Encoding{Order: binary.BigEndian, Width: 8}
	case "f64le":
		enc = Encoding{Order: binary.LittleEndian, Width: 8}
	default:
		return enc, fmt.Errorf("unknown encoding %q (supported: f32be, f32le, f64be, f64le)", s)
	}
	return enc, nil
}

// Format describes a PCM stream. Samples are interleaved by channel.
type Format struct {
	SampleRate int
	Channels   int
}

// Validate checks that both fields are positive
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// BytesPerSecond returns the wire byte rate of the stream in the given encoding
func (f Format) BytesPerSecond(enc Encoding) int {
	return f.SampleRate * f.Channels * enc.Width
}

// BytesIn returns the number of wire bytes covering d, rounded down to whole frames
func (f Format) BytesIn(d time.Duration, enc Encoding) int {
	frames := int64(f.SampleRate) * int64(d) / int64(time.Second)
	return int(frames) * f.Channels * enc.Width
}

// Duration returns the playback time of n interleaved samples
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := int64(n) / int64(f.Channels)
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Buffer is a playable unit: a self-describing block of decoded samples.
// It is consumed once, by pulling samples with Read.
type Buffer struct {
	Format  Format
	Samples []Sample

	pos int
}

// NewBuffer wraps samples without copying them
func NewBuffer(format Format, samples []Sample) *Buffer {
	return &Buffer{Format: format, Samples: samples}
}

// Len returns the total number of samples in the buffer
func (b *Buffer) Len() int { return len(b.Samples) }

// Remaining returns the number of samples not yet read
func (b *Buffer) Remaining() int { return len(b.Samples) - b.pos }

// Duration returns the playback time of the whole buffer
func (b *Buffer) Duration() time.Duration {
	return b.Format.Duration(len(b.Samples))
}

// Read copies the next samples into dst. It returns io.EOF once every
// sample has been read.
func (b *Buffer) Read(dst []Sample) (int, error) {
	if b.pos >= len(b.Samples) {
		return 0, io.EOF
	}
	n := copy(dst, b.Samples[b.pos:])
	b.pos += n
	return n, nil
}

// SampleFromInt16 converts a signed 16-bit sample to the float range
func SampleFromInt16(sample int16) Sample {
	return Sample(sample) / 32768
}

// SampleFromInt converts a signed integer sample of the given bit depth to the float range
func SampleFromInt(sample int32, bitDepth int) Sample {
	if bitDepth <= 1 || bitDepth > 32 {
		return 0
	}
	return Sample(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// Clamp limits a sample to [-1, 1]
func Clamp(s Sample) Sample {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
