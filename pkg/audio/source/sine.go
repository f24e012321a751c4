// ABOUTME: Sine wave generator source
// ABOUTME: Produces a fixed-frequency tone on every channel, optionally time limited
package source

import (
	"io"
	"math"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// DefaultAmplitude keeps the generated tone well below full scale
const DefaultAmplitude = 0.5

// Sine generates a sine wave
type Sine struct {
	format    audio.Format
	frequency float64
	amplitude float64
	frame     int64
	frames    int64 // total frames to produce, 0 for unlimited
}

// NewSine creates a sine generator. A zero duration never ends.
func NewSine(format audio.Format, frequency float64, duration time.Duration) *Sine {
	var frames int64
	if duration > 0 {
		frames = int64(format.SampleRate) * int64(duration) / int64(time.Second)
		if frames == 0 {
			frames = 1
		}
	}
	return &Sine{
		format:    format,
		frequency: frequency,
		amplitude: DefaultAmplitude,
		frames:    frames,
	}
}

// Read fills dst with whole frames; a dst shorter than one frame reads nothing
func (s *Sine) Read(dst []audio.Sample) (int, error) {
	channels := s.format.Channels
	n := 0
	for n+channels <= len(dst) {
		if s.frames > 0 && s.frame >= s.frames {
			break
		}
		t := float64(s.frame) / float64(s.format.SampleRate)
		v := audio.Sample(s.amplitude * math.Sin(2*math.Pi*s.frequency*t))
		for ch := 0; ch < channels; ch++ {
			dst[n+ch] = v
		}
		n += channels
		s.frame++
	}

	if n == 0 && s.frames > 0 && s.frame >= s.frames {
		return 0, io.EOF
	}
	return n, nil
}

func (s *Sine) Format() audio.Format { return s.format }

func (s *Sine) Close() error { return nil }
