// ABOUTME: PCM wire encoder
// ABOUTME: Serializes float samples to fixed-width floating point bytes
package encode

import (
	"fmt"
	"math"
	"slices"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// PCM encodes samples in a fixed wire encoding
type PCM struct {
	enc audio.Encoding
}

// NewPCM creates a new PCM encoder
func NewPCM(enc audio.Encoding) (*PCM, error) {
	if err := enc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoding for PCM encoder: %w", err)
	}
	return &PCM{enc: enc}, nil
}

// Encoding returns the wire encoding used by the encoder
func (e *PCM) Encoding() audio.Encoding {
	return e.enc
}

// Encode converts samples to wire bytes
func (e *PCM) Encode(samples []audio.Sample) []byte {
	return e.AppendEncode(make([]byte, 0, len(samples)*e.enc.Width), samples)
}

// AppendEncode appends the wire bytes for samples to dst and returns the extended slice
func (e *PCM) AppendEncode(dst []byte, samples []audio.Sample) []byte {
	width := e.enc.Width
	off := len(dst)
	dst = slices.Grow(dst, len(samples)*width)[:off+len(samples)*width]
	for _, s := range samples {
		if width == 8 {
			e.enc.Order.PutUint64(dst[off:], math.Float64bits(float64(s)))
		} else {
			e.enc.Order.PutUint32(dst[off:], math.Float32bits(s))
		}
		off += width
	}
	return dst
}
