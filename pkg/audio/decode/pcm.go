// ABOUTME: PCM wire decoder
// ABOUTME: Decodes fixed-width floating point bytes to samples, returning any partial tail
package decode

import (
	"fmt"
	"math"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// PCM decodes bytes in a fixed wire encoding
type PCM struct {
	enc audio.Encoding
}

// NewPCM creates a new PCM decoder
func NewPCM(enc audio.Encoding) (*PCM, error) {
	if err := enc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoding for PCM decoder: %w", err)
	}
	return &PCM{enc: enc}, nil
}

// Encoding returns the wire encoding read by the decoder
func (d *PCM) Encoding() audio.Encoding {
	return d.enc
}

// Decode converts every complete group of Width bytes to a sample, in order.
// The trailing incomplete group is returned as leftover; it aliases data.
func (d *PCM) Decode(data []byte) ([]audio.Sample, []byte) {
	width := d.enc.Width
	n := len(data) / width
	samples := make([]audio.Sample, n)
	for i := 0; i < n; i++ {
		b := data[i*width:]
		if width == 8 {
			samples[i] = audio.Sample(math.Float64frombits(d.enc.Order.Uint64(b)))
		} else {
			samples[i] = math.Float32frombits(d.enc.Order.Uint32(b))
		}
	}
	return samples, data[n*width:]
}
