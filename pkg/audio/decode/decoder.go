// ABOUTME: Decoder interface and streaming wrapper
// ABOUTME: Carries partial samples across chunk boundaries
package decode

import "github.com/Sendspin/pcmstream/pkg/audio"

// Decoder decodes wire bytes to samples
type Decoder interface {
	// Decode returns the complete samples in data and the unconsumed tail
	Decode(data []byte) ([]audio.Sample, []byte)

	// Encoding reports the wire encoding consumed
	Encoding() audio.Encoding
}

var _ Decoder = (*PCM)(nil)

// Stream decodes a sequence of chunks, prepending the leftover of each
// chunk to the next one.
type Stream struct {
	dec     Decoder
	partial []byte
}

// NewStream wraps a decoder
func NewStream(dec Decoder) *Stream {
	return &Stream{dec: dec}
}

// Write decodes the complete samples available after appending chunk
func (s *Stream) Write(chunk []byte) []audio.Sample {
	data := chunk
	if len(s.partial) > 0 {
		data = append(s.partial, chunk...)
	}
	samples, rest := s.dec.Decode(data)
	s.partial = append(s.partial[:0:0], rest...)
	return samples
}

// Pending returns the number of bytes held back as an incomplete sample
func (s *Stream) Pending() int {
	return len(s.partial)
}

// Reset drops the held back bytes and returns how many there were
func (s *Stream) Reset() int {
	n := len(s.partial)
	s.partial = nil
	return n
}
