// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for sample serializers used by the frame producer
package encode

import "github.com/Sendspin/pcmstream/pkg/audio"

// Encoder serializes samples to wire bytes
type Encoder interface {
	// AppendEncode appends the encoded form of samples to dst
	AppendEncode(dst []byte, samples []audio.Sample) []byte

	// Encoding reports the wire encoding produced
	Encoding() audio.Encoding
}

var _ Encoder = (*PCM)(nil)
