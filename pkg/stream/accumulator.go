// ABOUTME: Chunk accumulator for incoming stream bytes
// ABOUTME: Buffers raw bytes until a threshold and decodes them into playable units
package stream

import (
	"fmt"

	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/decode"
)

// Accumulator collects raw bytes into playable units. It is owned by a
// single ingest loop and does no locking.
type Accumulator struct {
	format    audio.Format
	stream    *decode.Stream
	threshold int
	buf       []byte
}

// NewAccumulator creates an accumulator emitting a unit once threshold bytes are buffered
func NewAccumulator(format audio.Format, decoder decode.Decoder, threshold int) (*Accumulator, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	width := decoder.Encoding().Width
	if threshold < width {
		return nil, fmt.Errorf("%w: %d bytes, sample width %d", ErrThresholdTooSmall, threshold, width)
	}
	return &Accumulator{
		format:    format,
		stream:    decode.NewStream(decoder),
		threshold: threshold,
		buf:       make([]byte, 0, threshold+threshold/2),
	}, nil
}

// Push appends a chunk
func (a *Accumulator) Push(chunk []byte) {
	a.buf = append(a.buf, chunk...)
}

// Ready reports whether a full unit is buffered
func (a *Accumulator) Ready() bool {
	return a.Buffered() >= a.threshold
}

// Buffered returns the number of buffered bytes, including a held back partial sample
func (a *Accumulator) Buffered() int {
	return len(a.buf) + a.stream.Pending()
}

// Threshold returns the unit size in bytes
func (a *Accumulator) Threshold() int {
	return a.threshold
}

// Drain decodes every complete sample buffered into one unit. A trailing
// partial sample stays buffered for the next chunk to complete.
func (a *Accumulator) Drain() *audio.Buffer {
	samples := a.stream.Write(a.buf)
	a.buf = a.buf[:0]
	return audio.NewBuffer(a.format, samples)
}

// Flush decodes what is left at the end of the stream. It returns the final
// unit, which may be empty, and the number of trailing bytes too short to
// form a sample, which are dropped.
func (a *Accumulator) Flush() (*audio.Buffer, int) {
	samples := a.stream.Write(a.buf)
	a.buf = a.buf[:0]
	return audio.NewBuffer(a.format, samples), a.stream.Reset()
}
