// ABOUTME: Frame producer for the server side of a stream
// ABOUTME: Encodes source samples into a lazy sequence of bounded byte chunks
package stream

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/encode"
	"github.com/Sendspin/pcmstream/pkg/audio/source"
)

const (
	maxReadSamples = 4096
	maxZeroReads   = 100
)

// Producer turns a sample source into wire chunks
type Producer struct {
	src       source.Source
	enc       encode.Encoder
	chunkSize int
	consumed  atomic.Bool
}

// NewProducer creates a producer yielding a chunk each time more than chunkSize bytes are encoded
func NewProducer(src source.Source, enc encode.Encoder, chunkSize int) (*Producer, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrChunkSize, chunkSize)
	}
	return &Producer{src: src, enc: enc, chunkSize: chunkSize}, nil
}

// Chunks returns the stream as a lazy sequence. Samples are pulled only as
// the consumer asks for chunks. The sequence ends after the final partial
// chunk, on a source error, or when ctx is done. It can be ranged over once.
func (p *Producer) Chunks(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if !p.consumed.CompareAndSwap(false, true) {
			yield(nil, ErrProducerConsumed)
			return
		}

		width := p.enc.Encoding().Width
		channels := max(p.src.Format().Channels, 1)
		readSize := max(maxReadSamples-maxReadSamples%channels, channels)
		samples := make([]audio.Sample, readSize)
		pending := p.newChunk(width)

		start := time.Now()
		chunkStart := start
		chunks, total := 0, 0
		zeroReads := 0

		emit := func(chunk []byte) bool {
			chunks++
			total += len(chunk)
			slog.Debug("chunk produced", "chunk", chunks, "bytes", len(chunk), "elapsed", time.Since(chunkStart))
			chunkStart = time.Now()
			return yield(chunk, nil)
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			// Pull just enough whole frames to cross the chunk size
			need := (p.chunkSize-len(pending))/width + 1
			need = (need + channels - 1) / channels * channels
			need = min(need, readSize)

			n, err := p.src.Read(samples[:need])
			pending = p.enc.AppendEncode(pending, samples[:n])

			if len(pending) > p.chunkSize {
				if !emit(pending) {
					return
				}
				pending = p.newChunk(width)
			}

			if err == io.EOF {
				if len(pending) > 0 && !emit(pending) {
					return
				}
				slog.Info("stream produced", "chunks", chunks, "bytes", total, "elapsed", time.Since(start))
				return
			}
			if err != nil {
				yield(nil, &SourceError{Err: err})
				return
			}

			if n == 0 {
				zeroReads++
				if zeroReads >= maxZeroReads {
					yield(nil, &SourceError{Err: io.ErrNoProgress})
					return
				}
			} else {
				zeroReads = 0
			}
		}
	}
}

func (p *Producer) newChunk(width int) []byte {
	return make([]byte, 0, p.chunkSize+maxReadSamples*width)
}
