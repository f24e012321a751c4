// ABOUTME: Test doubles for the streaming pipeline
// ABOUTME: Provides a recording output, scripted chunk sources and sample sources
package stream

import (
	"context"
	"io"
	"sync"

	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/decode"
	"github.com/Sendspin/pcmstream/pkg/audio/output"
)

var testFormat = audio.Format{SampleRate: 8000, Channels: 1}

func testDecoder() *decode.PCM {
	dec, err := decode.NewPCM(audio.BigEndianFloat32)
	if err != nil {
		panic(err)
	}
	return dec
}

// recordingOutput keeps every unit and never plays anything
type recordingOutput struct {
	mu         sync.Mutex
	units      []*audio.Buffer
	pausedLog  []bool // paused state when each unit was enqueued
	resumedAt  int    // units enqueued when first resumed, -1 before
	paused     bool
	pauses     int
	resumes    int
	capacity   int
	enqueueErr error
	drained    bool
}

func newRecordingOutput(capacity int) *recordingOutput {
	return &recordingOutput{capacity: capacity, resumedAt: -1}
}

func (o *recordingOutput) Open(audio.Format) error { return nil }

func (o *recordingOutput) Enqueue(_ context.Context, buf *audio.Buffer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enqueueErr != nil {
		return o.enqueueErr
	}
	o.units = append(o.units, buf)
	o.pausedLog = append(o.pausedLog, o.paused)
	return nil
}

func (o *recordingOutput) Pause() {
	o.mu.Lock()
	o.paused = true
	o.pauses++
	o.mu.Unlock()
}

func (o *recordingOutput) Resume() {
	o.mu.Lock()
	if o.resumedAt < 0 {
		o.resumedAt = len(o.units)
	}
	o.paused = false
	o.resumes++
	o.mu.Unlock()
}

func (o *recordingOutput) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *recordingOutput) QueueLength() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.units)
}

func (o *recordingOutput) QueueCapacity() int { return o.capacity }

func (o *recordingOutput) WaitDrained(context.Context) error {
	o.mu.Lock()
	o.drained = true
	o.mu.Unlock()
	return nil
}

func (o *recordingOutput) Stats() output.Stats { return output.Stats{} }
func (o *recordingOutput) SetVolume(int)       {}
func (o *recordingOutput) SetMuted(bool)       {}
func (o *recordingOutput) Close() error        { return nil }

func (o *recordingOutput) samples() []audio.Sample {
	o.mu.Lock()
	defer o.mu.Unlock()
	var all []audio.Sample
	for _, u := range o.units {
		all = append(all, u.Samples...)
	}
	return all
}

// sliceSource replays fixed chunks, then ends with err (io.EOF when nil)
type sliceSource struct {
	chunks [][]byte
	err    error
	closed bool
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// splitChunks cuts data into chunks with sizes cycling through sizes
func splitChunks(data []byte, sizes ...int) [][]byte {
	var chunks [][]byte
	for i := 0; len(data) > 0; i++ {
		n := min(sizes[i%len(sizes)], len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// rampSource yields 0, 1, 2, ... up to n samples
type rampSource struct {
	format audio.Format
	next   int
	n      int
	reads  int
}

func (s *rampSource) Read(dst []audio.Sample) (int, error) {
	s.reads++
	if s.next >= s.n {
		return 0, io.EOF
	}
	count := min(len(dst), s.n-s.next)
	for i := 0; i < count; i++ {
		dst[i] = audio.Sample(s.next + i)
	}
	s.next += count
	return count, nil
}

func (s *rampSource) Format() audio.Format { return s.format }
func (s *rampSource) Close() error         { return nil }

// scriptedSource returns fixed results from Read
type scriptedSource struct {
	n   int
	err error
}

func (s *scriptedSource) Read(dst []audio.Sample) (int, error) {
	n := min(s.n, len(dst))
	return n, s.err
}

func (s *scriptedSource) Format() audio.Format { return testFormat }
func (s *scriptedSource) Close() error         { return nil }
