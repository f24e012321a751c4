// ABOUTME: Pull side of an output queue shared by the playback backends
// ABOUTME: Reads buffers in order, applies volume and tracks played units and underruns
package output

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// reader pulls samples out of a Queue in FIFO order
type reader struct {
	queue *Queue
	wait  time.Duration

	mu        sync.Mutex
	cur       *audio.Buffer
	volume    int
	muted     bool
	played    int
	underruns int
	starved   bool
	eof       bool
	scratch   []audio.Sample
}

func newReader(queue *Queue, wait time.Duration) *reader {
	return &reader{queue: queue, wait: wait, volume: 100}
}

// pull fills dst with queued samples, scaled by the current volume. It
// returns fewer samples than requested when the queue runs dry, and io.EOF
// once the input has ended and every buffer was read.
func (r *reader) pull(dst []audio.Sample) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filled := 0
	for filled < len(dst) && !r.eof {
		if r.cur == nil || r.cur.Remaining() == 0 {
			if r.cur != nil {
				r.played++
				r.cur = nil
			}
			buf, err := r.queue.Next(r.wait)
			if err == io.EOF {
				r.eof = true
				break
			}
			if buf == nil {
				// Count each dry spell once
				if !r.starved {
					r.underruns++
					r.starved = true
				}
				break
			}
			r.starved = false
			r.cur = buf
		}
		n, _ := r.cur.Read(dst[filled:])
		filled += n
	}

	multiplier := float32(getVolumeMultiplier(r.volume, r.muted))
	if multiplier != 1 {
		for i := range dst[:filled] {
			dst[i] = audio.Clamp(dst[i] * multiplier)
		}
	}

	if filled == 0 && r.eof {
		return 0, io.EOF
	}
	return filled, nil
}

// Read implements io.Reader for devices consuming float32 little-endian
// bytes. An empty queue is padded with silence so the device keeps running.
func (r *reader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if cap(r.scratch) < n {
		r.scratch = make([]audio.Sample, n)
	}
	samples := r.scratch[:n]

	filled, err := r.pull(samples)
	if err == io.EOF {
		return 0, io.EOF
	}

	if !r.ended() {
		for i := filled; i < n; i++ {
			samples[i] = 0
		}
		filled = n
	}

	for i, s := range samples[:filled] {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return filled * 4, nil
}

func (r *reader) ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof
}

// resetStarved forgets a dry spell that happened while paused
func (r *reader) resetStarved() {
	r.mu.Lock()
	r.starved = false
	r.mu.Unlock()
}

func (r *reader) setVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	r.mu.Lock()
	r.volume = volume
	r.mu.Unlock()
}

func (r *reader) setMuted(muted bool) {
	r.mu.Lock()
	r.muted = muted
	r.mu.Unlock()
}

func (r *reader) stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Enqueued:    r.queue.Pushed(),
		Played:      r.played,
		Underruns:   r.underruns,
		QueueLength: r.queue.Len(),
		Volume:      r.volume,
		Muted:       r.muted,
	}
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
