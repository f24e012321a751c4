// ABOUTME: Source interface and shared frame-based reader
// ABOUTME: Opens audio files by extension
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Source provides interleaved samples
type Source interface {
	// Read fills dst with the next samples. It returns io.EOF at the end of the signal.
	Read(dst []audio.Sample) (int, error)
	// Format returns the sample rate and channel count of the samples read
	Format() audio.Format
	// Close releases the underlying file or decoder
	Close() error
}

// frameReader adapts a decoder that produces whole blocks to Read
type frameReader struct {
	next    func() ([]audio.Sample, error)
	pending []audio.Sample
	done    bool
}

func (r *frameReader) Read(dst []audio.Sample) (int, error) {
	for len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		block, err := r.next()
		r.pending = block
		if err == io.EOF {
			r.done = true
		} else if err != nil {
			return 0, err
		}
	}

	n := copy(dst, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Open creates a source for an audio file, picking the decoder by extension
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return OpenMP3(path)
	case ".flac":
		return OpenFLAC(path)
	case ".wav":
		return OpenWAV(path)
	default:
		return nil, fmt.Errorf("%w: %q (supported: .mp3, .flac, .wav)", ErrUnsupportedFormat, ext)
	}
}

// ReadAll drains a source. Intended for tests and small files.
func ReadAll(src Source) ([]audio.Sample, error) {
	var out []audio.Sample
	buf := make([]audio.Sample, 4096)
	for {
		n, err := src.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
