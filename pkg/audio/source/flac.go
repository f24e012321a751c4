// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames and interleaves their subframes as float samples
package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mewkiz/flac"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

// FLAC reads from a FLAC file
type FLAC struct {
	frameReader
	file     *os.File
	stream   *flac.Stream
	format   audio.Format
	bitDepth int
}

// OpenFLAC creates a new FLAC source
func OpenFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	s := &FLAC{
		file:   f,
		stream: stream,
		format: audio.Format{
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
		},
		bitDepth: int(info.BitsPerSample),
	}
	s.next = s.decodeFrame

	slog.Info("loaded FLAC", "file", filepath.Base(path), "format", s.format, "bitDepth", s.bitDepth)
	return s, nil
}

func (s *FLAC) decodeFrame() ([]audio.Sample, error) {
	frame, err := s.stream.ParseNext()
	if err != nil {
		// io.EOF passes through unwrapped
		return nil, err
	}

	channels := s.format.Channels
	blockSize := int(frame.BlockSize)
	samples := make([]audio.Sample, blockSize*channels)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = audio.SampleFromInt(frame.Subframes[ch].Samples[i], s.bitDepth)
		}
	}
	return samples, nil
}

func (s *FLAC) Format() audio.Format { return s.format }

func (s *FLAC) Close() error {
	return s.file.Close()
}
