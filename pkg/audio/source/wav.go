// ABOUTME: WAV file source
// ABOUTME: Streams integer PCM from a WAV file in blocks and scales it to float samples
package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

const wavBlockSamples = 4096

// WAV reads from a WAV file
type WAV struct {
	frameReader
	file    *os.File
	decoder *wav.Decoder
	format  audio.Format
	intBuf  *goaudio.IntBuffer
	maxVal  float64
}

// OpenWAV creates a new WAV source
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, errors.New("failed to decode WAV: invalid file")
	}

	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	format := audio.Format{SampleRate: int(decoder.SampleRate), Channels: int(decoder.NumChans)}
	if err := format.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	blockSamples := wavBlockSamples - wavBlockSamples%format.Channels
	s := &WAV{
		file:    f,
		decoder: decoder,
		format:  format,
		intBuf: &goaudio.IntBuffer{
			Data: make([]int, blockSamples),
			Format: &goaudio.Format{
				NumChannels: format.Channels,
				SampleRate:  format.SampleRate,
			},
		},
		maxVal: float64(goaudio.IntMaxSignedValue(int(decoder.BitDepth))),
	}
	s.next = s.decodeBlock

	slog.Info("loaded WAV", "file", filepath.Base(path), "format", format, "bitDepth", decoder.BitDepth)
	return s, nil
}

func (s *WAV) decodeBlock() ([]audio.Sample, error) {
	n, err := s.decoder.PCMBuffer(s.intBuf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	samples := make([]audio.Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = audio.Sample(float64(s.intBuf.Data[i]) / s.maxVal)
	}
	return samples, nil
}

func (s *WAV) Format() audio.Format { return s.format }

func (s *WAV) Close() error {
	return s.file.Close()
}
