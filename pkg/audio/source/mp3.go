// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 to 16-bit stereo and converts to float samples
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Sendspin/pcmstream/pkg/audio"
)

const mp3BlockBytes = 4096

// MP3 reads from an MP3 file
type MP3 struct {
	frameReader
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// OpenMP3 creates a new MP3 source
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &MP3{
		file:    f,
		decoder: decoder,
		// go-mp3 always outputs 16-bit little-endian stereo
		format: audio.Format{SampleRate: decoder.SampleRate(), Channels: 2},
		buf:    make([]byte, mp3BlockBytes),
	}
	s.next = s.decodeBlock

	slog.Info("loaded MP3", "file", filepath.Base(path), "format", s.format)
	return s, nil
}

func (s *MP3) decodeBlock() ([]audio.Sample, error) {
	n, err := io.ReadFull(s.decoder, s.buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode MP3 frame: %w", err)
	}

	samples := make([]audio.Sample, n/2)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(s.buf[i*2:])))
	}
	return samples, err
}

func (s *MP3) Format() audio.Format { return s.format }

func (s *MP3) Close() error {
	return s.file.Close()
}
