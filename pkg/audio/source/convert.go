// ABOUTME: Format conversion for sources
// ABOUTME: Remixes channels and resamples a source to an endpoint format
package source

import (
	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/resample"
)

const convertBlockFrames = 1024

// Convert adapts src to the target format. When the formats already match
// src is returned unchanged.
func Convert(src Source, target audio.Format) Source {
	from := src.Format()
	if from == target {
		return src
	}

	c := &converter{
		src:     src,
		from:    from,
		target:  target,
		in:      make([]audio.Sample, convertBlockFrames*from.Channels),
		resampl: resample.New(from.SampleRate, target.SampleRate, target.Channels),
	}
	c.next = c.convertBlock
	return c
}

type converter struct {
	frameReader
	src     Source
	from    audio.Format
	target  audio.Format
	in      []audio.Sample
	partial []audio.Sample // samples of an incomplete input frame
	resampl *resample.Resampler
}

func (c *converter) convertBlock() ([]audio.Sample, error) {
	n := copy(c.in, c.partial)
	read, err := c.src.Read(c.in[n:])
	n += read

	// Only whole frames are remixed; the rest waits for the next read
	whole := n - n%c.from.Channels
	c.partial = append(c.partial[:0], c.in[whole:n]...)

	mixed := remix(c.in[:whole], c.from.Channels, c.target.Channels)
	out := c.resampl.Resample(nil, mixed)
	return out, err
}

// remix maps interleaved frames from one channel count to another. Mono
// output averages the input channels; otherwise output channel i takes input
// channel i modulo the input count.
func remix(in []audio.Sample, from, to int) []audio.Sample {
	if from == to {
		return in
	}
	frames := len(in) / from
	out := make([]audio.Sample, frames*to)
	for f := 0; f < frames; f++ {
		frame := in[f*from : (f+1)*from]
		if to == 1 {
			var sum audio.Sample
			for _, s := range frame {
				sum += s
			}
			out[f] = sum / audio.Sample(from)
			continue
		}
		for ch := 0; ch < to; ch++ {
			out[f*to+ch] = frame[ch%from]
		}
	}
	return out
}

func (c *converter) Format() audio.Format { return c.target }

func (c *converter) Close() error { return c.src.Close() }
