// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Interpolates interleaved float samples and keeps continuity across calls
package resample

import "github.com/Sendspin/pcmstream/pkg/audio"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64        // in input frames, relative to the first buffered frame
	lastFrame  []audio.Sample // last input frame of the previous call
	hasLast    bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]audio.Sample, channels),
	}
}

// Ratio returns input rate divided by output rate
func (r *Resampler) Ratio() float64 { return r.ratio }

// Resample appends the resampled form of input to dst.
// input and the returned samples are interleaved and must hold whole frames.
func (r *Resampler) Resample(dst, input []audio.Sample) []audio.Sample {
	if r.inputRate == r.outputRate {
		return append(dst, input...)
	}

	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}

	// The previous call's last frame sits in front of this call's input
	// so interpolation never restarts at a chunk boundary.
	offset := 0
	if r.hasLast {
		offset = 1
	}
	frames := inputFrames + offset

	at := func(frame, ch int) audio.Sample {
		if frame < offset {
			return r.lastFrame[ch]
		}
		return input[(frame-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx >= frames-1 {
			break
		}
		frac := audio.Sample(r.position - float64(idx))
		for ch := 0; ch < r.channels; ch++ {
			s1 := at(idx, ch)
			s2 := at(idx+1, ch)
			dst = append(dst, s1*(1-frac)+s2*frac)
		}
		r.position += r.ratio
	}

	// The last frame becomes frame 0 of the next call
	copy(r.lastFrame, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.hasLast = true
	r.position -= float64(frames - 1)

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.hasLast = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
