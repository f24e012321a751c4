// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Handles both upsampling and downsampling. The resampler is stateful:
// feed consecutive blocks of one stream through the same instance.
//
// Example:
//
//	r := resample.New(48000, 44100, 2)
//	out = r.Resample(out[:0], block)
package resample
