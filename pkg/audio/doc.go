// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Sample, Encoding, Format and Buffer types
// Package audio provides the fundamental audio types shared by the streaming pipeline.
//
// This package defines core types used throughout pcmstream:
//   - Sample: one floating point PCM amplitude
//   - Encoding: how a Sample is laid out on the wire (byte order and width)
//   - Format: sample rate and channel count, agreed out of band
//   - Buffer: a playable unit of decoded samples, consumed by pulling
//
// Example:
//
//	format := audio.Format{SampleRate: 44100, Channels: 2}
//	unitBytes := format.BytesPerSecond(audio.BigEndianFloat32)
//
//	buf := audio.NewBuffer(format, samples)
//	n, err := buf.Read(dst)
package audio
