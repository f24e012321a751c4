// ABOUTME: Sample source package for generators and file decoders
// ABOUTME: Provides the Source interface, a sine generator and MP3/FLAC/WAV decoders
// Package source produces interleaved samples for the frame producer.
//
// A Source is pulled with Read until it returns io.EOF, which marks the end
// of the signal. Sources report their native Format; Convert adapts one to
// the channel count and sample rate of an endpoint.
//
// Example:
//
//	src, err := source.Open("track.flac")
//	src = source.Convert(src, audio.Format{SampleRate: 44100, Channels: 2})
//	n, err := src.Read(samples)
package source
