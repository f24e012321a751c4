// ABOUTME: Audio decoder package for the PCM wire format
// ABOUTME: Provides the Decoder interface, the PCM decoder and a chunk-carrying stream
// Package decode turns wire bytes back into samples.
//
// A sample is only produced from a complete run of Width bytes. Decode
// hands back the trailing incomplete run so the caller can prepend it to
// the next chunk; Stream does that bookkeeping.
//
// Example:
//
//	decoder, err := decode.NewPCM(audio.BigEndianFloat32)
//	samples, leftover := decoder.Decode(chunk)
package decode
