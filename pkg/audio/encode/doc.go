// ABOUTME: Audio encoder package for the PCM wire format
// ABOUTME: Provides the Encoder interface and the floating point PCM encoder
// Package encode serializes samples for the wire.
//
// The wire carries raw interleaved floating point PCM with no header or
// framing. Byte order and width are fixed by an audio.Encoding that both
// ends agree on out of band; a mismatch cannot be detected from the bytes.
//
// Example:
//
//	encoder, err := encode.NewPCM(audio.BigEndianFloat32)
//	data := encoder.Encode(samples)
package encode
