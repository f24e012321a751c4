// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the queue-fed Output interface with oto and discard backends
// Package output provides audio playback backends.
//
// An Output owns a bounded FIFO queue of audio.Buffer values and consumes it
// on its own goroutine. Enqueue blocks while the queue is full, which gives
// the ingest loop backpressure. Outputs start paused; the playback scheduler
// decides when to resume.
//
// Backends:
//   - Oto: plays through the system audio device (float32 output)
//   - Discard: consumes buffers without a device, for headless runs and tests
//
// Example:
//
//	out := output.NewOto(8)
//	err := out.Open(audio.Format{SampleRate: 44100, Channels: 2})
//	err = out.Enqueue(ctx, buf)
//	out.Resume()
package output
