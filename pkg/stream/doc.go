// ABOUTME: Streaming playback pipeline package
// ABOUTME: Provides the accumulator, playback scheduler, ingest loop and frame producer
// Package stream implements both ends of a raw PCM stream.
//
// Player side, in data flow order:
//   - Ingest pulls byte chunks from a ChunkSource
//   - Accumulator buffers them until a unit's worth has arrived and decodes it
//   - Scheduler enqueues each unit on an output and resumes it once the
//     warm-up policy is satisfied
//
// Server side, Producer pulls samples from a source.Source, encodes them and
// yields byte chunks of bounded size as a lazy sequence.
//
// Example:
//
//	acc, err := stream.NewAccumulator(format, decoder, format.BytesPerSecond(enc))
//	sched := stream.NewScheduler(out, stream.BufferedFor(3*time.Second))
//	err = stream.NewIngest(src, acc, sched).Run(ctx)
package stream
