// ABOUTME: Error types for the streaming pipeline
// ABOUTME: Distinguishes transport, output and source failures
package stream

import "errors"

var (
	ErrProducerConsumed  = errors.New("producer sequence already consumed")
	ErrThresholdTooSmall = errors.New("threshold smaller than one sample")
	ErrChunkSize         = errors.New("chunk size must be positive")
)

// TransportError reports a failure retrieving chunks. The stream was aborted
// without draining.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// OutputError reports a failure handing units to the output
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string { return "output failed: " + e.Err.Error() }
func (e *OutputError) Unwrap() error { return e.Err }

// SourceError reports a failure pulling samples from a generator or decoder
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return "source failed: " + e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }
