// ABOUTME: HTTP chunked transport
// ABOUTME: Reads a streamed response body as chunks and writes chunk sequences to responses
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/Sendspin/pcmstream/pkg/stream"
)

const (
	// StreamIDHeader carries the per-request stream identifier
	StreamIDHeader = "X-Stream-Id"

	// DefaultReadSize is the largest chunk returned by a single Next call
	DefaultReadSize = 32 * 1024

	contentType = "application/octet-stream"
)

var ErrStatus = errors.New("unexpected HTTP status")

// HTTPSource reads a stream from an HTTP response body
type HTTPSource struct {
	resp     *http.Response
	buf      []byte
	streamID string
}

// DialHTTP sends a GET request and returns the response body as a chunk source
func DialHTTP(ctx context.Context, client *http.Client, url string, readSize int) (*HTTPSource, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if readSize <= 0 {
		readSize = DefaultReadSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: %s", ErrStatus, resp.Status, body)
	}

	return &HTTPSource{
		resp:     resp,
		buf:      make([]byte, readSize),
		streamID: resp.Header.Get(StreamIDHeader),
	}, nil
}

// Next returns the next chunk of the body. A body cut off before its end
// returns an error, never io.EOF.
func (s *HTTPSource) Next(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { s.resp.Body.Close() })
	defer stop()

	for {
		n, err := s.resp.Body.Read(s.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}
}

// StreamID returns the identifier the server assigned to this stream
func (s *HTTPSource) StreamID() string { return s.streamID }

// Close closes the response body
func (s *HTTPSource) Close() error {
	return s.resp.Body.Close()
}

// WriteHTTP writes every chunk of seq to w, flushing after each one. It
// returns the number of bytes written and the first error from seq or w.
func WriteHTTP(w http.ResponseWriter, seq iter.Seq2[[]byte, error]) (int64, error) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentType)
	}
	rc := http.NewResponseController(w)

	var written int64
	for chunk, err := range seq {
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write chunk: %w", err)
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return written, fmt.Errorf("failed to flush chunk: %w", err)
		}
	}
	return written, nil
}

var _ stream.ChunkSource = (*HTTPSource)(nil)
