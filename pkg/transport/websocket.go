// ABOUTME: WebSocket transport
// ABOUTME: Carries stream chunks as binary messages, ending with a normal close
package transport

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sendspin/pcmstream/pkg/stream"
)

const closeTimeout = time.Second

// WebSocketSource reads a stream from WebSocket binary messages
type WebSocketSource struct {
	conn      *websocket.Conn
	streamID  string
	closeOnce sync.Once
}

// DialWebSocket connects to a WebSocket stream endpoint
func DialWebSocket(ctx context.Context, url string) (*WebSocketSource, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	return &WebSocketSource{
		conn:     conn,
		streamID: resp.Header.Get(StreamIDHeader),
	}, nil
}

// Next returns the payload of the next binary message. A normal close from
// the server ends the stream with io.EOF; any other close is an error.
func (s *WebSocketSource) Next(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil, io.EOF
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// StreamID returns the identifier the server assigned to this stream
func (s *WebSocketSource) StreamID() string { return s.streamID }

// Close sends a close message and closes the connection
func (s *WebSocketSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		err = s.conn.Close()
	})
	return err
}

// WriteWebSocket sends every chunk of seq as a binary message, then closes
// normally. A sequence error closes with an internal error status instead.
func WriteWebSocket(conn *websocket.Conn, seq iter.Seq2[[]byte, error]) (int64, error) {
	var written int64
	for chunk, err := range seq {
		if err != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stream failed")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
			return written, err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return written, fmt.Errorf("failed to write chunk: %w", err)
		}
		written += int64(len(chunk))
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil {
		return written, fmt.Errorf("failed to close stream: %w", err)
	}
	return written, nil
}

// UpgradeHeader returns the response header for an upgrade carrying streamID
func UpgradeHeader(streamID string) http.Header {
	h := http.Header{}
	h.Set(StreamIDHeader, streamID)
	return h
}

var _ stream.ChunkSource = (*WebSocketSource)(nil)
