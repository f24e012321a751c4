// ABOUTME: Transport selection by URL scheme
// ABOUTME: Dials HTTP(S) or WebSocket stream endpoints behind one interface
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sendspin/pcmstream/pkg/stream"
)

var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Source is a chunk source with a server-assigned stream identifier
type Source interface {
	stream.ChunkSource
	StreamID() string
}

// Dial opens a stream, choosing HTTP for http/https URLs and WebSocket for ws/wss
func Dial(ctx context.Context, client *http.Client, rawURL string, readSize int) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return DialHTTP(ctx, client, rawURL, readSize)
	case "ws", "wss":
		return DialWebSocket(ctx, rawURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
