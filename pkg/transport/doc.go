// ABOUTME: Transport package carrying raw PCM chunks over HTTP and WebSocket
// ABOUTME: Provides chunk sources for the player and response writers for the server
// Package transport moves stream bytes between server and player.
//
// The HTTP form is a chunked response body of raw PCM with no framing. The
// WebSocket form carries the same bytes as binary messages and ends with a
// normal close. Both sides identify a stream by the X-Stream-Id header.
//
// Example:
//
//	src, err := transport.Dial(ctx, http.DefaultClient, "http://host:8000/sine", 0)
//	defer src.Close()
//	chunk, err := src.Next(ctx)
package transport
