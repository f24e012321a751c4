// ABOUTME: High-level pcmstream library API
// ABOUTME: Provides simple Player and Server APIs for most use cases
// Package pcmstream provides high-level APIs for raw PCM audio streaming.
//
// This is the main entry point for most library users, providing:
//   - Server: serve sample sources as chunked HTTP and WebSocket streams
//   - Player: fetch a stream and play it through the buffering pipeline
//
// The stream format is not carried on the wire. Both ends agree on it out
// of band: through configuration, the server's /streams listing, or mDNS.
//
// For lower-level control, see the audio, stream and transport packages.
//
// Example Player:
//
//	player, err := pcmstream.NewPlayer(pcmstream.PlayerConfig{
//	    URL:    "http://localhost:8000/sine",
//	    Format: audio.Format{SampleRate: 44100, Channels: 2},
//	})
//	err = player.Run(ctx)
//
// Example Server:
//
//	format := audio.Format{SampleRate: 44100, Channels: 2}
//	server, err := pcmstream.NewServer(pcmstream.ServerConfig{
//	    Endpoints: []pcmstream.Endpoint{{
//	        Path:   "/sine",
//	        Format: format,
//	        Open: func(ctx context.Context) (source.Source, error) {
//	            return source.NewSine(format, 440, 0), nil
//	        },
//	    }},
//	})
//	err = server.Start()
package pcmstream
