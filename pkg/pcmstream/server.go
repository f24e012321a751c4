// ABOUTME: High-level Server API for pcmstream
// ABOUTME: Serves sample sources as raw PCM streams over HTTP and WebSocket
package pcmstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Sendspin/pcmstream/internal/discovery"
	"github.com/Sendspin/pcmstream/internal/version"
	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/encode"
	"github.com/Sendspin/pcmstream/pkg/audio/source"
	"github.com/Sendspin/pcmstream/pkg/stream"
	"github.com/Sendspin/pcmstream/pkg/transport"
)

const (
	DefaultPort       = 8000
	DefaultChunkBytes = 48000
	DefaultServerName = "pcmstream"

	// WebSocketPrefix is prepended to an endpoint path to reach its WebSocket mirror
	WebSocketPrefix = "/ws"

	shutdownTimeout = 5 * time.Second
)

var ErrInvalidEndpoint = errors.New("invalid endpoint")

// Endpoint is one stream route. Open is called once per request and the
// returned source is converted to Format if it differs.
type Endpoint struct {
	Path   string
	Format audio.Format
	Open   func(ctx context.Context) (source.Source, error)
}

// ServerConfig configures a pcmstream server
type ServerConfig struct {
	// Port to listen on (default: 8000)
	Port int

	// Name of the server for identification and mDNS
	Name string

	// Encoding of samples on the wire (default: big-endian float32)
	Encoding audio.Encoding

	// ChunkBytes is the size a chunk must exceed before it is written (default: 48000)
	ChunkBytes int

	// Endpoints to serve (at least one)
	Endpoints []Endpoint

	// EnableMDNS enables mDNS service advertisement
	EnableMDNS bool
}

// StreamInfo describes an endpoint in the /streams listing
type StreamInfo struct {
	Path       string `json:"path"`
	WSPath     string `json:"ws_path"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Encoding   string `json:"encoding"`
}

// ActiveStream describes a stream currently being served
type ActiveStream struct {
	ID        string
	Path      string
	Remote    string
	Transport string // "http" or "websocket"
	Started   time.Time
	Bytes     int64
}

type activeStream struct {
	ActiveStream
	bytes atomic.Int64
}

// ServerStats reports stream activity
type ServerStats struct {
	Active    int64
	Served    int64
	BytesSent int64
}

// Server serves PCM streams
type Server struct {
	config   ServerConfig
	serverID string
	encoder  *encode.PCM

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server

	mdnsManager *discovery.Manager

	ctx    context.Context
	cancel context.CancelFunc

	active    atomic.Int64
	served    atomic.Int64
	bytesSent atomic.Int64

	streamsMu sync.Mutex
	streams   map[string]*activeStream

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewServer creates a new pcmstream server
func NewServer(config ServerConfig) (*Server, error) {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = DefaultServerName
	}
	if config.Encoding.Order == nil && config.Encoding.Width == 0 {
		config.Encoding = audio.BigEndianFloat32
	}
	if config.ChunkBytes == 0 {
		config.ChunkBytes = DefaultChunkBytes
	}
	if config.ChunkBytes < 0 {
		return nil, fmt.Errorf("%w: %d", stream.ErrChunkSize, config.ChunkBytes)
	}

	encoder, err := encode.NewPCM(config.Encoding)
	if err != nil {
		return nil, err
	}

	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("%w: at least one endpoint is required", ErrInvalidEndpoint)
	}
	seen := make(map[string]bool)
	for _, ep := range config.Endpoints {
		if !strings.HasPrefix(ep.Path, "/") {
			return nil, fmt.Errorf("%w: path %q must start with /", ErrInvalidEndpoint, ep.Path)
		}
		if seen[ep.Path] {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrInvalidEndpoint, ep.Path)
		}
		seen[ep.Path] = true
		if err := ep.Format.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEndpoint, ep.Path, err)
		}
		if ep.Open == nil {
			return nil, fmt.Errorf("%w: %s: no source", ErrInvalidEndpoint, ep.Path)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		encoder:  encoder,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Streams are served to the local network
				return true
			},
		},
		ctx:      ctx,
		cancel:   cancel,
		streams:  make(map[string]*activeStream),
		stopChan: make(chan struct{}),
	}
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.HandleFunc("GET /streams", s.handleStreams)

	for _, ep := range s.config.Endpoints {
		s.mux.HandleFunc("GET "+ep.Path, func(w http.ResponseWriter, r *http.Request) {
			s.handleStream(w, r, ep)
		})
		s.mux.HandleFunc("GET "+WebSocketPrefix+ep.Path, func(w http.ResponseWriter, r *http.Request) {
			s.handleWebSocket(w, r, ep)
		})
	}
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ID returns the server identifier
func (s *Server) ID() string {
	return s.serverID
}

// Stats returns stream activity counters
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Active:    s.active.Load(),
		Served:    s.served.Load(),
		BytesSent: s.bytesSent.Load(),
	}
}

// Streams returns the streams currently being served, oldest first
func (s *Server) Streams() []ActiveStream {
	s.streamsMu.Lock()
	streams := make([]ActiveStream, 0, len(s.streams))
	for _, st := range s.streams {
		info := st.ActiveStream
		info.Bytes = st.bytes.Load()
		streams = append(streams, info)
	}
	s.streamsMu.Unlock()

	slices.SortFunc(streams, func(a, b ActiveStream) int {
		return a.Started.Compare(b.Started)
	})
	return streams
}

// Endpoints returns the configured stream paths
func (s *Server) Endpoints() []string {
	paths := make([]string, 0, len(s.config.Endpoints))
	for _, ep := range s.config.Endpoints {
		paths = append(paths, ep.Path)
	}
	return paths
}

// track registers a stream until the returned function is called
func (s *Server) track(id, path, remote, transport string) (*activeStream, func()) {
	st := &activeStream{ActiveStream: ActiveStream{
		ID:        id,
		Path:      path,
		Remote:    remote,
		Transport: transport,
		Started:   time.Now(),
	}}

	s.streamsMu.Lock()
	s.streams[id] = st
	s.streamsMu.Unlock()
	s.active.Add(1)
	s.served.Add(1)

	return st, func() {
		s.streamsMu.Lock()
		delete(s.streams, id)
		s.streamsMu.Unlock()
		s.active.Add(-1)
		s.bytesSent.Add(st.bytes.Load())
	}
}

// counted passes chunks through, adding their sizes to n
func counted(seq iter.Seq2[[]byte, error], n *atomic.Int64) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for chunk, err := range seq {
			if err == nil {
				n.Add(int64(len(chunk)))
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}

// Start listens on the configured port and serves until Stop is called
func (s *Server) Start() error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(l)
}

// Serve serves on l until Stop is called
func (s *Server) Serve(l net.Listener) error {
	port := s.config.Port
	if addr, ok := l.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	slog.Info("server starting",
		"name", s.config.Name,
		"id", s.serverID,
		"addr", l.Addr().String(),
		"encoding", s.config.Encoding,
		"chunk_bytes", s.config.ChunkBytes)
	for _, ep := range s.config.Endpoints {
		slog.Info("serving stream", "path", ep.Path, "ws_path", WebSocketPrefix+ep.Path, "format", ep.Format)
	}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        port,
			Endpoints:   s.endpointInfo(),
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			slog.Warn("failed to start mDNS advertisement", "err", err)
			s.mdnsManager = nil
		}
	}

	s.httpServer = &http.Server{
		Handler:     s.mux,
		BaseContext: func(net.Listener) context.Context { return s.ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(l); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for stop signal or server error
	select {
	case <-s.stopChan:
		slog.Info("server shutting down")
	case err := <-errChan:
		s.cancel()
		if s.mdnsManager != nil {
			s.mdnsManager.Stop()
		}
		return fmt.Errorf("http server failed: %w", err)
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Streams are unbounded, so end them before waiting for handlers
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
		s.httpServer.Close()
	}

	slog.Info("server stopped", "served", s.served.Load(), "bytes", s.bytesSent.Load())
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) endpointInfo() []discovery.EndpointInfo {
	infos := make([]discovery.EndpointInfo, 0, len(s.config.Endpoints))
	for _, ep := range s.config.Endpoints {
		infos = append(infos, discovery.EndpointInfo{
			Path:     ep.Path,
			Format:   ep.Format,
			Encoding: s.config.Encoding,
		})
	}
	return infos
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("Pong"))
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	streams := make([]StreamInfo, 0, len(s.config.Endpoints))
	for _, ep := range s.config.Endpoints {
		streams = append(streams, StreamInfo{
			Path:       ep.Path,
			WSPath:     WebSocketPrefix + ep.Path,
			SampleRate: ep.Format.SampleRate,
			Channels:   ep.Format.Channels,
			Encoding:   s.config.Encoding.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    s.config.Name,
		"id":      s.serverID,
		"version": version.Version,
		"streams": streams,
	})
}

// openProducer opens the endpoint source and wraps it in a producer
func (s *Server) openProducer(ctx context.Context, ep Endpoint) (source.Source, *stream.Producer, error) {
	src, err := ep.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open source: %w", err)
	}
	src = source.Convert(src, ep.Format)

	producer, err := stream.NewProducer(src, s.encoder, s.config.ChunkBytes)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, producer, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, ep Endpoint) {
	streamID := uuid.New().String()
	logger := slog.With("stream", streamID, "path", ep.Path, "remote", r.RemoteAddr)

	src, producer, err := s.openProducer(r.Context(), ep)
	if err != nil {
		logger.Error("failed to start stream", "err", err)
		http.Error(w, "failed to open audio source", http.StatusInternalServerError)
		return
	}
	defer src.Close()

	st, untrack := s.track(streamID, ep.Path, r.RemoteAddr, "http")
	defer untrack()

	w.Header().Set(transport.StreamIDHeader, streamID)
	logger.Info("stream started", "format", ep.Format, "encoding", s.config.Encoding)

	start := time.Now()
	n, err := transport.WriteHTTP(w, counted(producer.Chunks(r.Context()), &st.bytes))

	if err != nil {
		if r.Context().Err() != nil {
			logger.Info("stream ended by client or shutdown", "bytes", n, "elapsed", time.Since(start))
			return
		}
		logger.Error("stream failed", "err", err, "bytes", n)
		// Abort the chunked response so the client does not see a clean end
		panic(http.ErrAbortHandler)
	}

	logger.Info("stream finished", "bytes", n, "elapsed", time.Since(start))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, ep Endpoint) {
	streamID := uuid.New().String()
	logger := slog.With("stream", streamID, "path", WebSocketPrefix+ep.Path, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	src, producer, err := s.openProducer(ctx, ep)
	if err != nil {
		logger.Error("failed to start stream", "err", err)
		http.Error(w, "failed to open audio source", http.StatusInternalServerError)
		return
	}
	defer src.Close()

	conn, err := s.upgrader.Upgrade(w, r, transport.UpgradeHeader(streamID))
	if err != nil {
		logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// The client sends nothing but control frames; a read error means it is gone
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	st, untrack := s.track(streamID, WebSocketPrefix+ep.Path, r.RemoteAddr, "websocket")
	defer untrack()

	logger.Info("stream started", "format", ep.Format, "encoding", s.config.Encoding)

	start := time.Now()
	n, err := transport.WriteWebSocket(conn, counted(producer.Chunks(ctx), &st.bytes))

	switch {
	case err != nil && ctx.Err() != nil:
		logger.Info("stream ended by client or shutdown", "bytes", n, "elapsed", time.Since(start))
	case err != nil:
		logger.Error("stream failed", "err", err, "bytes", n)
	default:
		logger.Info("stream finished", "bytes", n, "elapsed", time.Since(start))
	}
}
