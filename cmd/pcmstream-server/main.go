// ABOUTME: Entry point for the pcmstream server
// ABOUTME: Parses CLI flags and serves a sine stream plus an optional audio file stream
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/Sendspin/pcmstream/internal/logging"
	"github.com/Sendspin/pcmstream/internal/ui"
	"github.com/Sendspin/pcmstream/internal/version"
	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/source"
	"github.com/Sendspin/pcmstream/pkg/pcmstream"
)

type serverCLI struct {
	Port         int           `help:"HTTP port" default:"8000"`
	Name         string        `help:"Server name (default: hostname-pcmstream)"`
	Rate         int           `help:"Sample rate of every stream in Hz" default:"44100"`
	Channels     int           `help:"Channel count of every stream" default:"2"`
	Encoding     string        `help:"Sample encoding on the wire" default:"f32be" enum:"f32be,f32le,f64be,f64le"`
	ChunkBytes   int           `name:"chunk-bytes" help:"Bytes a chunk must exceed before it is sent" default:"48000"`
	Audio        string        `help:"Audio file (MP3, FLAC, WAV) served at /audio-file" type:"existingfile"`
	SineFreq     float64       `name:"sine-freq" help:"Frequency of the /sine stream in Hz" default:"440"`
	SineDuration time.Duration `name:"sine-duration" help:"Length of the /sine stream (0 is endless)" default:"0s"`
	NoMDNS       bool          `name:"no-mdns" help:"Disable mDNS advertisement"`
	TUI          bool          `name:"tui" help:"Show active streams in a TUI instead of logging to stdout"`
	LogLevel     string        `help:"Log level" default:"info" enum:"none,error,warn,info,debug"`
	LogFile      string        `help:"Write JSON logs to this file"`

	Config  kong.ConfigFlag  `help:"Load flags from a JSON file"`
	Version kong.VersionFlag `help:"Show version information"`
}

func main() {
	var cli serverCLI
	kong.Parse(&cli,
		kong.Name("pcmstream-server"),
		kong.Description("Serve raw PCM audio streams over HTTP and WebSocket."),
		kong.Vars{"version": fmt.Sprintf("%s %s", version.Product, version.Version)},
		kong.DefaultEnvars("PCMSTREAM_SERVER"),
		kong.Configuration(kong.JSON),
		kong.UsageOnError(),
	)

	if err := run(cli); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cli serverCLI) error {
	var console io.Writer = os.Stdout
	if cli.TUI {
		console = io.Discard
	}
	logCloser, err := logging.Configure(cli.LogLevel, cli.LogFile, console)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	enc, err := audio.ParseEncoding(cli.Encoding)
	if err != nil {
		return err
	}
	format := audio.Format{SampleRate: cli.Rate, Channels: cli.Channels}

	name := cli.Name
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		name = fmt.Sprintf("%s-pcmstream", hostname)
	}

	srv, err := pcmstream.NewServer(pcmstream.ServerConfig{
		Port:       cli.Port,
		Name:       name,
		Encoding:   enc,
		ChunkBytes: cli.ChunkBytes,
		Endpoints:  endpoints(cli, format),
		EnableMDNS: !cli.NoMDNS,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cli.TUI {
		return runWithTUI(ctx, srv, name, cli.Port)
	}

	go func() {
		<-ctx.Done()
		slog.Info("received shutdown signal")
		srv.Stop()
	}()

	slog.Info("press Ctrl-C to stop")
	return srv.Start()
}

// runWithTUI serves until the user quits the TUI or ctx is cancelled
func runWithTUI(ctx context.Context, srv *pcmstream.Server, name string, port int) error {
	g, gctx := errgroup.WithContext(ctx)
	tui := ui.NewServerTUI(gctx, serverStatus(srv, name, port))

	g.Go(srv.Start)

	g.Go(func() error {
		defer srv.Stop()
		if err := tui.Run(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("TUI failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tui.Update(serverStatus(srv, name, port))
			case <-tui.QuitChan():
				return nil
			case <-gctx.Done():
				tui.Stop()
				return nil
			}
		}
	})

	return g.Wait()
}

func serverStatus(srv *pcmstream.Server, name string, port int) ui.ServerStatus {
	stats := srv.Stats()
	status := ui.ServerStatus{
		Name:      name,
		Addr:      fmt.Sprintf(":%d", port),
		Endpoints: srv.Endpoints(),
		Served:    stats.Served,
		BytesSent: stats.BytesSent,
	}
	for _, st := range srv.Streams() {
		status.Streams = append(status.Streams, ui.StreamStatus{
			ID:        st.ID,
			Path:      st.Path,
			Remote:    st.Remote,
			Transport: st.Transport,
			Started:   st.Started,
			Bytes:     st.Bytes,
		})
	}
	return status
}

func endpoints(cli serverCLI, format audio.Format) []pcmstream.Endpoint {
	eps := []pcmstream.Endpoint{{
		Path:   "/sine",
		Format: format,
		Open: func(ctx context.Context) (source.Source, error) {
			return source.NewSine(format, cli.SineFreq, cli.SineDuration), nil
		},
	}}

	if cli.Audio != "" {
		path := cli.Audio
		eps = append(eps, pcmstream.Endpoint{
			Path:   "/audio-file",
			Format: format,
			Open: func(ctx context.Context) (source.Source, error) {
				return source.Open(path)
			},
		})
	}
	return eps
}
