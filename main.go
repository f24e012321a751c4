// ABOUTME: Entry point for the pcmstream player
// ABOUTME: Parses CLI flags, finds a stream and plays it with an optional TUI
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/Sendspin/pcmstream/internal/discovery"
	"github.com/Sendspin/pcmstream/internal/logging"
	"github.com/Sendspin/pcmstream/internal/ui"
	"github.com/Sendspin/pcmstream/internal/version"
	"github.com/Sendspin/pcmstream/pkg/audio"
	"github.com/Sendspin/pcmstream/pkg/audio/output"
	"github.com/Sendspin/pcmstream/pkg/pcmstream"
	"github.com/Sendspin/pcmstream/pkg/stream"
)

const (
	tuiRefresh    = 250 * time.Millisecond
	statsInterval = 5 * time.Second
)

var errUserQuit = errors.New("quit by user")

type playerCLI struct {
	URL             string        `help:"Stream URL (http, https, ws or wss). Browses mDNS when empty."`
	Rate            int           `help:"Sample rate of the stream in Hz" default:"44100"`
	Channels        int           `help:"Channel count of the stream" default:"2"`
	Encoding        string        `help:"Sample encoding on the wire" default:"f32be" enum:"f32be,f32le,f64be,f64le"`
	UnitMs          int           `name:"unit-ms" help:"Audio per playable unit in milliseconds" default:"1000"`
	Warmup          time.Duration `help:"Start playback once more than this much audio is buffered" default:"3s"`
	WarmupUnits     int           `name:"warmup-units" help:"Start playback after more than N units instead (-1 uses --warmup)" default:"-1"`
	Queue           int           `help:"Output queue capacity in units" default:"8"`
	Volume          int           `help:"Initial volume (1-100)" default:"100"`
	Output          string        `help:"Audio output" default:"oto" enum:"oto,discard"`
	NoTUI           bool          `name:"no-tui" help:"Disable the TUI and log to stdout"`
	LogLevel        string        `help:"Log level" default:"info" enum:"none,error,warn,info,debug"`
	LogFile         string        `help:"Write JSON logs to this file"`
	DiscoverTimeout time.Duration `help:"How long to browse for servers" default:"3s"`

	Config  kong.ConfigFlag  `help:"Load flags from a JSON file"`
	Version kong.VersionFlag `help:"Show version information"`
}

func main() {
	var cli playerCLI
	kong.Parse(&cli,
		kong.Name("pcmstream"),
		kong.Description("Play a raw PCM stream from a pcmstream server."),
		kong.Vars{"version": fmt.Sprintf("%s %s", version.Product, version.Version)},
		kong.DefaultEnvars("PCMSTREAM"),
		kong.Configuration(kong.JSON),
		kong.UsageOnError(),
	)

	if err := run(cli); err != nil {
		slog.Error("player failed", "err", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cli playerCLI) error {
	useTUI := !cli.NoTUI

	// The TUI owns the terminal, so console logs are dropped unless a file is given
	var console io.Writer = os.Stdout
	if useTUI {
		console = io.Discard
	}
	logCloser, err := logging.Configure(cli.LogLevel, cli.LogFile, console)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	if cli.Volume < 1 || cli.Volume > 100 {
		return fmt.Errorf("volume must be between 1 and 100, got %d", cli.Volume)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc, err := audio.ParseEncoding(cli.Encoding)
	if err != nil {
		return err
	}
	format := audio.Format{SampleRate: cli.Rate, Channels: cli.Channels}

	url := cli.URL
	if url == "" {
		if !useTUI {
			fmt.Println("No URL given, browsing for pcmstream servers...")
		}
		url, format, enc, err = discover(ctx, cli.DiscoverTimeout)
		if err != nil {
			return err
		}
	}
	if err := format.Validate(); err != nil {
		return err
	}

	warmUp := stream.BufferedFor(cli.Warmup)
	if cli.WarmupUnits >= 0 {
		warmUp = stream.UnitCount(cli.WarmupUnits)
	}

	unitBytes := format.BytesIn(time.Duration(cli.UnitMs)*time.Millisecond, enc)
	if unitBytes < enc.Width {
		return fmt.Errorf("unit of %dms holds no complete sample", cli.UnitMs)
	}

	queue := cli.Queue
	if needed := warmUp.UnitsNeeded(format.Duration(unitBytes / enc.Width)); queue < needed {
		slog.Info("raising output queue to fit warm-up", "queue", queue, "needed", needed, "warmup", warmUp.String())
		queue = needed
	}

	var out output.Output
	switch cli.Output {
	case "discard":
		out = output.NewDiscard(queue, true)
	default:
		out = output.NewOto(queue)
	}

	player, err := pcmstream.NewPlayer(pcmstream.PlayerConfig{
		URL:        url,
		Format:     format,
		Encoding:   enc,
		UnitBytes:  unitBytes,
		WarmUp:     warmUp,
		QueueUnits: queue,
		Output:     out,
		Volume:     cli.Volume,
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer player.Close()

	g, gctx := errgroup.WithContext(ctx)
	playDone := make(chan struct{})

	var prog *tea.Program
	var volCtrl *ui.VolumeControl
	if useTUI {
		volCtrl = ui.NewVolumeControl()
		prog = ui.New(gctx, volCtrl, cli.Volume)
	}

	g.Go(func() error {
		err := player.Run(gctx)
		close(playDone)
		if prog != nil {
			prog.Send(ui.DoneMsg{Err: err})
		}
		return err
	})

	g.Go(func() error {
		reportStatus(gctx, playDone, player, url, prog)
		return nil
	})

	if useTUI {
		g.Go(func() error {
			_, err := prog.Run()
			select {
			case <-playDone:
				return nil
			default:
			}
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("TUI failed: %w", err)
			}
			return errUserQuit
		})

		g.Go(func() error {
			for {
				select {
				case change := <-volCtrl.Changes:
					player.SetVolume(change.Volume)
					player.SetMuted(change.Muted)
					slog.Debug("volume changed", "volume", change.Volume, "muted", change.Muted)
				case <-volCtrl.Quit:
				case <-playDone:
					return nil
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	err = g.Wait()
	switch {
	case errors.Is(err, errUserQuit):
		slog.Info("playback stopped by user")
		return nil
	case err != nil && ctx.Err() != nil:
		slog.Info("playback interrupted")
		return nil
	}
	return err
}

// discover browses for a server and returns its first advertised stream
func discover(ctx context.Context, timeout time.Duration) (string, audio.Format, audio.Encoding, error) {
	servers, err := discovery.Browse(ctx, timeout)
	if err != nil {
		return "", audio.Format{}, audio.Encoding{}, fmt.Errorf("discovery failed: %w", err)
	}

	for _, server := range servers {
		if len(server.Endpoints) == 0 {
			continue
		}
		ep := server.Endpoints[0]
		url := server.URL(ep.Path)
		slog.Info("using discovered stream", "server", server.Name, "url", url, "format", ep.Format, "encoding", ep.Encoding)
		return url, ep.Format, ep.Encoding, nil
	}

	return "", audio.Format{}, audio.Encoding{}, fmt.Errorf("no pcmstream server found within %v", timeout)
}

// reportStatus feeds the TUI, or logs periodic stats without one, until playback ends
func reportStatus(ctx context.Context, playDone <-chan struct{}, player *pcmstream.Player, url string, prog *tea.Program) {
	interval := statsInterval
	if prog != nil {
		interval = tuiRefresh
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if prog != nil {
				prog.Send(statusMsg(player, url))
				continue
			}
			stats := player.Stats()
			slog.Info("playback stats",
				"state", stats.State,
				"units", stats.Units,
				"bytes", stats.BytesReceived,
				"queued", stats.Output.QueueLength,
				"played", stats.Output.Played,
				"underruns", stats.Output.Underruns,
				"paused", stats.Scheduler.Paused)
		case <-playDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

func statusMsg(player *pcmstream.Player, url string) ui.StatusMsg {
	cfg := player.Config()
	stats := player.Stats()
	paused := stats.Scheduler.Paused || stats.State == "connecting"

	return ui.StatusMsg{
		URL:           url,
		Format:        cfg.Format.String(),
		Encoding:      cfg.Encoding.String(),
		State:         stats.State,
		Units:         int64(stats.Units),
		BytesReceived: stats.BytesReceived,
		Enqueued:      int64(stats.Scheduler.Enqueued),
		Played:        int64(stats.Output.Played),
		Underruns:     int64(stats.Output.Underruns),
		QueueLength:   stats.Output.QueueLength,
		QueueCapacity: cfg.QueueUnits,
		Buffered:      stats.Scheduler.Buffered,
		StartupDelay:  stats.Scheduler.StartupDelay,
		Paused:        &paused,
	}
}
