// Command satrecv receives a satellite file-broadcast, reassembles whole
// files from their fragmented, forward-error-corrected representation, and
// writes them to an output directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/sat-broadcast/satrecv/internal/carousel"
	"github.com/sat-broadcast/satrecv/internal/demux"
	"github.com/sat-broadcast/satrecv/internal/emit"
	"github.com/sat-broadcast/satrecv/internal/filesvc"
	"github.com/sat-broadcast/satrecv/internal/metrics"
	"github.com/sat-broadcast/satrecv/internal/source"
	"github.com/sat-broadcast/satrecv/internal/timesvc"
	"github.com/sat-broadcast/satrecv/internal/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("satrecv %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}
	if cfg == nil {
		return 1
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	src, err := openSource(cfg)
	if err != nil {
		l.Error("source_open_error", "error", err)
		return 1
	}
	defer src.Close()

	sink, err := emit.NewSink(cfg.outputDir)
	if err != nil {
		l.Error("sink_open_error", "error", err)
		return 1
	}

	tracker := carousel.New(sink,
		carousel.WithMaxAssemblies(cfg.maxAssemblies),
		carousel.WithMaxOrphans(cfg.maxOrphans),
		carousel.WithAgeOut(cfg.ageOut),
		carousel.WithAsyncDecode(cfg.asyncDecode),
	)

	times := &timesvc.Decoder{}
	times.Subscribe(func(ev timesvc.TimeEvent) {
		l.Info("time_event", "instant", ev.Instant)
	})

	d := demux.New()
	d.Register(wire.ServiceTime, func(payload []byte) {
		if err := times.Handle(payload); err != nil {
			metrics.IncMalformed()
			l.Debug("time_record_malformed", "error", err)
			return
		}
		metrics.IncTimeEvents()
	})
	d.Register(wire.ServiceFile, func(payload []byte) {
		handleFileService(tracker, payload, l)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })

	metricsPort := 0
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		httpSrv := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
		if p, err := portOf(cfg.metricsAddr); err == nil {
			metricsPort = p
		}
	}

	cleanupMDNS, err := startMDNS(ctx, cfg, metricsPort, tracker)
	if err != nil {
		l.Warn("mdns_start_failed", "error", err)
	} else {
		defer cleanupMDNS()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		l.Info("shutdown_signal", "signal", s.String())
		cancel()
		_ = src.Close()
	}()

	exitCode := pumpFrames(ctx, src, d, tracker, l)
	cancel()
	wg.Wait()
	return exitCode
}

// pumpFrames is the single-threaded cooperative pull loop: one frame is
// consumed and fully processed before the next is drawn.
func pumpFrames(ctx context.Context, src source.Source, d *demux.Demux, tracker *carousel.Tracker, l *slog.Logger) int {
	for {
		raw, err := src.Next()
		if err != nil {
			if errors.Is(err, source.ErrSourceClosed) {
				return 0
			}
			l.Error("transport_error", "error", err)
			metrics.IncError(metrics.ErrTransport)
			return 1
		}
		f, err := wire.Parse(raw)
		if err != nil {
			if errors.Is(err, wire.ErrShortFrame) {
				metrics.IncFramesShort()
			} else {
				metrics.IncFramesBadCRC()
			}
			metrics.IncError(metrics.ErrFraming)
			continue
		}
		metrics.IncFramesRx()
		d.Dispatch(f)
		tracker.Drain()
		tracker.AgeOut()
		if ctx.Err() != nil {
			return 0
		}
	}
}

func handleFileService(tracker *carousel.Tracker, payload []byte, l *slog.Logger) {
	if len(payload) == 0 {
		metrics.IncMalformed()
		return
	}
	switch payload[0] {
	case filesvc.DiscriminantAnnouncement:
		a, err := filesvc.ParseAnnouncement(payload)
		if err != nil {
			metrics.IncMalformed()
			return
		}
		l.Info("announcement", "carousel_id", a.CarouselID, "file_id", a.FileID,
			"name", a.FileName, "total_blocks", a.TotalBlocks, "systematic", a.Systematic)
		tracker.OnAnnouncement(a)
	case filesvc.DiscriminantBlock:
		b, err := filesvc.ParseBlock(payload)
		if err != nil {
			if errors.Is(err, wire.ErrBadCRC) {
				metrics.IncIntegrityFail()
			} else {
				metrics.IncMalformed()
			}
			return
		}
		tracker.OnBlock(b)
	default:
		metrics.IncMalformed()
	}
}

func openSource(cfg *appConfig) (source.Source, error) {
	if cfg.capturePath != "" {
		f, err := os.Open(cfg.capturePath)
		if err != nil {
			return nil, fmt.Errorf("open capture: %w", err)
		}
		return source.NewReplay(f), nil
	}
	return source.NewLive(cfg.listenAddr)
}

func portOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
