package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sat-broadcast/satrecv/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_rx", snap.FramesRx,
					"frames_short", snap.FramesShort,
					"frames_bad_crc", snap.FramesBadCRC,
					"time_events", snap.TimeEvents,
					"malformed", snap.Malformed,
					"integrity_fail", snap.IntegrityFail,
					"duplicate", snap.Duplicate,
					"conflict", snap.Conflict,
					"orphan_buffered", snap.OrphanBuffered,
					"orphan_dropped", snap.OrphanDropped,
					"evicted", snap.Evicted,
					"completed_fast", snap.CompletedFast,
					"completed_fec", snap.CompletedFEC,
					"insufficient", snap.Insufficient,
					"recovered_blocks", snap.Recovered,
					"output_errors", snap.OutputErrors,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
