package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic counter.
var Stats = &stats{}

type stats struct {
	FramesRecv    atomic.Int64 // binary frames delivered to a feed
	FramesDropped atomic.Int64 // frames dropped: unknown tag, inactive index or superseded
	ControlSent   atomic.Int64 // control messages written to the transport
	ControlRecv   atomic.Int64 // control messages read from the transport
	BytesSent     atomic.Int64 // cumulative bytes written to the transport
	BytesRecv     atomic.Int64 // cumulative bytes read from the transport
}

func (s *stats) AddFrame()       { s.FramesRecv.Add(1) }
func (s *stats) AddDropped()     { s.FramesDropped.Add(1) }
func (s *stats) AddControlSent() { s.ControlSent.Add(1) }
func (s *stats) AddControlRecv() { s.ControlRecv.Add(1) }
func (s *stats) AddSent(n int)   { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int)   { s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs traffic statistics every
// interval. extra, when non-nil, is appended to each line (per-stream FPS for
// example). It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration, extra func() string) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		secs := interval.Seconds()
		var prevSent, prevRecv, prevFrames, prevDropped int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				frames := Stats.FramesRecv.Load()
				dropped := Stats.FramesDropped.Load()

				inS := float64(recv-prevRecv) / secs
				outS := float64(sent-prevSent) / secs
				line := formatStats(inS, outS, frames-prevFrames, dropped-prevDropped)
				if extra != nil {
					if s := extra(); s != "" {
						line += " | " + s
					}
				}

				if inS > 10 || outS > 10 || frames != prevFrames {
					pterm.DefaultLogger.Info(line)
				}

				prevSent = sent
				prevRecv = recv
				prevFrames = frames
				prevDropped = dropped

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, frames, dropped int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Frames: %4d ok %3d dropped",
		formatBytes(inS),
		formatBytes(outS),
		frames,
		dropped,
	)
}
