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

// Stats is the process-wide signaling counter.
var Stats = &stats{}

type stats struct {
	RPCSent       atomic.Int64 // cumulative requests written to the socket
	RPCFailed     atomic.Int64 // cumulative requests settled with an error
	Retries       atomic.Int64 // cumulative retry attempts (first attempts excluded)
	EventsRouted  atomic.Int64 // cumulative inbound events accepted by the router
	EventsDropped atomic.Int64 // cumulative inbound events dropped by origin gating
}

func (s *stats) AddSent()    { s.RPCSent.Add(1) }
func (s *stats) AddFailed()  { s.RPCFailed.Add(1) }
func (s *stats) AddRetry()   { s.Retries.Add(1) }
func (s *stats) AddRouted()  { s.EventsRouted.Add(1) }
func (s *stats) AddDropped() { s.EventsDropped.Add(1) }

// snapshot is a point-in-time copy of the counters.
type snapshot struct {
	sent, failed, retries, routed, dropped int64
}

func (s *stats) snapshot() snapshot {
	return snapshot{
		sent:    s.RPCSent.Load(),
		failed:  s.RPCFailed.Load(),
		retries: s.Retries.Load(),
		routed:  s.EventsRouted.Load(),
		dropped: s.EventsDropped.Load(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs signaling statistics
// every interval. Nothing is logged for quiet intervals. It stops when ctx
// is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := Stats.snapshot()
		for {
			select {
			case <-ticker.C:
				cur := Stats.snapshot()
				delta := snapshot{
					sent:    cur.sent - prev.sent,
					failed:  cur.failed - prev.failed,
					retries: cur.retries - prev.retries,
					routed:  cur.routed - prev.routed,
					dropped: cur.dropped - prev.dropped,
				}
				if delta != (snapshot{}) {
					pterm.DefaultLogger.Info(formatStats(delta))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats returns a formatted string of a stats delta for display in the logger.
func formatStats(d snapshot) string {
	return fmt.Sprintf("RPC: %3d sent %3d failed %3d retried | Events: %4d routed %3d dropped",
		d.sent,
		d.failed,
		d.retries,
		d.routed,
		d.dropped,
	)
}
