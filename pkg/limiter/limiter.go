// Package limiter bounds how many messages are scored at once. Bulk imports
// (restoring an inbox, re-scanning history) can hand the pipeline thousands
// of messages in a burst; the limiter keeps concurrent scans at a fixed cap
// and counts what it sheds.
package limiter

import (
	"context"
	"sync/atomic"
)

// DefaultMaxConcurrent is the scan cap used when no capacity is configured.
const DefaultMaxConcurrent = 32

// ScanGate is a counting semaphore over in-flight scans.
type ScanGate struct {
	slots chan struct{}
	shed  atomic.Int64
}

// NewScanGate creates a gate admitting at most capacity concurrent scans.
func NewScanGate(capacity int) *ScanGate {
	if capacity <= 0 {
		capacity = DefaultMaxConcurrent
	}
	return &ScanGate{
		slots: make(chan struct{}, capacity),
	}
}

// TryEnter admits a scan without blocking. Returns false, and counts the
// message as shed, when the gate is full. Use for interactive paths where
// the caller would rather reject than queue.
func (g *ScanGate) TryEnter() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		g.shed.Add(1)
		return false
	}
}

// Enter blocks until a slot frees up or ctx is cancelled. Use for batch
// rescans where every message must eventually be scored.
func (g *ScanGate) Enter(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave returns a slot. Must follow a successful TryEnter or Enter.
func (g *ScanGate) Leave() {
	select {
	case <-g.slots:
	default:
		// Leave without Enter; nothing to release.
	}
}

// Shed returns how many scans were rejected at capacity.
func (g *ScanGate) Shed() int64 {
	return g.shed.Load()
}

// Stats reports the gate's current occupancy.
func (g *ScanGate) Stats() Stats {
	return Stats{
		Capacity:  cap(g.slots),
		InFlight:  len(g.slots),
		Available: cap(g.slots) - len(g.slots),
		Shed:      g.shed.Load(),
	}
}

// Stats is a point-in-time view of the gate for health reporting.
type Stats struct {
	Capacity  int   `json:"capacity"`
	InFlight  int   `json:"inFlight"`
	Available int   `json:"available"`
	Shed      int64 `json:"shed"`
}
