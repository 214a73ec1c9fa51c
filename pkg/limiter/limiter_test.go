package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScanGate_TryEnter(t *testing.T) {
	gate := NewScanGate(2)

	if !gate.TryEnter() {
		t.Error("first TryEnter should succeed")
	}
	if !gate.TryEnter() {
		t.Error("second TryEnter should succeed")
	}

	// At capacity: reject and count.
	if gate.TryEnter() {
		t.Error("third TryEnter should fail at capacity")
	}
	if gate.Shed() != 1 {
		t.Errorf("Shed = %d, want 1", gate.Shed())
	}

	gate.Leave()
	if !gate.TryEnter() {
		t.Error("TryEnter should succeed after Leave")
	}
}

func TestScanGate_EnterBlocks(t *testing.T) {
	gate := NewScanGate(1)

	if err := gate.Enter(context.Background()); err != nil {
		t.Fatalf("first Enter failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := gate.Enter(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestScanGate_Concurrent(t *testing.T) {
	gate := NewScanGate(10)
	var admitted atomic.Int32
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.TryEnter() {
				admitted.Add(1)
				time.Sleep(10 * time.Millisecond)
				gate.Leave()
			}
		}()
	}

	wg.Wait()

	stats := gate.Stats()
	t.Logf("concurrent: admitted=%d, shed=%d", admitted.Load(), stats.Shed)

	if stats.InFlight != 0 {
		t.Errorf("expected 0 in flight after completion, got %d", stats.InFlight)
	}
}

func TestScanGate_Stats(t *testing.T) {
	gate := NewScanGate(5)

	stats := gate.Stats()
	if stats.Capacity != 5 || stats.Available != 5 || stats.InFlight != 0 {
		t.Errorf("fresh gate stats = %+v", stats)
	}

	gate.TryEnter()
	gate.TryEnter()

	stats = gate.Stats()
	if stats.InFlight != 2 {
		t.Errorf("InFlight = %d, want 2", stats.InFlight)
	}
	if stats.Available != 3 {
		t.Errorf("Available = %d, want 3", stats.Available)
	}
}

func TestNewScanGate_DefaultCapacity(t *testing.T) {
	gate := NewScanGate(0)
	if cap(gate.slots) != DefaultMaxConcurrent {
		t.Errorf("default capacity should be %d, got %d", DefaultMaxConcurrent, cap(gate.slots))
	}

	gate = NewScanGate(-3)
	if cap(gate.slots) != DefaultMaxConcurrent {
		t.Errorf("negative capacity should default, got %d", cap(gate.slots))
	}
}
