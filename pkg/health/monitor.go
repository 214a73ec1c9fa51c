// Package health tracks the scoring process itself: per-prediction latency
// and confidence, rolling summary statistics, anomaly counters, and
// confidence drift between the recent window and history.
//
// Everything stays on-device. A Snapshot is a local diagnostics document,
// never a telemetry payload.
package health

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Anomaly kinds counted by RecordPrediction. The two confidence checks are
// not mutually exclusive: a very-low-confidence sample increments both.
const (
	AnomalyVeryLowConfidence = "veryLowConfidence"
	AnomalyLowConfidence     = "lowConfidence"
	AnomalyHighLatency       = "highLatency"
)

const (
	veryLowConfidenceBound = 0.1
	lowConfidenceBound     = 0.4
	highLatencyBoundMs     = 200.0
)

// Options configures a Monitor. Zero fields fall back to defaults.
type Options struct {
	// Capacity bounds each rolling buffer; the oldest samples are evicted
	// first once it is exceeded. Default 1000.
	Capacity int

	// DriftWindow is the size of the recent-confidence suffix compared
	// against everything before it. Default 300.
	DriftWindow int

	// AnomalyThreshold is the absolute mean difference at which DetectDrift
	// flags. Default 0.25.
	AnomalyThreshold float64
}

// DefaultOptions returns the stock monitor tuning.
func DefaultOptions() Options {
	return Options{Capacity: 1000, DriftWindow: 300, AnomalyThreshold: 0.25}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Capacity <= 0 {
		o.Capacity = d.Capacity
	}
	if o.DriftWindow <= 0 {
		o.DriftWindow = d.DriftWindow
	}
	if o.AnomalyThreshold <= 0 {
		o.AnomalyThreshold = d.AnomalyThreshold
	}
	return o
}

// Snapshot is a point-in-time view of the monitor, derived on demand from
// the rolling buffers.
type Snapshot struct {
	Timestamp      time.Time        `json:"timestamp"`
	ModelLatencyMs float64          `json:"modelLatencyMs"`
	LatencyP95     float64          `json:"latencyP95"`
	ConfidenceMean float64          `json:"confidenceMean"`
	ConfidenceStd  float64          `json:"confidenceStd"`
	Anomalies      map[string]int64 `json:"anomalies"`
}

// Monitor owns the rolling latency/confidence buffers and the cumulative
// anomaly counters. All methods are safe for concurrent use; one mutex
// serializes mutation so snapshots always see a prefix-consistent buffer
// state (never a sample half-evicted under a reader).
type Monitor struct {
	mu          sync.Mutex
	opts        Options
	latencies   []float64
	confidences []float64
	anomalies   map[string]int64
}

// NewMonitor creates a monitor with the given options.
func NewMonitor(opts Options) *Monitor {
	o := opts.withDefaults()
	return &Monitor{
		opts:        o,
		latencies:   make([]float64, 0, o.Capacity),
		confidences: make([]float64, 0, o.Capacity),
		anomalies:   make(map[string]int64),
	}
}

// RecordPrediction appends one decision cycle's latency and confidence and
// runs the anomaly checks. A single call may increment zero, one, or several
// counters.
func (m *Monitor) RecordPrediction(latencyMs, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latencies = push(m.latencies, latencyMs, m.opts.Capacity)
	m.confidences = push(m.confidences, confidence, m.opts.Capacity)

	if confidence < veryLowConfidenceBound {
		m.anomalies[AnomalyVeryLowConfidence]++
	}
	if confidence < lowConfidenceBound {
		m.anomalies[AnomalyLowConfidence]++
	}
	if latencyMs > highLatencyBoundMs {
		m.anomalies[AnomalyHighLatency]++
	}
}

// push appends v and FIFO-trims from the front past capacity.
func push(buf []float64, v float64, capacity int) []float64 {
	buf = append(buf, v)
	if len(buf) > capacity {
		n := copy(buf, buf[len(buf)-capacity:])
		buf = buf[:n]
	}
	return buf
}

// Snapshot derives the current summary statistics. Pure read; the buffers
// are not mutated.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.anomalies))
	for k, v := range m.anomalies {
		counters[k] = v
	}

	return Snapshot{
		Timestamp:      time.Now(),
		ModelLatencyMs: mean(m.latencies),
		LatencyP95:     percentile95(m.latencies),
		ConfidenceMean: mean(m.confidences),
		ConfidenceStd:  sampleStd(m.confidences),
		Anomalies:      counters,
	}
}

// Clear empties both buffers and resets the anomaly counters. Never called
// automatically.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = m.latencies[:0]
	m.confidences = m.confidences[:0]
	m.anomalies = make(map[string]int64)
}

// SampleCount returns how many confidence samples the monitor currently holds.
func (m *Monitor) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.confidences)
}

// DetectDrift compares the mean of the most recent DriftWindow confidences
// against the mean of everything before it. It returns false, not an error,
// until the history holds at least twice the window size; drift detection is
// a best-effort early-warning signal, not a hard gate.
func (m *Monitor) DetectDrift() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := m.opts.DriftWindow
	n := len(m.confidences)
	if n < 2*window {
		return false
	}

	recent := mean(m.confidences[n-window:])
	historical := mean(m.confidences[:n-window])
	return math.Abs(recent-historical) >= m.opts.AnomalyThreshold
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// sampleStd is the n-1 denominator standard deviation; zero below two samples.
func sampleStd(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	sum := 0.0
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(v)-1))
}

// percentile95 uses the nearest-rank method: sort ascending, take the value
// at floor(count*0.95), clamped to the last index.
func percentile95(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
