// Package scoring fuses shallow text features and an optional external model
// vote into a single bounded risk score.
//
// The engine holds its configuration behind an atomic pointer: evaluation
// reads one consistent snapshot, and LoadConfig swaps the whole document in
// a single store. A reader can never observe a new threshold mixed with an
// old signal list.
package scoring

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/clearsignal/smsguard/pkg/config"
	"github.com/clearsignal/smsguard/pkg/textproc"
)

// squashSteepness controls the logistic normalization. 12 saturates quickly
// around the 0.5 raw-score midpoint: a deliberately sharp decision boundary
// instead of a smooth calibration curve.
const (
	squashSteepness = 12.0
	squashMidpoint  = 0.5
)

// Result is one evaluation outcome. Produced fresh per call, never mutated,
// owned by the caller.
type Result struct {
	// RawScore is the weighted sum of signal contributions. Unbounded above:
	// simultaneous triggers compound.
	RawScore float64 `json:"rawScore"`

	// NormalizedScore is RawScore through the logistic squash, in [0,1].
	NormalizedScore float64 `json:"normalizedScore"`

	// Triggered lists the signals that fired, in configuration order.
	Triggered []string `json:"triggered"`

	// EffectiveThreshold is the global threshold adjusted by the sender's
	// override delta, clamped to [0,1].
	EffectiveThreshold float64 `json:"effectiveThreshold"`

	// ThresholdMet reports NormalizedScore >= EffectiveThreshold. The engine
	// makes no block/allow decision; that policy belongs to the caller.
	ThresholdMet bool `json:"thresholdMet"`

	// Reason is a human-readable justification citing the normalized score
	// against the effective threshold.
	Reason string `json:"reason"`
}

// Engine evaluates messages against the active configuration snapshot.
// Safe for concurrent use.
type Engine struct {
	cfg atomic.Pointer[config.Config]
}

// NewEngine creates an engine. A nil cfg starts from config.Default().
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{}
	e.cfg.Store(cfg)
	return e
}

// Config returns the active configuration snapshot. Callers must treat it as
// read-only.
func (e *Engine) Config() *config.Config {
	return e.cfg.Load()
}

// SetConfig atomically replaces the active configuration.
func (e *Engine) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.cfg.Store(cfg)
}

// LoadConfig parses a complete configuration document and, on success,
// atomically replaces the active configuration for all subsequent
// evaluations. On failure the prior configuration stays untouched and the
// returned error is a *config.ParseError.
func (e *Engine) LoadConfig(data []byte) error {
	cfg, err := config.Parse(data)
	if err != nil {
		return err
	}
	e.cfg.Store(cfg)
	return nil
}

// Evaluate scores one message's shallow features. modelVote is an optional
// external spam probability in [0,1]; sender is an optional identifier
// matched exactly against the per-sender override map. Missing features read
// as zero.
//
// Note the engine does not gate modelVote on MinConfidence; callers that
// want that floor apply it before passing the vote in.
func (e *Engine) Evaluate(features map[string]float64, modelVote *float64, sender string) *Result {
	cfg := e.cfg.Load()

	raw := 0.0
	var triggered []string
	for _, sig := range cfg.Signals {
		if !sig.Active {
			continue
		}
		contribution, fired := evalSignal(sig, features, modelVote)
		raw += contribution
		if fired {
			triggered = append(triggered, sig.Name)
		}
	}

	effective := clamp01(cfg.GlobalThreshold + cfg.PerSenderOverrides[sender])
	normalized := squash(raw)
	met := normalized >= effective

	verdict := "fell short of"
	if met {
		verdict = "met"
	}
	reason := fmt.Sprintf("normalized score %.2f %s effective threshold %.2f", normalized, verdict, effective)

	return &Result{
		RawScore:           raw,
		NormalizedScore:    normalized,
		Triggered:          triggered,
		EffectiveThreshold: effective,
		ThresholdMet:       met,
		Reason:             reason,
	}
}

// evalSignal maps a signal name to its feature rule and returns the weighted
// contribution plus whether the signal fired. Unrecognized names contribute
// nothing and never fire; that keeps old binaries compatible with newer
// configuration documents.
func evalSignal(sig config.Signal, features map[string]float64, modelVote *float64) (float64, bool) {
	switch sig.Name {
	case config.SignalURLPresence:
		if n := features[textproc.FeatureURLCount]; n >= 1 {
			return sig.Weight * math.Min(1, n), true
		}
	case config.SignalPunctuationBurst:
		if rate := features[textproc.FeaturePunctuationRate]; rate > 0.06 {
			return sig.Weight * (rate * 10), true
		}
	case config.SignalCapsBurst:
		if ratio := features[textproc.FeatureCapsRatio]; ratio > 0.25 {
			return sig.Weight * (ratio * 2), true
		}
	case config.SignalCurrencyBurst:
		if n := features[textproc.FeatureCurrencyCount]; n >= 1 {
			return sig.Weight * math.Min(1, n), true
		}
	case config.SignalNumericDensity:
		if density := features[textproc.FeatureNumericDensity]; density > 0.3 {
			return sig.Weight * density, true
		}
	case config.SignalShortMsgWithURL:
		if features[textproc.FeatureShortMsgWithURL] != 0 {
			return sig.Weight, true
		}
	case config.SignalMLSpamVote:
		// The vote always contributes when supplied; it only counts as a
		// triggered signal once the model leans spam.
		if modelVote != nil {
			return sig.Weight * *modelVote, *modelVote >= 0.5
		}
	}
	return 0, false
}

func squash(raw float64) float64 {
	return 1.0 / (1.0 + math.Exp(-squashSteepness*(raw-squashMidpoint)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
