// Package config holds the scoring configuration document for the smsguard
// core, plus the environment helpers used for operational knobs.
//
// The scoring configuration is replaced wholesale: Parse consumes a complete
// YAML document and either returns a fully-built Config or a ParseError,
// never a partial merge. The engine keeps its previous configuration when
// parsing fails.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Canonical signal names understood by the scoring engine. Names outside
// this set are legal in a configuration document and are skipped at
// evaluation time, so new signals can ship in config ahead of the code that
// understands them.
const (
	SignalURLPresence      = "urlPresence"
	SignalPunctuationBurst = "punctuationBurst"
	SignalCapsBurst        = "capsBurst"
	SignalCurrencyBurst    = "currencyBurst"
	SignalNumericDensity   = "numericDensity"
	SignalShortMsgWithURL  = "shortMsgWithUrl"
	SignalMLSpamVote       = "mlSpamVote"
)

// Signal is a named, weighted scoring rule descriptor. Signals are
// configuration data, not code: the engine maps the name to a fixed
// feature-reading rule.
type Signal struct {
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	Description string  `yaml:"description,omitempty"`
	Active      bool    `yaml:"active"`
}

// Config is the scoring configuration document.
//
// Signals keep their document order and are NOT deduplicated: two entries
// with the same name both contribute to the raw score. The same goes for
// PerSenderOverrides entries written twice in the document (last one wins
// under YAML map semantics). Deduplicating here would silently change
// scoring behaviour, so we don't.
type Config struct {
	// GlobalThreshold is the normalized-score bar a message must meet to be
	// considered risky (0..1).
	GlobalThreshold float64 `yaml:"globalThreshold"`

	// MinConfidence is the floor below which callers should not trust an
	// external model vote. The engine itself does not gate on it; that is a
	// documented caller responsibility.
	MinConfidence float64 `yaml:"minConfidence"`

	// Signals is the ordered rule set evaluated per message.
	Signals []Signal `yaml:"signals"`

	// PerSenderOverrides maps a sender identifier to a threshold delta.
	// Positive raises the bar to flag, negative lowers it (allow-listing a
	// trusted sender uses a positive delta).
	PerSenderOverrides map[string]float64 `yaml:"perSenderOverrides"`
}

// ParseError reports a malformed configuration document. It is always
// recoverable: the caller keeps whatever configuration was active before.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "config: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Parse builds a Config from a complete YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Err: err}
	}
	if cfg.GlobalThreshold < 0 || cfg.GlobalThreshold > 1 {
		return nil, &ParseError{Err: fmt.Errorf("globalThreshold %v outside [0,1]", cfg.GlobalThreshold)}
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, &ParseError{Err: fmt.Errorf("minConfidence %v outside [0,1]", cfg.MinConfidence)}
	}
	for _, s := range cfg.Signals {
		if s.Name == "" {
			return nil, &ParseError{Err: fmt.Errorf("signal with empty name")}
		}
		if s.Weight < 0 {
			return nil, &ParseError{Err: fmt.Errorf("signal %q has negative weight %v", s.Name, s.Weight)}
		}
	}
	if cfg.PerSenderOverrides == nil {
		cfg.PerSenderOverrides = map[string]float64{}
	}
	return &cfg, nil
}

// Marshal renders the configuration back to YAML. Round-tripping the result
// through Parse yields an equivalent Config.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Default returns the stock configuration: every built-in signal active with
// weights tuned so that an obvious spam message (uppercase burst + URL +
// short body) lands a raw score well past the squash midpoint.
func Default() *Config {
	return &Config{
		GlobalThreshold: 0.65,
		MinConfidence:   0.4,
		Signals: []Signal{
			{Name: SignalURLPresence, Weight: 0.3, Description: "message contains a URL", Active: true},
			{Name: SignalPunctuationBurst, Weight: 0.2, Description: "elevated punctuation rate", Active: true},
			{Name: SignalCapsBurst, Weight: 0.25, Description: "shouting in uppercase", Active: true},
			{Name: SignalCurrencyBurst, Weight: 0.3, Description: "currency symbols present", Active: true},
			{Name: SignalNumericDensity, Weight: 0.2, Description: "digit-heavy body", Active: true},
			{Name: SignalShortMsgWithURL, Weight: 0.25, Description: "short message carrying a URL", Active: true},
			{Name: SignalMLSpamVote, Weight: 0.4, Description: "external model spam probability", Active: true},
		},
		PerSenderOverrides: map[string]float64{},
	}
}

// Strict returns a configuration that flags more aggressively. Expect more
// false positives.
func Strict() *Config {
	cfg := Default()
	cfg.GlobalThreshold = 0.5
	cfg.MinConfidence = 0.25
	return cfg
}

// Lenient returns a configuration that minimizes false positives at the cost
// of letting borderline messages through.
func Lenient() *Config {
	cfg := Default()
	cfg.GlobalThreshold = 0.8
	cfg.MinConfidence = 0.6
	return cfg
}

// Helper functions for environment variable parsing.
// These cover the operational knobs (buffer sizes, ports, drift window) that
// live outside the scoring document.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
