// Package textproc implements the deterministic preprocessing pipeline that
// turns raw message text into a normalized, tokenized, feature-annotated,
// fingerprinted record.
//
// Every transform here is total: arbitrary Unicode input degrades to an
// empty token list and zero-valued features, never to an error. For a given
// configuration the pipeline is a pure function of its input, so outputs are
// reproducible across calls and process restarts.
package textproc

// Shallow feature names produced by Process. The scoring engine reads
// features by these names; a missing entry reads as zero.
const (
	FeaturePunctuationRate = "punctuationRate"
	FeatureCapsRatio       = "capsRatio"
	FeatureURLCount        = "urlCount"
	FeatureCurrencyCount   = "currencyCount"
	FeatureNumericDensity  = "numericDensity"
	FeatureShortMsgWithURL = "shortMsgWithUrl"
)

// Embedding cache markers recorded in verbose mode.
const (
	EmbeddingCached    = "cached"
	EmbeddingGenerated = "generated"
)

// EmbeddingRef records whether the message's pseudo-embedding came from the
// cache or was generated during this call, and how long the vector is.
type EmbeddingRef struct {
	Source string `json:"source"`
	Dim    int    `json:"dim"`
}

// Message is the processed form of one raw message. It is created once per
// Process call and never mutated afterwards. The raw text itself is not
// retained; only the normalized form, tokens, features, and fingerprint
// survive the call.
type Message struct {
	Normalized    string             `json:"normalized"`
	Tokens        []string           `json:"tokens"`
	Language      string             `json:"language,omitempty"`
	OriginalLen   int                `json:"original_len"`
	NormalizedLen int                `json:"normalized_len"`
	TokenCount    int                `json:"token_count"`
	Features      map[string]float64 `json:"features"`

	// Fingerprint is a pure function of the normalized text: the same
	// normalized text always yields the same fingerprint, independent of
	// call order or process restarts. It is a cache key and identity, never
	// a security credential.
	Fingerprint string `json:"fingerprint"`

	Embedding *EmbeddingRef `json:"embedding,omitempty"`
}
