package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/clearsignal/smsguard/pkg/cache"
)

// maxTokenLen caps individual token length; longer tokens are truncated to
// their first maxTokenLen runes.
const maxTokenLen = 50

// Processor runs the preprocessing pipeline. The zero value is unusable;
// build one with NewProcessor.
type Processor struct {
	cache   cache.VectorCache
	verbose bool
}

// NewProcessor creates a pipeline. vc may be nil when verbose is false.
// In verbose mode the processor derives a pseudo-embedding per message and
// memoizes it in vc under the message fingerprint.
func NewProcessor(vc cache.VectorCache, verbose bool) *Processor {
	return &Processor{cache: vc, verbose: verbose}
}

// Process runs the full pipeline over raw text. It never fails: malformed
// input produces an empty token list and zero features.
func (p *Processor) Process(raw string) *Message {
	normalized := Normalize(raw)
	tokens := Tokenize(normalized)

	msg := &Message{
		Normalized:    normalized,
		Tokens:        tokens,
		Language:      detectLanguage(tokens),
		OriginalLen:   utf8.RuneCountInString(raw),
		NormalizedLen: utf8.RuneCountInString(normalized),
		TokenCount:    len(tokens),
		Features:      shallowFeatures(raw),
		Fingerprint:   Fingerprint(normalized),
	}

	if p.verbose && p.cache != nil {
		// Both sides of a same-key race compute the identical vector, so a
		// double miss here is harmless.
		if vec, ok := p.cache.Get(msg.Fingerprint); ok {
			msg.Embedding = &EmbeddingRef{Source: EmbeddingCached, Dim: len(vec)}
		} else {
			vec := PseudoEmbedding(tokens)
			p.cache.Set(msg.Fingerprint, vec)
			msg.Embedding = &EmbeddingRef{Source: EmbeddingGenerated, Dim: len(vec)}
		}
	}

	return msg
}

// Normalize applies NFKC compatibility normalization, collapses all control
// and non-breaking whitespace into single ASCII spaces, and trims the ends.
// Normalize is a fixed point: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// tokenBoundary reports runes that separate tokens: whitespace plus every
// punctuation and symbol rune. Splitting on these subsumes stripping
// leading/trailing punctuation from individual tokens.
func tokenBoundary(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Tokenize splits normalized text into cleaned tokens: lowercase, no
// punctuation, each capped at maxTokenLen runes. Order is message order and
// duplicates are retained.
func Tokenize(normalized string) []string {
	fields := strings.FieldsFunc(normalized, tokenBoundary)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if utf8.RuneCountInString(f) > maxTokenLen {
			f = string([]rune(f)[:maxTokenLen])
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Fingerprint hashes normalized text into a stable hex content identity.
// The input is re-normalized and trimmed once more so that callers holding
// text from older pipeline versions still land on the same key.
func Fingerprint(normalized string) string {
	canonical := strings.TrimSpace(norm.NFKC.String(normalized))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// langProfiles are tiny stopword sets for a best-effort dominant-language
// guess. This is intentionally crude: a wrong or absent guess only affects
// diagnostics, never scoring.
var langProfiles = []struct {
	lang  string
	words map[string]bool
}{
	{"en", wordSet("the", "and", "you", "your", "for", "have", "this", "with", "are", "from", "call", "text", "has", "been")},
	{"es", wordSet("que", "los", "las", "una", "para", "con", "por", "del", "esta", "ahora", "gratis", "usted")},
	{"fr", wordSet("les", "des", "est", "pour", "vous", "avec", "dans", "votre", "pas", "sur", "une")},
	{"de", wordSet("und", "der", "die", "das", "sie", "mit", "ist", "nicht", "ein", "ihre", "wurde")},
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// detectLanguage returns the dominant language tag, or "" when no profile
// matches at least two tokens. Ties resolve to the earlier profile so the
// guess stays deterministic.
func detectLanguage(tokens []string) string {
	best, bestHits := "", 0
	for _, p := range langProfiles {
		hits := 0
		for _, tok := range tokens {
			if p.words[tok] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = p.lang, hits
		}
	}
	if bestHits < 2 {
		return ""
	}
	return best
}
