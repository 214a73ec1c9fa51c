// Package semantic keeps a device-local recall index of previously scored
// messages, keyed by their pseudo-embeddings. It answers one question: "have
// we seen something shaped like this before, and what did we decide?"
//
// The index stores fingerprints and verdicts only — never message text — so
// flagged content cannot be recovered from it. Embeddings are supplied
// precomputed by the caller; nothing is fetched remotely and nothing leaves
// the device.
package semantic

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/clearsignal/smsguard/pkg/textproc"
)

// Match is one recalled neighbor.
type Match struct {
	Fingerprint string  `json:"fingerprint"`
	Verdict     string  `json:"verdict"`
	Similarity  float32 `json:"similarity"`
}

// Index is an in-memory vector index over message pseudo-embeddings.
// chromem-go serializes its own internal state; the index is safe for
// concurrent Remember/Similar calls.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
}

// NewIndex creates an empty index.
func NewIndex() (*Index, error) {
	db := chromem.NewDB()

	// The embedding func only runs if someone queries by text; all writes
	// carry precomputed vectors. It reuses the pipeline's derivation so
	// text queries and stored vectors live in the same space.
	embed := func(_ context.Context, text string) ([]float32, error) {
		vec := toFloat32(textproc.PseudoEmbedding(textproc.Tokenize(textproc.Normalize(text))))
		if isZero(vec) {
			return nil, fmt.Errorf("empty text has no embedding")
		}
		return vec, nil
	}

	col, err := db.CreateCollection("message_recall", nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

// Remember records a scored message under its fingerprint. A zero vector
// (empty message) is silently skipped; re-remembering a fingerprint
// overwrites the previous verdict.
func (ix *Index) Remember(ctx context.Context, fingerprint string, vec []float64, verdict string) error {
	if fingerprint == "" {
		return fmt.Errorf("empty fingerprint")
	}
	emb := toFloat32(vec)
	if isZero(emb) {
		return nil
	}
	doc := chromem.Document{
		ID:        fingerprint,
		Content:   fingerprint,
		Metadata:  map[string]string{"verdict": verdict},
		Embedding: emb,
	}
	if err := ix.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index message: %w", err)
	}
	return nil
}

// Count returns the number of remembered messages.
func (ix *Index) Count() int {
	return ix.col.Count()
}

// Similar returns up to n nearest neighbors of vec by cosine similarity,
// most similar first. An empty index or zero vector yields no matches, not
// an error.
func (ix *Index) Similar(ctx context.Context, vec []float64, n int) ([]Match, error) {
	emb := toFloat32(vec)
	if isZero(emb) || n <= 0 {
		return nil, nil
	}
	if count := ix.col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := ix.col.QueryEmbedding(ctx, emb, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			Fingerprint: r.ID,
			Verdict:     r.Metadata["verdict"],
			Similarity:  r.Similarity,
		})
	}
	return matches, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
