package textproc

// EmbeddingDim is the fixed length of the pseudo-embedding vector.
const EmbeddingDim = 64

// PseudoEmbedding derives a deterministic fixed-length vector from a token
// sequence with an FNV-style rolling hash. This is NOT a semantic embedding;
// it is a reproducible placeholder that satisfies "deterministic,
// fixed-length, cache-keyed" until a real encoder sits behind the cache.
// Positions past the token count stay zero.
func PseudoEmbedding(tokens []string) []float64 {
	vec := make([]float64, EmbeddingDim)
	var h uint64 = 14695981039346656037
	for i, tok := range tokens {
		for _, b := range []byte(tok) {
			h = (h ^ uint64(b)) * 1099511628211
		}
		vec[i%EmbeddingDim] += float64(h%1000) / 1000.0
	}
	return vec
}
