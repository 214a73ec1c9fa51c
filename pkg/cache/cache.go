// Package cache provides the fingerprint-keyed vector stores used by the
// preprocessing pipeline to memoize derived artifacts such as
// pseudo-embeddings.
//
// Values are deterministic functions of their key, so the stores tolerate
// racing writers: two concurrent misses for the same fingerprint may both
// compute and both write, and the last writer wins without corrupting
// anything.
package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// VectorCache maps a content fingerprint to a fixed-length numeric vector.
type VectorCache interface {
	// Get returns the cached vector for key, or false when absent.
	Get(key string) ([]float64, bool)

	// Set stores the vector under key, overwriting any previous value.
	Set(key string, vec []float64)

	// Clear drops every entry.
	Clear()
}

// Memory is the default in-process VectorCache. Entries never expire; the
// cache lives and dies with the process.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates an empty in-process vector cache.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *Memory) Get(key string) ([]float64, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float64)
	return vec, ok
}

func (m *Memory) Set(key string, vec []float64) {
	m.c.Set(key, vec, gocache.NoExpiration)
}

func (m *Memory) Clear() {
	m.c.Flush()
}
