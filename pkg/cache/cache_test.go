package cache

import (
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testBackend(t *testing.T, c VectorCache) {
	t.Helper()

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}

	vec := []float64{0.25, 0.5, 0.75}
	c.Set("fp1", vec)
	got, ok := c.Get("fp1")
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if len(got) != len(vec) {
		t.Fatalf("expected %d elements, got %d", len(vec), len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("element %d changed: %v != %v", i, got[i], vec[i])
		}
	}

	// Overwrite is last-writer-wins.
	c.Set("fp1", []float64{1})
	got, _ = c.Get("fp1")
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected overwrite to win, got %v", got)
	}

	c.Clear()
	if _, ok := c.Get("fp1"); ok {
		t.Fatalf("expected empty cache after clear")
	}
}

func TestMemory(t *testing.T) {
	testBackend(t, NewMemory())
}

func TestMemoryConcurrent(t *testing.T) {
	c := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// All goroutines race on the same key; the value is
			// deterministic so any winner is acceptable.
			c.Set("shared", []float64{1, 2, 3})
			if v, ok := c.Get("shared"); ok && len(v) != 3 {
				t.Errorf("got corrupted vector of length %d", len(v))
			}
		}()
	}
	wg.Wait()
	if _, ok := c.Get("shared"); !ok {
		t.Fatalf("expected key present after concurrent writes")
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	testBackend(t, NewRedis(rdb, "test:vec:", 0))
}

func TestRedisClearScopesToPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	a := NewRedis(rdb, "a:", 0)
	b := NewRedis(rdb, "b:", 0)
	a.Set("k", []float64{1})
	b.Set("k", []float64{2})

	a.Clear()
	if _, ok := a.Get("k"); ok {
		t.Fatalf("expected a: cleared")
	}
	if _, ok := b.Get("k"); !ok {
		t.Fatalf("clear of a: must not touch b:")
	}
}

func TestRedisUnreachableDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedis(rdb, "test:vec:", 0)
	c.Set("fp1", []float64{1})

	// Every operation must survive the backend going away: sets and clears
	// are dropped, gets are misses.
	mr.Close()
	c.Set("fp2", []float64{2})
	c.Clear()
	if _, ok := c.Get("fp1"); ok {
		t.Fatalf("expected miss from unreachable backend")
	}
}
