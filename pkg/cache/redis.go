package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a VectorCache backed by a device-local Redis instance, for
// deployments where several scoring processes on the same device share one
// embedding cache. Nothing here leaves the device: the client should point
// at a loopback or unix-socket address.
//
// All failures degrade to cache misses. A vector cache that drops entries
// is still correct, just slower.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing Redis client. prefix namespaces the keys so the
// cache can share a database with other consumers; ttl <= 0 means entries
// never expire.
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "smsguard:vec:"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(key string) ([]float64, bool) {
	ctx, cancel := r.ctx()
	defer cancel()

	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (r *Redis) Set(key string, vec []float64) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	r.rdb.Set(ctx, r.prefix+key, raw, r.ttl)
}

func (r *Redis) Clear() {
	ctx, cancel := r.ctx()
	defer cancel()

	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		r.rdb.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		// Stale entries survive a failed scan; they age out via ttl or the
		// next successful Clear.
		log.Printf("[cache] redis clear incomplete: %v", err)
	}
}

func (r *Redis) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}
