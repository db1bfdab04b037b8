// Cache generalizes the upstream tools.Cache abstraction (an interface
// over a pluggable data.Connector) to a process-local, ristretto-backed
// TTL cache — there is no persistent-store connector in this domain
// (spec.md is explicit: "no persistent database"), so the only backend
// that makes sense is the bounded in-memory one. The TTL-constant-table
// style is kept from the upstream cache.go.
package tools

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// TTL constants for cached tool outputs, named the way the upstream
// cache.go names its per-kind TTL durations.
const (
	MarketSnapshotTTL = 20 * time.Second
	KlineFeatureTTL   = 20 * time.Second
)

// Cache is the minimal get/set-JSON contract the built-in tools share.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration)
	GetJSON(key string, out interface{}) bool
	SetJSON(key string, value interface{}, ttl time.Duration) error
}

// RistrettoCache implements Cache over dgraph-io/ristretto.
type RistrettoCache struct {
	cache *ristretto.Cache[string, string]
}

// NewRistrettoCache builds a small bounded cache sized for tool-output
// caching (market snapshots, kline features) — a few thousand entries,
// not the millions ristretto is built to scale to.
func NewRistrettoCache() (*RistrettoCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     1 << 20, // 1MiB of cached JSON blobs
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoCache{cache: c}, nil
}

func (c *RistrettoCache) Get(key string) (string, bool) {
	v, ok := c.cache.Get(key)
	return v, ok
}

func (c *RistrettoCache) Set(key, value string, ttl time.Duration) {
	c.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	c.cache.Wait()
}

func (c *RistrettoCache) GetJSON(key string, out interface{}) bool {
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (c *RistrettoCache) SetJSON(key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Set(key, string(raw), ttl)
	return nil
}
