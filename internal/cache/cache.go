package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/simtriage/internal/model"
)

const keyPrefix = "simtriage:v1:"

// Cache stores serialized results by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// New builds the layered cache described by cfg, or nil when caching is off
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
}

// SnapshotKey identifies the time-independent analysis of a snapshot: the
// submissions in order plus the aggregation settings. Ranking depends on
// the reference time and is never part of a cached value.
// Snapshots that cannot be encoded (NaN or infinite percentages) have no key.
func SnapshotKey(subs []model.Submission, cfg model.AnalyticsConfig) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("encode analytics config: %w", err)
	}
	if err := enc.Encode(subs); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
