package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
)

// Cache keys mirrored from the browser client.
const (
	CacheKeyEvents        = "roadside_events"
	CacheKeyVendors       = "roadside_vendors"
	CacheKeyDBSeeded      = "roadside_db_seeded"
	CacheKeyVendorsSeeded = "roadside_vendors_seeded"
)

// CacheService is a file-backed string key-value store holding the
// last-known snapshots and one-time seed flags. It is read only as a
// fallback when the remote store errors and written only as a cache,
// never as primary persistence.
type CacheService struct {
	dir   string
	mutex sync.Mutex
}

// NewCacheService creates the cache directory if needed.
func NewCacheService(dir string) (*CacheService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &CacheService{dir: dir}, nil
}

// Get returns the stored value for key, or "" and false when absent.
func (s *CacheService) Get(key string) (string, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set stores value under key. Failures are logged, not returned: a
// broken cache must never fail the caller's primary action.
func (s *CacheService) Set(key, value string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.WriteFile(s.path(key), []byte(value), 0o644); err != nil {
		log.Warnf("cache write failed for %s: %v", key, err)
	}
}

// Flag reports whether a one-time flag key is set.
func (s *CacheService) Flag(key string) bool {
	v, ok := s.Get(key)
	return ok && v == "true"
}

// SetFlag sets a one-time flag key.
func (s *CacheService) SetFlag(key string) {
	s.Set(key, "true")
}

func (s *CacheService) path(key string) string {
	// Keys are fixed constants, but keep them path-safe anyway.
	name := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, name+".json")
}
