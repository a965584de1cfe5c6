// Package cache provides the in-memory session cache for built catalogs.
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"lpp-backend/internal/observability"
)

// Session holds at most one value for the lifetime of the process. It has no
// TTL and no eviction: the value is replaced by Set and dropped only by Clear
// or a restart. Values are handed out as stored, so callers that share a
// pointer type must treat it as read-only.
type Session[T any] struct {
	mu       sync.RWMutex
	value    T
	present  bool
	storedAt time.Time

	// Statistics
	hits   int64
	misses int64
	sets   int64

	name    string
	logger  *zap.Logger
	metrics *observability.Collector
}

// NewSession creates an empty session cache. metrics may be nil.
func NewSession[T any](name string, logger *zap.Logger, metrics *observability.Collector) *Session[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session[T]{
		name:    name,
		logger:  logger,
		metrics: metrics,
	}
}

// Get returns the cached value and whether one is present.
func (s *Session[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.present {
		s.misses++
		s.metrics.RecordCacheMiss()
		var zero T
		return zero, false
	}
	s.hits++
	s.metrics.RecordCacheHit()
	return s.value, true
}

// Set replaces the cached value.
func (s *Session[T]) Set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.present = true
	s.storedAt = time.Now()
	s.sets++

	s.logger.Debug("Session cache updated", zap.String("cache", s.name), zap.Int64("sets", s.sets))
}

// Clear drops the cached value.
func (s *Session[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.value = zero
	s.present = false
	s.storedAt = time.Time{}
}

// GetStats returns cache statistics
func (s *Session[T]) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hitRate float64
	if total := s.hits + s.misses; total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}
	return Stats{
		Hits:     s.hits,
		Misses:   s.misses,
		Sets:     s.sets,
		HitRate:  hitRate,
		Present:  s.present,
		StoredAt: s.storedAt,
	}
}

// Stats holds cache statistics
type Stats struct {
	Hits     int64     `json:"hits"`
	Misses   int64     `json:"misses"`
	Sets     int64     `json:"sets"`
	HitRate  float64   `json:"hit_rate"`
	Present  bool      `json:"present"`
	StoredAt time.Time `json:"stored_at,omitempty"`
}
