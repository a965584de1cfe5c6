package cache

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lpp-backend/internal/observability"
)

type entry struct {
	records []string
}

func TestSession(t *testing.T) {
	metrics := observability.NewCollector("test")
	s := NewSession[*entry]("catalog", zap.NewNop(), metrics)

	t.Run("empty cache misses", func(t *testing.T) {
		v, ok := s.Get()
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("set then get returns the same pointer", func(t *testing.T) {
		e := &entry{records: []string{"Asha"}}
		s.Set(e)

		v, ok := s.Get()
		require.True(t, ok)
		assert.Same(t, e, v)

		v2, ok := s.Get()
		require.True(t, ok)
		assert.Same(t, e, v2)
	})

	t.Run("set overwrites", func(t *testing.T) {
		e := &entry{records: []string{"Bora"}}
		s.Set(e)
		v, _ := s.Get()
		assert.Same(t, e, v)
	})

	t.Run("clear drops the value", func(t *testing.T) {
		s.Clear()
		_, ok := s.Get()
		assert.False(t, ok)
	})

	stats := s.GetStats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Sets)
	assert.InDelta(t, 0.6, stats.HitRate, 0.0001)
	assert.False(t, stats.Present)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheMisses))
}

func TestSessionWithoutMetrics(t *testing.T) {
	s := NewSession[int]("counter", nil, nil)
	s.Set(7)
	v, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := NewSession[int]("counter", zap.NewNop(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Set(n)
		}(i)
		go func() {
			defer wg.Done()
			s.Get()
		}()
	}
	wg.Wait()

	stats := s.GetStats()
	assert.Equal(t, int64(50), stats.Sets)
	assert.Equal(t, int64(50), stats.Hits+stats.Misses)
	assert.True(t, stats.Present)
}
