// Package metrics provides Prometheus metrics for the output drainer.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drainTasksStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procdrain",
		Subsystem: "drain",
		Name:      "tasks_started_total",
		Help:      "Drain tasks submitted to the reader pool",
	}, []string{"stream"})

	drainTasksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "procdrain",
		Subsystem: "drain",
		Name:      "tasks_active",
		Help:      "Drain tasks currently polling a process",
	})

	drainChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procdrain",
		Subsystem: "drain",
		Name:      "chunks_total",
		Help:      "Non-empty chunks dispatched to callbacks",
	}, []string{"stream"})

	drainBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procdrain",
		Subsystem: "drain",
		Name:      "bytes_total",
		Help:      "Bytes of process output drained",
	}, []string{"stream"})

	drainReadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procdrain",
		Subsystem: "drain",
		Name:      "read_failures_total",
		Help:      "Reads that failed and terminated their drain task",
	}, []string{"stream"})

	// Local cache so the API can report totals without scraping.
	drainCache   = make(map[string]*DrainStreamStats)
	drainCacheMu sync.RWMutex
)

// DrainStreamStats holds current counter values for one stream label.
type DrainStreamStats struct {
	TasksStarted float64
	Chunks       float64
	Bytes        float64
	ReadFailures float64
}

// DrainTaskStarted records a drain task entering its poll loop.
func DrainTaskStarted(stream string) {
	drainTasksStarted.WithLabelValues(stream).Inc()
	drainTasksActive.Inc()
	updateDrainCache(stream, func(s *DrainStreamStats) { s.TasksStarted++ })
}

// DrainTaskTerminated records a drain task leaving its poll loop.
func DrainTaskTerminated(string) {
	drainTasksActive.Dec()
}

// DrainChunk records one dispatched chunk of the given size.
func DrainChunk(stream string, size int) {
	drainChunks.WithLabelValues(stream).Inc()
	drainBytes.WithLabelValues(stream).Add(float64(size))
	updateDrainCache(stream, func(s *DrainStreamStats) {
		s.Chunks++
		s.Bytes += float64(size)
	})
}

// DrainReadFailure records a read error that ended a drain task.
func DrainReadFailure(stream string) {
	drainReadFailures.WithLabelValues(stream).Inc()
	updateDrainCache(stream, func(s *DrainStreamStats) { s.ReadFailures++ })
}

// GetDrainStats returns current counter values for a stream label, or nil
// if nothing has been drained on it.
func GetDrainStats(stream string) *DrainStreamStats {
	drainCacheMu.RLock()
	defer drainCacheMu.RUnlock()
	if s, ok := drainCache[stream]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// GetAllDrainStats returns counter values for every stream label seen.
func GetAllDrainStats() map[string]*DrainStreamStats {
	drainCacheMu.RLock()
	defer drainCacheMu.RUnlock()
	result := make(map[string]*DrainStreamStats, len(drainCache))
	for stream, s := range drainCache {
		dup := *s
		result[stream] = &dup
	}
	return result
}

func updateDrainCache(stream string, update func(*DrainStreamStats)) {
	drainCacheMu.Lock()
	defer drainCacheMu.Unlock()
	s, ok := drainCache[stream]
	if !ok {
		s = &DrainStreamStats{}
		drainCache[stream] = s
	}
	update(s)
}
