// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// Label values for result-style counters.
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultTypeMismatch = "type_mismatch"
	ResultDecodeError  = "decode_error"
	ResultError        = "error"
	ResultCorruption   = "corruption"
)

// Metrics holds the repository and resolver counters. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	StorageLoads *prometheus.CounterVec
	Flushes      *prometheus.CounterVec
	Resolutions  *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muckdb_cache_hits_total",
			Help: "Entity lookups served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muckdb_cache_misses_total",
			Help: "Entity lookups that fell through to storage",
		}),
		StorageLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "muckdb_storage_loads_total",
				Help: "Entity loads from the storage backend by result",
			},
			[]string{"result"},
		),
		Flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "muckdb_flushes_total",
				Help: "Entity flushes to the storage backend by result",
			},
			[]string{"result"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "muckdb_resolutions_total",
				Help: "Name resolutions by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.CacheHits, m.CacheMisses, m.StorageLoads, m.Flushes, m.Resolutions)
	return m
}

// CacheHit counts a cache hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// CacheMiss counts a cache miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// StorageLoad counts a backend load with its result.
func (m *Metrics) StorageLoad(result string) {
	if m != nil {
		m.StorageLoads.WithLabelValues(result).Inc()
	}
}

// Flush counts a flush with its result.
func (m *Metrics) Flush(result string) {
	if m != nil {
		m.Flushes.WithLabelValues(result).Inc()
	}
}

// Resolution counts a name resolution with its outcome.
func (m *Metrics) Resolution(outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
	}
}
