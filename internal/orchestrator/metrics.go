// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsOrchestrator holds the Prometheus metrics for the collection
// cycle (spec.md §6 metrics surface).
type metricsOrchestrator struct {
	once sync.Once

	cyclesStarted   prometheus.Counter
	cyclesSkipped   prometheus.Counter
	cyclesSucceeded prometheus.Counter
	cyclesFailed    prometheus.Counter

	extractionsTotal    prometheus.Counter
	discoveriesTotal    prometheus.Counter
	dedupRejectedTotal  prometheus.Counter
	backfillAppliedTotal prometheus.Counter

	phaseDuration   *prometheus.HistogramVec
	cycleDuration   prometheus.Histogram
}

var orchMetrics metricsOrchestrator

func (m *metricsOrchestrator) init() {
	m.once.Do(func() {
		m.cyclesStarted = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_cycles_started_total", Help: "Collection cycles started"})
		m.cyclesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_cycles_skipped_total", Help: "Collection cycles skipped because one was already running"})
		m.cyclesSucceeded = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_cycles_succeeded_total", Help: "Collection cycles that completed without a fatal error"})
		m.cyclesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_cycles_failed_total", Help: "Collection cycles that completed with zero extractions and at least one error"})

		m.extractionsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_extractions_total", Help: "Innovation/publication candidates admitted across all cycles"})
		m.discoveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_discoveries_total", Help: "Candidate targets extracted from intelligence reports, before dedup"})
		m.dedupRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_dedup_rejected_total", Help: "Candidates rejected by the deduplicator as exact or near duplicates"})
		m.backfillAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "collector_backfill_fields_applied_total", Help: "Fields written back to existing records by the backfill engine"})

		buckets := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
		m.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "collector_phase_duration_seconds", Help: "Per-phase duration within a collection cycle", Buckets: buckets,
		}, []string{"phase"})
		m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "collector_cycle_duration_seconds", Help: "Total collection cycle duration", Buckets: buckets,
		})

		prometheus.MustRegister(
			m.cyclesStarted, m.cyclesSkipped, m.cyclesSucceeded, m.cyclesFailed,
			m.extractionsTotal, m.discoveriesTotal, m.dedupRejectedTotal, m.backfillAppliedTotal,
			m.phaseDuration, m.cycleDuration,
		)
	})
}

// observeCycle records a completed (non-skipped) cycle's headline counters.
func observeCycle(result CollectionCycleResult, succeeded bool) {
	orchMetrics.init()
	orchMetrics.extractionsTotal.Add(float64(result.Extractions))
	orchMetrics.discoveriesTotal.Add(float64(result.Discoveries))
	orchMetrics.dedupRejectedTotal.Add(float64(result.Duplicates))
	orchMetrics.backfillAppliedTotal.Add(float64(result.Enrichments))
	orchMetrics.cycleDuration.Observe(result.Duration().Seconds())
	if succeeded {
		orchMetrics.cyclesSucceeded.Inc()
	} else {
		orchMetrics.cyclesFailed.Inc()
	}
	for _, p := range result.Phases {
		orchMetrics.phaseDuration.WithLabelValues(p.Name).Observe(float64(p.DurationMS) / 1000)
	}
}
