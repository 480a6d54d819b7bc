// Package telemetry exposes the §4.G statistics for scrape, additive to
// the in-process stats.Stats the driver records its pruning outcomes
// into. Grounded on Hola-to-network_logistics_problem and
// kubernetes-purgatory-karpenter-core, both of which instrument their
// controllers with github.com/prometheus/client_golang counters/gauges
// registered against a dedicated Registry rather than the global default
// one, so a run's metrics can be scraped or discarded independently of
// whatever else shares the process.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/michaelsouza/jessica-bb/internal/stats"
)

// Metrics holds the Prometheus collectors one run registers. The prune and
// feasible counters are labelled by hour and, where relevant, prune
// reason; the elapsed-time gauge is labelled by worker id; the incumbent
// and active-worker gauges carry no labels.
type Metrics struct {
	Registry *prometheus.Registry

	prunings     *prometheus.CounterVec
	feasible     *prometheus.CounterVec
	incumbentUB  prometheus.Gauge
	elapsedSecs  *prometheus.GaugeVec
	workerActive prometheus.Gauge
}

// New registers a fresh set of collectors against a new Registry — never
// the global default, so tests and multiple runs in one process don't
// collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		prunings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bbsolver",
			Name:      "prunings_total",
			Help:      "Count of candidates pruned, by hour and reason.",
		}, []string{"hour", "reason"}),
		feasible: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bbsolver",
			Name:      "feasible_total",
			Help:      "Count of candidates found feasible, by hour.",
		}, []string{"hour"}),
		incumbentUB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bbsolver",
			Name:      "incumbent_cost_ub",
			Help:      "Current best known schedule cost (+Inf until the first feasible leaf).",
		}),
		elapsedSecs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bbsolver",
			Name:      "worker_elapsed_seconds",
			Help:      "Wall time each worker spent searching, by worker id.",
		}, []string{"worker"}),
		workerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bbsolver",
			Name:      "workers_active",
			Help:      "Number of workers still exploring a non-empty subtree.",
		}),
	}
	reg.MustRegister(m.prunings, m.feasible, m.incumbentUB, m.elapsedSecs, m.workerActive)
	return m
}

// ObserveIncumbent records the current global incumbent bound.
func (m *Metrics) ObserveIncumbent(costUB float64) {
	m.incumbentUB.Set(costUB)
}

// ObserveActiveWorkers records how many workers have not yet exhausted
// their subtree.
func (m *Metrics) ObserveActiveWorkers(n int) {
	m.workerActive.Set(float64(n))
}

// ObserveWorker exports one worker's final Stats: per-hour prune counters,
// per-hour feasible counters, and elapsed wall time.
func (m *Metrics) ObserveWorker(workerID string, s *stats.Stats) {
	for h := 0; h <= s.H; h++ {
		hour := strconv.Itoa(h)
		for _, reason := range stats.Reasons() {
			if v := s.Pruning(h, reason); v > 0 {
				m.prunings.WithLabelValues(hour, reason.String()).Add(float64(v))
			}
		}
		if v := s.Feasible(h); v > 0 {
			m.feasible.WithLabelValues(hour).Add(float64(v))
		}
	}
	m.elapsedSecs.WithLabelValues(workerID).Set(s.Elapsed().Seconds())
}
