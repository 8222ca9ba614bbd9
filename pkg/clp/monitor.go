package clp

// monitor.go: Prometheus metrics for search and propagation

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor collects search and propagation metrics from one or more
// Managers. It is safe for concurrent use, so a batch of independent
// Managers may share one. All methods are no-ops on a nil *Monitor.
type Monitor struct {
	nodes        prometheus.Counter
	backtracks   prometheus.Counter
	solutions    prometheus.Counter
	choicePoints prometheus.Counter
	propagations prometheus.Counter
	cycleMerges  prometheus.Counter
	searches     *prometheus.CounterVec
	searchTime   prometheus.Histogram

	peakTrail prometheus.Gauge
	peakQueue prometheus.Gauge

	mu        sync.Mutex
	trailHigh int
	queueHigh int

	registry *prometheus.Registry
}

// NewMonitor creates a Monitor with its own registry. namespace prefixes
// every metric name.
func NewMonitor(namespace string) (*Monitor, error) {
	registry := prometheus.NewRegistry()
	m := &Monitor{
		registry: registry,

		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Goals executed by the search loop",
		}),
		backtracks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtracks_total",
			Help:      "Backtracks performed",
		}),
		solutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solutions_total",
			Help:      "Solutions found",
		}),
		choicePoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choice_points_total",
			Help:      "Choice points created",
		}),
		propagations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bound_propagations_total",
			Help:      "Bound propagation steps",
		}),
		cycleMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_merges_total",
			Help:      "Cycle group merges",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed searches by outcome",
		}, []string{"outcome"}),
		searchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall time of completed searches",
			Buckets:   prometheus.DefBuckets,
		}),
		peakTrail: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trail_peak_entries",
			Help:      "Largest trail length observed",
		}),
		peakQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "propagation_queue_peak",
			Help:      "Largest propagation queue observed",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.nodes,
		m.backtracks,
		m.solutions,
		m.choicePoints,
		m.propagations,
		m.cycleMerges,
		m.searches,
		m.searchTime,
		m.peakTrail,
		m.peakQueue,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry holding the Monitor's metrics.
func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// WriteToTextfile writes the current metrics in text exposition format.
func (m *Monitor) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// ObserveSearch records a finished search. outcome is a short word such as
// "solved", "infeasible" or "error".
func (m *Monitor) ObserveSearch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchTime.Observe(d.Seconds())
}

func (m *Monitor) node() {
	if m != nil {
		m.nodes.Inc()
	}
}

func (m *Monitor) backtrack() {
	if m != nil {
		m.backtracks.Inc()
	}
}

func (m *Monitor) solution() {
	if m != nil {
		m.solutions.Inc()
	}
}

func (m *Monitor) choicePoint() {
	if m != nil {
		m.choicePoints.Inc()
	}
}

func (m *Monitor) propagation() {
	if m != nil {
		m.propagations.Inc()
	}
}

func (m *Monitor) cycleMerge() {
	if m != nil {
		m.cycleMerges.Inc()
	}
}

func (m *Monitor) trailSize(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.trailHigh {
		m.trailHigh = n
		m.peakTrail.Set(float64(n))
	}
}

func (m *Monitor) queueSize(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.queueHigh {
		m.queueHigh = n
		m.peakQueue.Set(float64(n))
	}
}
