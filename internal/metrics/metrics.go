// Package metrics records run statistics in a Prometheus registry.
//
// A reaper run is a batch job, so metrics are exported at the end of the run
// either as a node-exporter textfile or pushed to a Pushgateway.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the run collectors. A nil *Metrics discards everything.
type Metrics struct {
	registry *prometheus.Registry

	fetches        *prometheus.CounterVec
	itemsVisited   prometheus.Counter
	skips          *prometheus.CounterVec
	classified     *prometheus.CounterVec
	deletions      *prometheus.CounterVec
	catalogEntries *prometheus.GaugeVec
	scanDuration   *prometheus.HistogramVec
	lastRun        prometheus.Gauge
}

// New creates Metrics backed by a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reaper_fetch_total",
			Help: "Storage API listing requests by result",
		}, []string{"result"}),
		itemsVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reaper_items_visited_total",
			Help: "Tree nodes considered by the walker",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reaper_skips_total",
			Help: "Entries routed to the skip list by reason",
		}, []string{"reason"}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reaper_classified_total",
			Help: "Development entries by classification outcome and reason",
		}, []string{"outcome", "reason"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reaper_deletions_total",
			Help: "Deletion executor results by action",
		}, []string{"action"}),
		catalogEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reaper_catalog_entries",
			Help: "Entries in the last catalog per repository",
		}, []string{"repo"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reaper_scan_duration_seconds",
			Help:    "Wall time of a repository walk",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"repo"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reaper_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.fetches,
		m.itemsVisited,
		m.skips,
		m.classified,
		m.deletions,
		m.catalogEntries,
		m.scanDuration,
		m.lastRun,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch counts a storage API request.
func (m *Metrics) ObserveFetch(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
}

// ObserveVisit counts one considered tree node.
func (m *Metrics) ObserveVisit() {
	if m == nil {
		return
	}
	m.itemsVisited.Inc()
}

// ObserveSkip counts a skip record.
func (m *Metrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(reason).Inc()
}

// ObserveClassification counts one classified entry.
func (m *Metrics) ObserveClassification(outcome, reason string) {
	if m == nil {
		return
	}
	m.classified.WithLabelValues(outcome, reason).Inc()
}

// ObserveDeletion counts one executor action.
func (m *Metrics) ObserveDeletion(action string) {
	if m == nil {
		return
	}
	m.deletions.WithLabelValues(action).Inc()
}

// ObserveScan records a finished walk.
func (m *Metrics) ObserveScan(repo string, entries int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.catalogEntries.WithLabelValues(repo).Set(float64(entries))
	m.scanDuration.WithLabelValues(repo).Observe(elapsed.Seconds())
}

// Export stamps the finish time and writes the registry to a textfile
// and/or a Pushgateway. Empty targets are skipped.
func (m *Metrics) Export(textfile, pushgateway, job string) error {
	if m == nil {
		return nil
	}
	m.lastRun.SetToCurrentTime()

	if textfile != "" {
		if err := prometheus.WriteToTextfile(textfile, m.registry); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if pushgateway != "" {
		if err := push.New(pushgateway, job).Gatherer(m.registry).Push(); err != nil {
			return fmt.Errorf("push metrics: %w", err)
		}
	}
	return nil
}
