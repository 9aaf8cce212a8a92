package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusUpToDate    = "up_to_date"
	StatusNeedsUpdate = "needs_update"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	registry       *prometheus.Registry
	VersionChecks  *prometheus.CounterVec
	CompareResults *prometheus.CounterVec
	LatestVersion  *prometheus.GaugeVec
	ReleaseFetches prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		VersionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "version_checks",
			Help: "Version checks",
		}, []string{"version", "timezone", "countryCode", "deviceUuid"}),
		CompareResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compare_results",
			Help: "Compare results",
		}, []string{"status"}),
		LatestVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "latest_version",
			Help: "Latest version",
		}, []string{"version"}),
		ReleaseFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "release_fetches",
			Help: "Release fetches from GitHub",
		}),
	}

	m.registry.MustRegister(
		m.VersionChecks,
		m.CompareResults,
		m.LatestVersion,
		m.ReleaseFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordCheck counts a version check from a device
func (m *Metrics) RecordCheck(version, timezone, countryCode, deviceUUID string) {
	m.VersionChecks.WithLabelValues(version, timezone, countryCode, deviceUUID).Inc()
}

// RecordCompare counts a comparison outcome
func (m *Metrics) RecordCompare(upToDate bool) {
	status := StatusNeedsUpdate
	if upToDate {
		status = StatusUpToDate
	}
	m.CompareResults.WithLabelValues(status).Inc()
}

// SetLatestVersion replaces the latest_version series with one for version
func (m *Metrics) SetLatestVersion(version string) {
	m.LatestVersion.Reset()
	m.LatestVersion.WithLabelValues(version).Set(1)
}

// IncReleaseFetches counts an upstream release fetch
func (m *Metrics) IncReleaseFetches() {
	m.ReleaseFetches.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
