package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"api-conformance/internal/auth"
	"api-conformance/internal/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of one conformance run
type Metrics struct {
	registry *prometheus.Registry

	CasesTotal        *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AuthAttemptsTotal *prometheus.CounterVec
	ModuleSuccess     *prometheus.GaugeVec
	LastRunTimestamp  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	casesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conformance_cases_total",
			Help: "Total number of endpoint cases by module, method and outcome",
		},
		[]string{"module", "method", "outcome"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conformance_request_duration_seconds",
			Help:    "Endpoint request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module", "method"},
	)

	authAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conformance_auth_attempts_total",
			Help: "Total number of login bootstraps by result",
		},
		[]string{"result"},
	)

	moduleSuccess := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conformance_module_success",
			Help: "1 when every case of the module passed in the last run, else 0",
		},
		[]string{"module"},
	)

	lastRunTimestamp := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conformance_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	registry.MustRegister(
		casesTotal,
		requestDuration,
		authAttemptsTotal,
		moduleSuccess,
		lastRunTimestamp,
	)

	return &Metrics{
		registry:          registry,
		CasesTotal:        casesTotal,
		RequestDuration:   requestDuration,
		AuthAttemptsTotal: authAttemptsTotal,
		ModuleSuccess:     moduleSuccess,
		LastRunTimestamp:  lastRunTimestamp,
	}
}

// GetRegistry returns the Prometheus registry for this metrics instance
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// ObserveAuth records the result of a module's login.
func (m *Metrics) ObserveAuth(_ string, s *auth.Session) {
	result := "failure"
	switch {
	case s.Source == "static":
		result = "static"
	case s.Authenticated():
		result = "success"
	case s.Err == nil:
		result = "no_token"
	}
	m.AuthAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveCase records one case outcome and, when a response arrived, its
// duration.
func (m *Metrics) ObserveCase(r types.CaseResult) {
	m.CasesTotal.WithLabelValues(r.Module, string(r.Method), string(r.Outcome)).Inc()
	if r.Status != 0 {
		m.RequestDuration.WithLabelValues(r.Module, string(r.Method)).Observe(r.Duration.Seconds())
	}
}

// ObserveRun sets the per-module success gauges and the run timestamp.
func (m *Metrics) ObserveRun(results []types.ModuleResult) {
	var last float64
	for _, r := range results {
		ok := 0.0
		if r.Counts().OK() {
			ok = 1
		}
		m.ModuleSuccess.WithLabelValues(r.Module).Set(ok)
		if ts := float64(r.EndTime.Unix()); ts > last {
			last = ts
		}
	}
	m.LastRunTimestamp.Set(last)
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
