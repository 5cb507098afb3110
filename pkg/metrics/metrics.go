// Package metrics holds the Prometheus collectors of the service. Each Metrics
// value owns its registry so tests and multiple servers never collide.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modelhub"

type Metrics struct {
	registry *prometheus.Registry

	predictionsTotal  *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	signaturesTotal   *prometheus.CounterVec
	reapedTotal       prometheus.Counter
}

func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Predictions that reached a final status, by status and model format",
			},
			[]string{"status", "format"},
		),
		inferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Time spent loading and running a model, by model format",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		signaturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signatures_created_total",
				Help:      "Signatures created, by source",
			},
			[]string{"source"},
		),
		reapedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_reaped_total",
				Help:      "Stale predictions moved to FAILED",
			},
		),
	}

	for _, collector := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.predictionsTotal,
		m.inferenceDuration,
		m.signaturesTotal,
		m.reapedTotal,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// Nop returns collectors that are registered nowhere visible.
func Nop() *Metrics {
	m, err := New()
	if err != nil {
		panic(err)
	}

	return m
}

func (m *Metrics) PredictionFinished(status, format string) {
	m.predictionsTotal.WithLabelValues(status, format).Inc()
}

func (m *Metrics) ObserveInference(format string, elapsed time.Duration) {
	m.inferenceDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

func (m *Metrics) SignatureCreated(source string) {
	m.signaturesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) PredictionsReaped(count int64) {
	m.reapedTotal.Add(float64(count))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
