// Package metrics exports generation metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process. It implements
// generate.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	TokensTotal      prometheus.Counter
	SequencesTotal   prometheus.Counter
	StepDuration     prometheus.Histogram
	SequenceDuration prometheus.Histogram
	BatchRows        prometheus.Histogram
	RequestsTotal    *prometheus.CounterVec
	ModelInfo        *prometheus.GaugeVec
}

// New registers the collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		TokensTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gpt2_tokens_generated_total",
			Help: "The total number of tokens generated",
		}),
		SequencesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gpt2_sequences_total",
			Help: "The total number of completed decode calls",
		}),
		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gpt2_step_duration_seconds",
			Help:    "Duration of one decode step (forward pass and sampling)",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		SequenceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gpt2_sequence_duration_seconds",
			Help:    "Duration of one decode call",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		BatchRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gpt2_batch_rows",
			Help:    "Rows decoded together per step",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gpt2_requests_total",
			Help: "Generation requests by outcome",
		}, []string{"status"}),
		ModelInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gpt2_model_info",
			Help: "Loaded model, always 1",
		}, []string{"model", "n_layer", "n_embd"}),
	}
}

// OnStep records one decode step.
func (m *Metrics) OnStep(_, rows int, elapsed time.Duration) {
	m.StepDuration.Observe(elapsed.Seconds())
	m.BatchRows.Observe(float64(rows))
}

// OnSequence records one finished decode call.
func (m *Metrics) OnSequence(_, tokens int, elapsed time.Duration) {
	m.SequencesTotal.Inc()
	m.TokensTotal.Add(float64(tokens))
	m.SequenceDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
