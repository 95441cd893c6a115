package telemetry

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trivia-bot/internal/domain"
)

// Metrics implements app.Recorder on top of a dedicated Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	roundsStarted  *prometheus.CounterVec
	roundsFinished *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	activeRounds   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		roundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_rounds_started_total",
			Help: "Rounds started, by difficulty.",
		}, []string{"difficulty"}),
		roundsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_rounds_finished_total",
			Help: "Rounds finished, by outcome (correct, incorrect, expired).",
		}, []string{"outcome"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_provider_errors_total",
			Help: "Question provider failures, by kind.",
		}, []string{"kind"}),
		activeRounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_active_rounds",
			Help: "Rounds currently waiting for an answer.",
		}),
	}
	m.registry.MustRegister(
		m.roundsStarted,
		m.roundsFinished,
		m.providerErrors,
		m.activeRounds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RoundStarted(d domain.Difficulty) {
	m.roundsStarted.WithLabelValues(string(d)).Inc()
	m.activeRounds.Inc()
}

func (m *Metrics) RoundFinished(out domain.Outcome) {
	m.roundsFinished.WithLabelValues(outcomeLabel(out)).Inc()
	m.activeRounds.Dec()
}

func (m *Metrics) ProviderFailed(err error) {
	kind := "unknown"
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		kind = perr.Kind.String()
	}
	m.providerErrors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcomeLabel(out domain.Outcome) string {
	switch {
	case out.State == domain.StateExpired:
		return "expired"
	case out.Correct:
		return "correct"
	default:
		return "incorrect"
	}
}
