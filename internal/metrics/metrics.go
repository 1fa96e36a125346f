// Package metrics defines the Prometheus collectors shared by the
// generation engine and the sync engine. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	Generations   *prometheus.CounterVec
	ExtractStages *prometheus.CounterVec
	RemoteOps     *prometheus.CounterVec
	Recipes       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg gets a
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapcook",
			Name:      "generations_total",
			Help:      "Generation requests by input kind and outcome.",
		}, []string{"kind", "outcome"}),
		ExtractStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapcook",
			Name:      "extract_stage_total",
			Help:      "Successful extractions by the repair stage that decoded them.",
		}, []string{"stage"}),
		RemoteOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapcook",
			Name:      "remote_ops_total",
			Help:      "Remote store operations by kind and result.",
		}, []string{"op", "result"}),
		Recipes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snapcook",
			Name:      "recipes",
			Help:      "Recipes in the active collection.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Generations, m.ExtractStages, m.RemoteOps, m.Recipes)
	return m
}

// Generation counts one finished generation.
func (m *Metrics) Generation(kind, outcome string) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(kind, outcome).Inc()
}

// ExtractStage counts one successful extraction.
func (m *Metrics) ExtractStage(stage string) {
	if m == nil {
		return
	}
	m.ExtractStages.WithLabelValues(stage).Inc()
}

// RemoteOp counts one remote call. err == nil counts as "ok".
func (m *Metrics) RemoteOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RemoteOps.WithLabelValues(op, result).Inc()
}

// SetRecipes records the active collection size.
func (m *Metrics) SetRecipes(n int) {
	if m == nil {
		return
	}
	m.Recipes.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
