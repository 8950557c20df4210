// Package metrics exposes branch and run counters for Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meow-stack/stagefan/internal/orchestrator"
)

const namespace = "stagefan"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	branches       *prometheus.CounterVec
	branchDuration *prometheus.HistogramVec
	runs           *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg gets a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		branches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "branches_total",
				Help:      "Finished branches by pipeline and status.",
			},
			[]string{"pipeline", "status"},
		),
		branchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "branch_duration_seconds",
				Help:      "Wall time of branch execution.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
			},
			[]string{"pipeline"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Aggregated runs by pipeline and outcome.",
			},
			[]string{"pipeline", "outcome"},
		),
	}
	reg.MustRegister(m.branches, m.branchDuration, m.runs)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ForPipeline returns an observer that labels branches with pipeline.
func (m *Metrics) ForPipeline(pipeline string) orchestrator.BranchObserver {
	return branchObserver{m: m, pipeline: pipeline}
}

type branchObserver struct {
	m        *Metrics
	pipeline string
}

func (o branchObserver) ObserveBranch(out orchestrator.BranchOutcome) {
	o.m.branches.WithLabelValues(o.pipeline, string(out.Status)).Inc()
	o.m.branchDuration.WithLabelValues(o.pipeline).Observe(out.Duration.Seconds())
}

// Aggregator returns an aggregator that counts each finished run as
// "success" or "failure".
func (m *Metrics) Aggregator() orchestrator.Aggregator {
	return orchestrator.AggregatorFunc(func(ctx context.Context, r *orchestrator.Report) error {
		outcome := "success"
		if !r.Succeeded() {
			outcome = "failure"
		}
		m.runs.WithLabelValues(r.Pipeline, outcome).Inc()
		return nil
	})
}
