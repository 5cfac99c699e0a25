// Package telemetry exposes the process counters served on /metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twigraph"

// Recorder holds the counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	chunks      *prometheus.CounterVec
	posts       *prometheus.CounterVec
	rounds      prometheus.Counter
	appends     prometheus.Counter
	metricPass  *prometheus.CounterVec
	graphNodes  prometheus.Gauge
	graphEdges  prometheus.Gauge
	passSeconds *prometheus.HistogramVec
}

// New registers the counters on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Input chunks processed, by outcome.",
		}, []string{"outcome"}),
		posts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Raw posts read from chunks, by outcome.",
		}, []string{"outcome"}),
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagation_rounds_total",
			Help:      "Tag propagation rounds run.",
		}),
		appends: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagation_labels_total",
			Help:      "Labels appended by tag propagation.",
		}),
		metricPass: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_passes_total",
			Help:      "Centrality passes attached, by metric.",
		}, []string{"metric"}),
		graphNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the graph, the public sink included.",
		}),
		graphEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the graph.",
		}),
		passSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metric_pass_seconds",
			Help:      "Duration of centrality passes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"metric"}),
	}
}

// Chunk records one processed chunk and its post outcomes.
func (r *Recorder) Chunk(unreadable bool, accepted, ignored, failed int) {
	if r == nil {
		return
	}
	if unreadable {
		r.chunks.WithLabelValues("unreadable").Inc()
		return
	}
	r.chunks.WithLabelValues("ingested").Inc()
	r.posts.WithLabelValues("accepted").Add(float64(accepted))
	r.posts.WithLabelValues("ignored").Add(float64(ignored))
	r.posts.WithLabelValues("failed").Add(float64(failed))
}

// Propagation records a finished propagation run.
func (r *Recorder) Propagation(rounds, appends int) {
	if r == nil {
		return
	}
	r.rounds.Add(float64(rounds))
	r.appends.Add(float64(appends))
}

// MetricPass records one centrality pass.
func (r *Recorder) MetricPass(name string, seconds float64) {
	if r == nil {
		return
	}
	r.metricPass.WithLabelValues(name).Inc()
	r.passSeconds.WithLabelValues(name).Observe(seconds)
}

// GraphSize sets the size gauges.
func (r *Recorder) GraphSize(nodes, edges int) {
	if r == nil {
		return
	}
	r.graphNodes.Set(float64(nodes))
	r.graphEdges.Set(float64(edges))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
