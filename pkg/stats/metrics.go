package stats

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "cypherfuzz"

// Metrics exports statistics on its own registry so several runs in one
// process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	queries  *prometheus.CounterVec
	attempts prometheus.Histogram
	nodes    prometheus.Histogram
	depth    prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Generated queries by result.",
			},
			[]string{"result"}, // ok, error, duplicate, generation_failed
		),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Attempts the generator needed per query.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16},
		}),
		nodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ast_nodes",
			Help:      "Node count of generated trees.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10), // 8 to 4096
		}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ast_depth",
			Help:      "Depth of generated trees.",
			Buckets:   prometheus.LinearBuckets(5, 5, 12),
		}),
	}
	m.registry.MustRegister(m.queries, m.attempts, m.nodes, m.depth)
	return m
}

// Registry is the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordTreeShape(nodeCount, depth int) {
	m.nodes.Observe(float64(nodeCount))
	m.depth.Observe(float64(depth))
}

func (m *Metrics) RecordOutcome(o Observation) {
	m.queries.WithLabelValues(string(o.Result)).Inc()
	if o.Attempts > 0 {
		m.attempts.Observe(float64(o.Attempts))
	}
	if o.Result != ResultGenerationFailed {
		m.RecordTreeShape(o.NodeCount, o.Depth)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("address", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
