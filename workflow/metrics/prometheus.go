package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector registers and updates the "workflow_"-namespaced
// metric family with the given registry.
//
// Metrics:
//   - workflow_inflight_executors (gauge, run_id)
//   - workflow_queue_depth (gauge, run_id)
//   - workflow_executor_latency_ms (histogram, run_id, executor_id, status)
//   - workflow_supersteps_total (counter, run_id)
//   - workflow_checkpoints_total (counter, run_id)
//   - workflow_outstanding_requests (gauge, run_id)
//   - workflow_faults_total (counter, run_id, kind)
type PrometheusCollector struct {
	inflight    *prometheus.GaugeVec
	queueDepth  *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	supersteps  *prometheus.CounterVec
	checkpoints *prometheus.CounterVec
	outstanding *prometheus.GaugeVec
	faults      *prometheus.CounterVec
}

// NewPrometheusCollector registers the metric family with registry. A nil
// registry registers against prometheus.DefaultRegisterer.
func NewPrometheusCollector(registry prometheus.Registerer) *PrometheusCollector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)

	return &PrometheusCollector{
		inflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "inflight_executors",
			Help:      "Executor invocations currently running in the active superstep",
		}, []string{"run_id"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "queue_depth",
			Help:      "Envelopes queued for the next superstep",
		}, []string{"run_id"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "executor_latency_ms",
			Help:      "Handler invocation duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"run_id", "executor_id", "status"}),
		supersteps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "supersteps_total",
			Help:      "Completed supersteps",
		}, []string{"run_id"}),
		checkpoints: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "checkpoints_total",
			Help:      "Committed checkpoints",
		}, []string{"run_id"}),
		outstanding: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "outstanding_requests",
			Help:      "Unserviced external requests across all ports",
		}, []string{"run_id"}),
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "faults_total",
			Help:      "Executor faults by kind",
		}, []string{"run_id", "kind"}),
	}
}

func (p *PrometheusCollector) SetInflightExecutors(runID string, n int) {
	p.inflight.WithLabelValues(runID).Set(float64(n))
}

func (p *PrometheusCollector) SetQueueDepth(runID string, n int) {
	p.queueDepth.WithLabelValues(runID).Set(float64(n))
}

func (p *PrometheusCollector) RecordExecutorLatency(runID, executorID string, latency time.Duration, status string) {
	p.latency.WithLabelValues(runID, executorID, status).Observe(float64(latency.Milliseconds()))
}

func (p *PrometheusCollector) IncSuperSteps(runID string) {
	p.supersteps.WithLabelValues(runID).Inc()
}

func (p *PrometheusCollector) IncCheckpoints(runID string) {
	p.checkpoints.WithLabelValues(runID).Inc()
}

func (p *PrometheusCollector) SetOutstandingRequests(runID string, n int) {
	p.outstanding.WithLabelValues(runID).Set(float64(n))
}

func (p *PrometheusCollector) IncFaults(runID, kind string) {
	p.faults.WithLabelValues(runID, kind).Inc()
}
