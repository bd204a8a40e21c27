package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/flowmesh/workflow/metrics"
)

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if metricLabelsMatch(m, labels) {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if metricLabelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func metricLabelsMatch(m *dto.Metric, labels map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	if len(got) != len(labels) {
		return false
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestPrometheusCollectorRegistersWorkflowNamespacedMetrics(t *testing.T) {
	t.Run("gauges and counters report the values passed to the collector", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := metrics.NewPrometheusCollector(reg)

		c.SetInflightExecutors("run-1", 3)
		c.SetQueueDepth("run-1", 5)
		c.SetOutstandingRequests("run-1", 1)
		c.IncSuperSteps("run-1")
		c.IncSuperSteps("run-1")
		c.IncCheckpoints("run-1")
		c.IncFaults("run-1", "executor_error")
		c.RecordExecutorLatency("run-1", "ask", 10*time.Millisecond, "success")

		if v := gaugeValue(t, reg, "workflow_inflight_executors", map[string]string{"run_id": "run-1"}); v != 3 {
			t.Fatalf("expected inflight executors 3, got %v", v)
		}
		if v := gaugeValue(t, reg, "workflow_queue_depth", map[string]string{"run_id": "run-1"}); v != 5 {
			t.Fatalf("expected queue depth 5, got %v", v)
		}
		if v := gaugeValue(t, reg, "workflow_outstanding_requests", map[string]string{"run_id": "run-1"}); v != 1 {
			t.Fatalf("expected outstanding requests 1, got %v", v)
		}
		if v := counterValue(t, reg, "workflow_supersteps_total", map[string]string{"run_id": "run-1"}); v != 2 {
			t.Fatalf("expected 2 supersteps, got %v", v)
		}
		if v := counterValue(t, reg, "workflow_checkpoints_total", map[string]string{"run_id": "run-1"}); v != 1 {
			t.Fatalf("expected 1 checkpoint, got %v", v)
		}
		if v := counterValue(t, reg, "workflow_faults_total", map[string]string{"run_id": "run-1", "kind": "executor_error"}); v != 1 {
			t.Fatalf("expected 1 fault, got %v", v)
		}
	})

	t.Run("a nil registry registers against the default registerer without panicking", func(t *testing.T) {
		c := metrics.NewPrometheusCollector(nil)
		if c == nil {
			t.Fatalf("expected a non-nil collector")
		}
	})
}

func TestNoopCollectorDiscardsEverything(t *testing.T) {
	t.Run("every method is callable without panicking", func(t *testing.T) {
		var n metrics.Noop
		n.SetInflightExecutors("r", 1)
		n.SetQueueDepth("r", 1)
		n.RecordExecutorLatency("r", "e", time.Millisecond, "success")
		n.IncSuperSteps("r")
		n.IncCheckpoints("r")
		n.SetOutstandingRequests("r", 1)
		n.IncFaults("r", "kind")
	})
}
