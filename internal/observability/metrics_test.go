package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordWait(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.RecordWait("altitude", "success", 12.5)
	collector.RecordWait("altitude", "success", 3.0)
	collector.RecordWait("waypoint", "timeout", 400)

	if got := testutil.ToFloat64(collector.Waits.WithLabelValues("altitude", "success")); got != 2 {
		t.Fatalf("sitlcheck_waits_total{altitude,success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Waits.WithLabelValues("waypoint", "timeout")); got != 1 {
		t.Fatalf("sitlcheck_waits_total{waypoint,timeout} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "sitlcheck_wait_duration_sim_seconds", "op", "altitude"); count != 2 {
		t.Fatalf("sitlcheck_wait_duration_sim_seconds sample_count = %d, want 2", count)
	}
}

func TestRecordTest(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.RecordTest("copter", "pass")
	collector.RecordTest("copter", "fail")
	collector.RecordTest("copter", "fail")

	if got := testutil.ToFloat64(collector.Tests.WithLabelValues("copter", "fail")); got != 2 {
		t.Fatalf("sitlcheck_tests_total{copter,fail} = %v, want 2", got)
	}
}

func TestDuplicateRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector (again): %v", err)
	}

	first.RecordWait("mode", "failure", 1)
	second.RecordWait("mode", "failure", 1)
	if got := testutil.ToFloat64(first.Waits.WithLabelValues("mode", "failure")); got != 2 {
		t.Fatalf("shared counter = %v, want 2", got)
	}
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	collector.RecordWait("distance", "failure", 7)
	collector.RecordTest("rover", "pass")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sitlcheck_waits_total",
		"sitlcheck_wait_duration_sim_seconds",
		"sitlcheck_tests_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name, label, value string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value && m.GetHistogram() != nil {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}
