package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecorderExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	rec.Transition("request", ResultOK)
	rec.Transition("request", ResultOK)
	rec.Transition("accept", ResultRejected)
	rec.TxnConflict("request")
	rec.ObserveSummary(120 * time.Millisecond)
	rec.Request("GET", "/api/v1/friends", 204)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pilgrim_relationship_transitions_total", map[string]string{"op": "request", "result": "ok"}); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected request/ok=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "pilgrim_store_txn_conflicts_total", map[string]string{"op": "request"}); err != nil {
		t.Fatalf("fetch conflicts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected conflicts=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "pilgrim_http_requests_total", map[string]string{"status": "2xx"}); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 2xx=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "pilgrim_friend_summary_duration_seconds")
	if mf == nil {
		t.Fatal("summary histogram not exported")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.Transition("request", ResultOK)
	rec.TxnConflict("accept")
	rec.ObserveSummary(time.Second)
	rec.Request("GET", "/", 200)

	New(nil).Transition("request", ResultError)
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 304: "3xx", 404: "4xx", 429: "4xx", 503: "5xx", 0: "1xx"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %s, want %s", status, got, want)
		}
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
