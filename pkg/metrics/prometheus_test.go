package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ Collector = Noop{}
	_ Collector = (*Prometheus)(nil)
)

func TestPrometheus_Counter(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "memkv")

	p.IncCounter("rehash_total", nil, 1)
	p.IncCounter("rehash_total", nil, 2)

	if got := testutil.ToFloat64(p.counters["rehash_total"]); got != 3 {
		t.Fatalf("Expected counter 3, got %v", got)
	}
	if n, err := testutil.GatherAndCount(reg, "memkv_rehash_total"); err != nil || n != 1 {
		t.Fatalf("Expected one registered series, got %d (%v)", n, err)
	}
}

func TestPrometheus_GaugeWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "memkv")

	p.SetGauge("segments", map[string]string{"state": "sealed"}, 4)
	p.SetGauge("segments", map[string]string{"state": "sealed"}, 2)

	got := testutil.ToFloat64(p.gauges["segments"].WithLabelValues("sealed"))
	if got != 2 {
		t.Fatalf("Expected gauge 2, got %v", got)
	}
}

func TestPrometheus_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "memkv")

	p.ObserveHistogram("relocated_records", nil, 12)

	if n := testutil.CollectAndCount(p.histograms["relocated_records"]); n != 1 {
		t.Fatalf("Expected one histogram series, got %d", n)
	}
}

func TestPrometheus_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheus(reg, "memkv")
	second := NewPrometheus(reg, "memkv")

	first.IncCounter("rotation_total", nil, 1)
	second.IncCounter("rotation_total", nil, 1)

	if got := testutil.ToFloat64(first.counters["rotation_total"]); got != 2 {
		t.Fatalf("Expected both collectors to share the series, got %v", got)
	}
}
