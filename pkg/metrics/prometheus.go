package metrics

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a Collector registering one vector per metric name on first
// use. The label names of a metric are fixed by its first observation.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	return &Prometheus{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *Prometheus) IncCounter(name string, labels map[string]string, delta float64) {
	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		vec = register(p.reg, vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()

	vec.With(labels).Add(delta)
}

func (p *Prometheus) SetGauge(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      name,
		}, labelNames(labels))
		vec = register(p.reg, vec)
		p.gauges[name] = vec
	}
	p.mu.Unlock()

	vec.With(labels).Set(value)
}

func (p *Prometheus) ObserveHistogram(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.ExponentialBuckets(1, 2, 20),
		}, labelNames(labels))
		vec = register(p.reg, vec)
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	vec.With(labels).Observe(value)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}

	err := reg.Register(c)
	if err == nil {
		return c
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	slog.Warn("failed to register metric", "error", err)
	return c
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
