package metrics

// Collector captures counters, gauges and histograms.
type Collector interface {
	IncCounter(name string, labels map[string]string, delta float64)
	SetGauge(name string, labels map[string]string, value float64)
	ObserveHistogram(name string, labels map[string]string, value float64)
}

// Noop discards everything.
type Noop struct{}

func (Noop) IncCounter(string, map[string]string, float64)       {}
func (Noop) SetGauge(string, map[string]string, float64)         {}
func (Noop) ObserveHistogram(string, map[string]string, float64) {}
