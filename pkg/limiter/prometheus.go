package limiter

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder adapts a Prometheus registry to the MetricsRecorder
// interface. Collectors are created lazily, one per metric name, each with a
// single "scope" label matching the tags the limiter emits.
type PrometheusRecorder struct {
	reg        prometheus.Registerer
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusRecorder builds a recorder registering its collectors with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics
// handler.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	return &PrometheusRecorder{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusRecorder) Add(name string, value float64, tags map[string]string) {
	p.counter(name).WithLabelValues(tags["scope"]).Add(value)
}

func (p *PrometheusRecorder) Observe(name string, value float64, tags map[string]string) {
	p.histogram(name).WithLabelValues(tags["scope"]).Observe(value)
}

func (p *PrometheusRecorder) counter(name string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: promName(name) + "_total",
		Help: "Rate limiter counter " + name,
	}, []string{"scope"})
	p.reg.MustRegister(c)
	p.counters[name] = c
	return c
}

func (p *PrometheusRecorder) histogram(name string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    promName(name) + "_seconds",
		Help:    "Rate limiter timing " + name,
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})
	p.reg.MustRegister(h)
	p.histograms[name] = h
	return h
}

// promName maps dotted metric names to the underscore form Prometheus requires.
func promName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

var _ MetricsRecorder = (*PrometheusRecorder)(nil)
