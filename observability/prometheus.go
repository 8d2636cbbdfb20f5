// Package observability exports engine metrics to Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vemos"
)

var _ vemos.MetricsCollector = (*Prometheus)(nil)

// Prometheus implements vemos.MetricsCollector on top of client_golang.
type Prometheus struct {
	opLatency  *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	records    prometheus.Gauge
	matrices   prometheus.Counter
	fusedPairs prometheus.Histogram
}

// NewPrometheus creates the collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "vemos"
	}

	p := &Prometheus{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of engine operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by outcome",
		}, []string{"op", "status"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records of the last successful resolution",
		}),
		matrices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matrices_loaded_total",
			Help:      "Matrices committed by load operations",
		}),
		fusedPairs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fusion_pairs",
			Help:      "Aligned pairs per successful fusion",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{p.opLatency, p.ops, p.records, p.matrices, p.fusedPairs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MustNewPrometheus is like NewPrometheus but panics on registration errors.
func MustNewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	p, err := NewPrometheus(reg, namespace)
	if err != nil {
		panic(err)
	}
	return p
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (p *Prometheus) observe(op string, d time.Duration, err error) {
	s := status(err)
	p.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	p.ops.WithLabelValues(op, s).Inc()
}

// RecordResolve implements vemos.MetricsCollector.
func (p *Prometheus) RecordResolve(records int, d time.Duration, err error) {
	p.observe("resolve", d, err)
	if err == nil {
		p.records.Set(float64(records))
	}
}

// RecordMatrixLoad implements vemos.MetricsCollector.
func (p *Prometheus) RecordMatrixLoad(matrices int, d time.Duration, err error) {
	p.observe("load", d, err)
	if err == nil {
		p.matrices.Add(float64(matrices))
	}
}

// RecordIndex implements vemos.MetricsCollector.
func (p *Prometheus) RecordIndex(d time.Duration, err error) {
	p.observe("index", d, err)
}

// RecordFuse implements vemos.MetricsCollector.
func (p *Prometheus) RecordFuse(pairs int, d time.Duration, err error) {
	p.observe("fuse", d, err)
	if err == nil {
		p.fusedPairs.Observe(float64(pairs))
	}
}

// RecordGenerate implements vemos.MetricsCollector.
func (p *Prometheus) RecordGenerate(d time.Duration, err error) {
	p.observe("generate", d, err)
}

// RecordSession implements vemos.MetricsCollector. Session operations are
// labelled "session_<op>".
func (p *Prometheus) RecordSession(op string, d time.Duration, err error) {
	p.observe("session_"+op, d, err)
}
