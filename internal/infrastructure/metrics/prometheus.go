// Package metrics expone contadores del consumo de tratamientos en formato Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implementa consumption.Recorder sobre un registro propio (no el global).
type Recorder struct {
	registry *prometheus.Registry
	orders   *prometheus.CounterVec
	duration prometheus.Histogram
	pending  prometheus.Counter
}

// NewRecorder crea y registra las métricas bajo namespace (p. ej. "clinica").
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumption_orders_total",
			Help:      "Órdenes de tratamiento procesadas por resultado.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consumption_duration_seconds",
			Help:      "Duración de Consume, de la validación al commit.",
			Buckets:   prometheus.DefBuckets,
		}),
		pending: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumption_cost_pending_total",
			Help:      "Movimientos de salida registrados sin base de costo.",
		}),
	}
	r.registry.MustRegister(
		r.orders,
		r.duration,
		r.pending,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveConsumption(reason string, elapsed time.Duration) {
	r.orders.WithLabelValues(reason).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) CostPending(count int) {
	if count > 0 {
		r.pending.Add(float64(count))
	}
}

// Registry registro subyacente (tests y exportadores).
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler endpoint /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
