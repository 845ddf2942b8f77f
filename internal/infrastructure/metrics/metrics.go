// Package metrics expone contadores Prometheus del ledger y de la API HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

const namespace = "stockledger"

var _ inventory.Observer = (*Metrics)(nil)

// Metrics registro propio (no el global) para que los tests creen instancias aisladas.
type Metrics struct {
	registry *prometheus.Registry

	movementsAppended *prometheus.CounterVec
	unitsMoved        *prometheus.CounterVec
	stockRejections   *prometheus.CounterVec
	txRetries         *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registra los collectors estándar de Go y proceso más los del dominio.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		movementsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_appended_total",
			Help:      "Stock movements appended to the ledger",
		}, []string{"type"}),
		unitsMoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movement_units_total",
			Help:      "Absolute units moved by appended movements",
		}, []string{"type"}),
		stockRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Operations rejected because a balance would go negative",
		}, []string{"operation"}),
		txRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retries_total",
			Help:      "Transactions retried after a transient conflict",
		}, []string{"driver"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
	}
}

// Registry para tests y para montar exporters adicionales.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler net/http de /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) MovementAppended(movementType entity.MovementType, quantity int64) {
	m.movementsAppended.WithLabelValues(string(movementType)).Inc()
	if quantity < 0 {
		quantity = -quantity
	}
	m.unitsMoved.WithLabelValues(string(movementType)).Add(float64(quantity))
}

func (m *Metrics) StockRejected(operation string) {
	m.stockRejections.WithLabelValues(operation).Inc()
}

// RetryHook devuelve el callback para los TxRunner del driver indicado.
func (m *Metrics) RetryHook(driver string) func(attempt int, err error) {
	c := m.txRetries.WithLabelValues(driver)
	return func(int, error) { c.Inc() }
}

// ObserveHTTP route debe ser el patrón de la ruta (no el path) para acotar la cardinalidad.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
