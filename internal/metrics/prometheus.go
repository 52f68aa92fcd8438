package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements Collector with real Prometheus metric
// vectors, registered against the default registry so internal/httpapi
// can serve them via promhttp.Handler().
type PrometheusCollector struct {
	messagesForwarded *prometheus.CounterVec
	messagesDropped   *prometheus.CounterVec
	connectorErrors   *prometheus.CounterVec
	dispatchDuration  *prometheus.HistogramVec
	bridgeUp          *prometheus.GaugeVec
	watchdogTicks     prometheus.Counter
}

var (
	promCollectorOnce sync.Once
	promCollector     *PrometheusCollector
)

// NewPrometheusCollector registers and returns the process's
// PrometheusCollector. The metric vectors are registered against the
// default registry exactly once; a reload that calls this again (the
// supervisor rebuilds its whole generation on every config load) gets
// back the same collector instead of panicking on duplicate
// registration.
func NewPrometheusCollector() *PrometheusCollector {
	promCollectorOnce.Do(func() {
		promCollector = newPrometheusCollector()
	})
	return promCollector
}

func newPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		messagesForwarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iotgw_bridge_messages_forwarded_total",
			Help: "Total messages successfully dispatched by a bridge.",
		}, []string{"bridge"}),
		messagesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iotgw_bridge_messages_dropped_total",
			Help: "Total messages dropped by a bridge, labeled by reason.",
		}, []string{"bridge", "reason"}),
		connectorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iotgw_connector_errors_total",
			Help: "Total connector errors, labeled by connector and protocol kind.",
		}, []string{"connector", "kind"}),
		dispatchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iotgw_bridge_dispatch_duration_seconds",
			Help:    "Time spent in a bridge's dispatch function (transform + send).",
			Buckets: prometheus.DefBuckets,
		}, []string{"bridge"}),
		bridgeUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iotgw_bridge_up",
			Help: "1 if the bridge is currently running, 0 otherwise.",
		}, []string{"bridge"}),
		watchdogTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iotgw_watchdog_ticks_total",
			Help: "Total WATCHDOG=1 notifications sent to the init system.",
		}),
	}
}

func (c *PrometheusCollector) IncMessagesForwarded(bridgeName string) {
	c.messagesForwarded.WithLabelValues(bridgeName).Inc()
}

func (c *PrometheusCollector) IncMessagesDropped(bridgeName, reason string) {
	c.messagesDropped.WithLabelValues(bridgeName, reason).Inc()
}

func (c *PrometheusCollector) IncConnectorErrors(connectorName, kind string) {
	c.connectorErrors.WithLabelValues(connectorName, kind).Inc()
}

func (c *PrometheusCollector) ObserveDispatchDuration(bridgeName string, d time.Duration) {
	c.dispatchDuration.WithLabelValues(bridgeName).Observe(d.Seconds())
}

func (c *PrometheusCollector) SetBridgeUp(bridgeName string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	c.bridgeUp.WithLabelValues(bridgeName).Set(v)
}

func (c *PrometheusCollector) IncWatchdogTicks() {
	c.watchdogTicks.Inc()
}

var _ Collector = (*PrometheusCollector)(nil)
