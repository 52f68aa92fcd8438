// Package metrics collects bridge-level counters: messages forwarded and
// errors per bridge, and watchdog tick pacing. Mirrors the teacher's
// Collector abstraction (Prometheus-backed vs. a zero-overhead null
// implementation) but backed by github.com/prometheus/client_golang
// instead of a hand-rolled text exporter.
package metrics

import "time"

// Collector is the interface every bridge and driver reports through.
// Two implementations exist: Prometheus (metrics_port > 0) and Null
// (metrics_port == 0, zero overhead).
type Collector interface {
	IncMessagesForwarded(bridgeName string)
	IncMessagesDropped(bridgeName string, reason string)
	IncConnectorErrors(connectorName string, kind string)
	ObserveDispatchDuration(bridgeName string, d time.Duration)
	SetBridgeUp(bridgeName string, up bool)
	IncWatchdogTicks()
}
