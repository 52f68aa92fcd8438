package metrics

import "time"

// NullCollector is a zero-overhead no-op Collector, used when
// gateway.metrics_port is 0.
type NullCollector struct{}

func NewNullCollector() *NullCollector { return &NullCollector{} }

func (NullCollector) IncMessagesForwarded(string)                    {}
func (NullCollector) IncMessagesDropped(string, string)              {}
func (NullCollector) IncConnectorErrors(string, string)              {}
func (NullCollector) ObserveDispatchDuration(string, time.Duration)  {}
func (NullCollector) SetBridgeUp(string, bool)                       {}
func (NullCollector) IncWatchdogTicks()                              {}

var _ Collector = (*NullCollector)(nil)
