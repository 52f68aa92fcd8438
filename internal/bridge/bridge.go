// Package bridge implements the generic source -> destination pipeline:
// resolve two named connectors from config, open the destination, start
// the source wired to a dispatch function that transforms and forwards
// each inbound message. Modeled on the teacher's gw_bridge_runtime_t /
// gw_bridge_start two-phase construction (resolve-then-start, with
// destination-first open and rollback of the destination if the source
// fails to start).
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/iotgw/iotgwd/internal/bridgeerrors"
	"github.com/iotgw/iotgwd/internal/config"
	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/message"
	"github.com/iotgw/iotgwd/internal/metrics"
	"github.com/iotgw/iotgwd/internal/recovery"
)

// TransformFunc converts a message received from the source connector
// into zero or one message to send to the destination, given the
// bridge's topic_prefix. Returning (zero Message, false, nil) drops the
// message without error (e.g. a filter). Returning a non-nil error
// drops the message and logs a TransformError.
type TransformFunc func(prefix string, in message.Message) (out message.Message, ok bool, err error)

// transforms is the static table of named transforms a bridge config may
// reference (spec §4.2). Unnamed (empty Transform list) bridges pick a
// default based on the (source kind, destination kind) pair.
var transforms = map[string]TransformFunc{
	"identity":       identityTransform,
	"spi_to_mqtt":    spiToMQTT,
	"http_to_mqtt":   httpToMQTT,
	"modbus_to_mqtt": modbusToMQTT,
	"uart_to_mqtt":   uartToMQTT,
}

func identityTransform(prefix string, in message.Message) (message.Message, bool, error) {
	return in, true, nil
}

// Runtime is one running bridge: a source and destination connector pair
// wired through a dispatch function. Exactly one Runtime exists per
// config bridge entry between Prepare+Start and Stop.
type Runtime struct {
	Name         string
	TopicPrefix  string
	Source       connector.Runtime
	Dest         connector.Runtime
	Transform    TransformFunc
	breaker      *recovery.CircuitBreaker
	metrics      metrics.Collector
	rateLimitCfg *config.RateLimit // TODO(spec §9 open question 3): not enforced yet
}

// Prepare resolves the named source/destination connectors against an
// already-opened connector set, builds the dispatch pipeline (transform
// chain + circuit breaker), but does not start any I/O. Start performs
// the actual connect/bind.
func Prepare(name string, cfg config.Bridge, opened map[string]connector.Runtime, topicPrefix string) (*Runtime, error) {
	src, ok := opened[cfg.From]
	if !ok {
		return nil, bridgeerrors.NewConfigError("prepare", fmt.Errorf("%w: %s", connector.ErrUnknownConnector, cfg.From), "from")
	}
	dst, ok := opened[cfg.To]
	if !ok {
		return nil, bridgeerrors.NewConfigError("prepare", fmt.Errorf("%w: %s", connector.ErrUnknownConnector, cfg.To), "to")
	}

	tf, err := resolveTransform(cfg, src.Kind(), dst.Kind())
	if err != nil {
		if len(cfg.Transform) > 0 {
			return nil, bridgeerrors.NewConfigError("prepare", err, "transform")
		}
		return nil, bridgeerrors.NewUnsupportedPairError(name, err)
	}

	prefix := topicPrefix
	if cfg.Mapping != nil && cfg.Mapping.Topic != "" {
		prefix = cfg.Mapping.Topic
	}
	if prefix == "" {
		prefix = "ingest"
	}

	rt := &Runtime{
		Name:        name,
		TopicPrefix: prefix,
		Source:      src,
		Dest:        dst,
		Transform:   tf,
		breaker:     recovery.New(recovery.Config{}),
		metrics:     metrics.NewNullCollector(),
	}
	if cfg.RateLimit != nil {
		rl := *cfg.RateLimit
		rt.rateLimitCfg = &rl
	}
	return rt, nil
}

// resolveTransform picks the transform chain a bridge config names, or
// falls back to a default keyed on (source kind, destination kind). An
// explicit Transform list naming an unknown name is a ConfigError; an
// implicit pair with no default transform is UnsupportedPair.
func resolveTransform(cfg config.Bridge, srcKind, dstKind message.Kind) (TransformFunc, error) {
	if len(cfg.Transform) > 0 {
		chain := make([]TransformFunc, 0, len(cfg.Transform))
		for _, name := range cfg.Transform {
			tf, ok := transforms[name]
			if !ok {
				return nil, fmt.Errorf("unknown transform %q", name)
			}
			chain = append(chain, tf)
		}
		return chainTransforms(chain), nil
	}

	switch {
	case srcKind == message.KindSPI && dstKind == message.KindMQTT:
		return spiToMQTT, nil
	case srcKind == message.KindHTTPServer && dstKind == message.KindMQTT:
		return httpToMQTT, nil
	case (srcKind == message.KindModbusRTU || srcKind == message.KindModbusTCP) && dstKind == message.KindMQTT:
		return modbusToMQTT, nil
	case srcKind == message.KindUART && dstKind == message.KindMQTT:
		return uartToMQTT, nil
	case srcKind == dstKind:
		return identityTransform, nil
	default:
		return nil, fmt.Errorf("no default transform for %s -> %s", srcKind, dstKind)
	}
}

func chainTransforms(chain []TransformFunc) TransformFunc {
	return func(prefix string, in message.Message) (message.Message, bool, error) {
		cur := in
		for _, tf := range chain {
			out, ok, err := tf(prefix, cur)
			if err != nil {
				return message.Message{}, false, err
			}
			if !ok {
				return message.Message{}, false, nil
			}
			cur = out
		}
		return cur, true, nil
	}
}

// SetMetrics installs the metrics collector bridges report through.
// Called by the supervisor for each bridge it prepares, on every config
// load and reload, after the config determines whether Prometheus or the
// null collector is active.
func (r *Runtime) SetMetrics(c metrics.Collector) {
	r.metrics = c
}

// Start opens the destination first, then starts the source wired to
// dispatch, rolling back the destination if the source fails to start —
// mirroring the teacher's gw_bridge_start two-phase-with-rollback order.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.Dest.Start(ctx); err != nil {
		return bridgeerrors.NewConnectError("start", err, r.Dest.Name())
	}

	r.Source.SetRXCallback(r.dispatch)
	if err := r.Source.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Dest.Stop(stopCtx)
		return bridgeerrors.NewConnectError("start", err, r.Source.Name())
	}

	r.metrics.SetBridgeUp(r.Name, true)
	logger.Info("bridge %q started: %s(%s) -> %s(%s)", r.Name, r.Source.Kind(), r.Source.Name(), r.Dest.Kind(), r.Dest.Name())
	return nil
}

// dispatch is the source's RX callback: transform then send, with the
// destination send wrapped in the bridge's circuit breaker. Per spec §7,
// transform and send errors are logged and the message is dropped; they
// never propagate past the bridge.
func (r *Runtime) dispatch(in message.Message) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveDispatchDuration(r.Name, time.Since(start))
	}()

	out, ok, err := r.Transform(r.TopicPrefix, in)
	if err != nil {
		bridgeerrors.Handle(bridgeerrors.NewTransformError("dispatch", err, r.Name))
		r.metrics.IncMessagesDropped(r.Name, "transform_error")
		return
	}
	if !ok {
		r.metrics.IncMessagesDropped(r.Name, "filtered")
		return
	}

	sendErr := r.breaker.Call(func() error {
		return r.Dest.Send(context.Background(), out)
	})
	if sendErr != nil {
		bridgeerrors.Handle(bridgeerrors.NewSendError("dispatch", sendErr, r.Dest.Name()))
		r.metrics.IncMessagesDropped(r.Name, "send_error")
		r.metrics.IncConnectorErrors(r.Dest.Name(), r.Dest.Kind().String())
		return
	}

	r.metrics.IncMessagesForwarded(r.Name)
}

// Stop stops the source first (to drain in-flight RX before the
// destination disappears), then the destination.
func (r *Runtime) Stop(ctx context.Context) error {
	var firstErr error
	if err := r.Source.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := r.Dest.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	r.metrics.SetBridgeUp(r.Name, false)
	return firstErr
}

// Close releases both connectors' resources. Safe to call after Stop.
func (r *Runtime) Close() error {
	var firstErr error
	if err := r.Source.Close(); err != nil {
		firstErr = err
	}
	if err := r.Dest.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
