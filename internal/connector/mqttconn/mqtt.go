// Package mqttconn implements the MQTT connector driver: connect to a
// broker by URL or host/port, optional TLS, subscribe with a per-topic
// QoS, and publish outbound messages. Grounded on the connection-options
// and callback-wrapping pattern of gray-logic-core's
// internal/infrastructure/mqtt.Client, built on
// github.com/eclipse/paho.mqtt.golang.
package mqttconn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/message"
)

const connectTimeout = 10 * time.Second

func init() {
	connector.Register(connector.Entry{
		Type:  "mqtt",
		Kind:  message.KindMQTT,
		Parse: parseConfig,
		Open:  open,
	})
}

// Config is the parsed params subtree for an "mqtt" connector.
type Config struct {
	// URL is a full broker URL ("tcp://host:1883", "ssl://host:8883",
	// "ws://host:8080/mqtt"). If empty, Host/Port are used instead.
	URL      string
	Host     string
	Port     int
	ClientID string
	Username string
	Password string

	// TLS
	TLSEnabled bool
	CACertFile string
	SkipVerify bool

	KeepAliveSeconds int

	// Subscriptions: topic -> QoS. Empty means this connector only
	// publishes and never receives.
	Subscribe map[string]byte

	PublishQoS    byte
	PublishRetain bool
}

func parseConfig(raw map[string]any) (any, error) {
	cfg := Config{KeepAliveSeconds: 60, PublishQoS: 0}

	if v, ok := raw["url"].(string); ok {
		cfg.URL = v
	}
	if v, ok := raw["host"].(string); ok {
		cfg.Host = v
	}
	if v, ok := asInt(raw["port"]); ok {
		cfg.Port = v
	}
	if v, ok := raw["client_id"].(string); ok {
		cfg.ClientID = v
	}
	if v, ok := raw["username"].(string); ok {
		cfg.Username = v
	}
	if v, ok := raw["password"].(string); ok {
		cfg.Password = v
	}
	if v, ok := raw["tls"].(bool); ok {
		cfg.TLSEnabled = v
	}
	if v, ok := raw["ca_cert_file"].(string); ok {
		cfg.CACertFile = v
	}
	if v, ok := raw["tls_skip_verify"].(bool); ok {
		cfg.SkipVerify = v
	}
	if v, ok := asInt(raw["keepalive_seconds"]); ok {
		cfg.KeepAliveSeconds = v
	}
	if v, ok := asInt(raw["publish_qos"]); ok {
		cfg.PublishQoS = byte(v)
	}
	if v, ok := raw["publish_retain"].(bool); ok {
		cfg.PublishRetain = v
	}
	if subs, ok := raw["subscribe"].(map[string]any); ok {
		cfg.Subscribe = make(map[string]byte, len(subs))
		for topic, qv := range subs {
			q := 0
			if n, ok := asInt(qv); ok {
				q = n
			}
			cfg.Subscribe[topic] = byte(q)
		}
	}

	if cfg.URL == "" && cfg.Host == "" {
		return nil, fmt.Errorf("%w: mqtt connector requires url or host", connector.ErrDeviceConfig)
	}
	return cfg, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Runtime is the live MQTT connector.
type Runtime struct {
	name   string
	cfg    Config
	client paho.Client
	rx     connector.RXCallback
}

func open(name string, rawCfg any) (connector.Runtime, error) {
	cfg, ok := rawCfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: mqttconn.open: unexpected config type %T", connector.ErrDeviceConfig, rawCfg)
	}
	return &Runtime{name: name, cfg: cfg}, nil
}

func (r *Runtime) Kind() message.Kind { return message.KindMQTT }
func (r *Runtime) Name() string       { return r.name }

func (r *Runtime) SetRXCallback(cb connector.RXCallback) { r.rx = cb }

func (r *Runtime) Start(ctx context.Context) error {
	opts := paho.NewClientOptions()
	if r.cfg.URL != "" {
		opts.AddBroker(r.cfg.URL)
	} else {
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", r.cfg.Host, r.cfg.Port))
	}
	if r.cfg.ClientID != "" {
		opts.SetClientID(r.cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("iotgwd-%s", r.name))
	}
	if r.cfg.Username != "" {
		opts.SetUsername(r.cfg.Username)
		opts.SetPassword(r.cfg.Password)
	}
	opts.SetKeepAlive(time.Duration(r.cfg.KeepAliveSeconds) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)

	if r.cfg.TLSEnabled {
		tlsCfg, err := buildTLSConfig(r.cfg)
		if err != nil {
			return fmt.Errorf("%w: %v", connector.ErrDeviceConfig, err)
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt %q: connection lost: %v", r.name, err)
	})

	r.client = paho.NewClient(opts)
	token := r.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: %s: connect timed out", connector.ErrConnect, r.name)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", connector.ErrConnect, r.name, err)
	}

	for topic, qos := range r.cfg.Subscribe {
		t := topic
		subToken := r.client.Subscribe(t, qos, r.handleMessage)
		if !subToken.WaitTimeout(connectTimeout) {
			return fmt.Errorf("%w: %s: subscribe %q timed out", connector.ErrConnect, r.name, t)
		}
		if err := subToken.Error(); err != nil {
			return fmt.Errorf("%w: %s: subscribe %q: %v", connector.ErrConnect, r.name, t, err)
		}
	}

	return nil
}

func (r *Runtime) handleMessage(_ paho.Client, msg paho.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("mqtt %q: rx callback panic recovered: %v", r.name, rec)
		}
	}()
	if r.rx == nil {
		return
	}
	payload := msg.Payload()
	data := make([]byte, len(payload))
	copy(data, payload)
	r.rx(message.Message{
		Kind:    message.KindMQTT,
		Payload: message.Payload{Data: data},
		Params:  message.MQTTParams{Topic: msg.Topic(), QoS: msg.Qos(), Retain: msg.Retained()},
		TraceID: message.NewTraceID(),
	})
}

func (r *Runtime) Send(ctx context.Context, msg message.Message) error {
	mp, ok := msg.Params.(message.MQTTParams)
	if !ok {
		return fmt.Errorf("%w: mqttconn: expected MQTTParams, got %T", connector.ErrKindMismatch, msg.Params)
	}
	qos := mp.QoS
	if qos == 0 {
		qos = r.cfg.PublishQoS
	}
	if qos > 2 {
		qos = 2
	}
	token := r.client.Publish(mp.Topic, qos, mp.Retain || r.cfg.PublishRetain, msg.Payload.Data)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: %s: publish to %q timed out", connector.ErrSend, r.name, mp.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", connector.ErrSend, r.name, err)
	}
	return nil
}

func (r *Runtime) Poll(ctx context.Context) error { return nil }

func (r *Runtime) Stop(ctx context.Context) error {
	if r.client != nil && r.client.IsConnected() {
		r.client.Disconnect(250)
	}
	return nil
}

func (r *Runtime) Close() error { return nil }

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.SkipVerify}
	if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("invalid ca cert %s", cfg.CACertFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
