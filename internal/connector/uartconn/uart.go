// Package uartconn implements the UART connector driver: open a serial
// device at a configured baud rate (8-N-1), read continuously with a 1s
// read timeout, frame inbound bytes on a configurable delimiter
// (default newline), and emit each frame via the RX callback. Send
// writes bytes verbatim. original_source's conn_uart.c is an empty stub
// in the reference tree, so behavior follows the wire-level defaults in
// the expanded spec directly; built on go.bug.st/serial, the same
// library the broader pack's serial-facing manifests depend on.
package uartconn

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/message"
)

const readTimeout = 1 * time.Second

func init() {
	connector.Register(connector.Entry{
		Type:  "uart",
		Kind:  message.KindUART,
		Parse: parseConfig,
		Open:  open,
	})
}

// Config is the parsed params subtree for a "uart" connector.
type Config struct {
	Device    string
	BaudRate  int
	Delimiter byte
}

func parseConfig(raw map[string]any) (any, error) {
	cfg := Config{BaudRate: 9600, Delimiter: '\n'}
	if v, ok := raw["device"].(string); ok {
		cfg.Device = v
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: uart connector requires device", connector.ErrDeviceConfig)
	}
	if v, ok := asInt(raw["baud_rate"]); ok {
		cfg.BaudRate = v
	}
	if v, ok := raw["delimiter"].(string); ok && len(v) > 0 {
		cfg.Delimiter = v[0]
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

// Runtime is the live UART connector.
type Runtime struct {
	name string
	cfg  Config
	rx   connector.RXCallback

	port   serial.Port
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func open(name string, rawCfg any) (connector.Runtime, error) {
	cfg, ok := rawCfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: uartconn.open: unexpected config type %T", connector.ErrDeviceConfig, rawCfg)
	}
	return &Runtime{name: name, cfg: cfg}, nil
}

func (r *Runtime) Kind() message.Kind { return message.KindUART }
func (r *Runtime) Name() string       { return r.name }

func (r *Runtime) SetRXCallback(cb connector.RXCallback) { r.rx = cb }

func (r *Runtime) Start(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: r.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(r.cfg.Device, mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", connector.ErrDeviceConfig, r.cfg.Device, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("%w: set read timeout: %v", connector.ErrDeviceConfig, err)
	}
	r.port = port

	logger.Info("uart %q: opened %s at %d baud", r.name, r.cfg.Device, r.cfg.BaudRate)

	r.stopCh = make(chan struct{})
	r.wg.Add(1)
	go r.readLoop()
	return nil
}

func (r *Runtime) readLoop() {
	defer r.wg.Done()

	reader := bufio.NewReader(r.port)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		line, err := reader.ReadBytes(r.cfg.Delimiter)
		if len(line) > 0 && r.rx != nil {
			data := make([]byte, len(line))
			copy(data, line)
			r.rx(message.Message{
				Kind:    message.KindUART,
				Payload: message.Payload{Data: data, IsText: true},
				Params:  message.UARTParams{Delimiter: r.cfg.Delimiter},
				TraceID: message.NewTraceID(),
			})
		}
		if err != nil && err != io.EOF {
			logger.Warn("uart %q: read error: %v", r.name, err)
		}
	}
}

func (r *Runtime) Send(ctx context.Context, msg message.Message) error {
	if _, ok := msg.Params.(message.UARTParams); !ok {
		return fmt.Errorf("%w: uartconn: expected UARTParams, got %T", connector.ErrKindMismatch, msg.Params)
	}
	if _, err := r.port.Write(msg.Payload.Data); err != nil {
		return fmt.Errorf("%w: %s: %v", connector.ErrSend, r.name, err)
	}
	return nil
}

func (r *Runtime) Poll(ctx context.Context) error { return nil }

func (r *Runtime) Stop(ctx context.Context) error {
	if r.stopCh != nil {
		close(r.stopCh)
		r.wg.Wait()
		r.stopCh = nil
	}
	return nil
}

func (r *Runtime) Close() error {
	if r.port != nil {
		return r.port.Close()
	}
	return nil
}
