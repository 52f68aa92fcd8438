// Package modbusconn implements the Modbus RTU/TCP polling driver: a
// configured list of register reads is re-issued on every poll tick,
// each framed either as an RTU request with a CRC16 trailer (RTU
// transport, over a serial device) or a TCP request with an MBAP
// header (TCP transport, over host:port). Decoded register values are
// delivered via the RX callback. Grounded on the teacher's polling
// service (pkg/services/polling_service.go) for the ticker-driven poll
// loop shape, and internal/modbuscrc (ported from the teacher's
// pkg/crc/modbus.go) for RTU framing.
package modbusconn

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/message"
	"github.com/iotgw/iotgwd/internal/modbuscrc"
)

func init() {
	connector.Register(connector.Entry{
		Type:  "modbus_rtu",
		Kind:  message.KindModbusRTU,
		Parse: parseConfig,
		Open:  open,
	})
	connector.Register(connector.Entry{
		Type:  "modbus_tcp",
		Kind:  message.KindModbusTCP,
		Parse: parseConfig,
		Open:  open,
	})
}

// RegisterRead is one configured register read, re-issued every poll.
type RegisterRead struct {
	Name     string
	Function uint8 // 0x03 (holding) or 0x04 (input)
	Address  uint16
	Count    uint16
}

// Config is the parsed params subtree for a "modbus_rtu"/"modbus_tcp"
// connector.
type Config struct {
	Transport      string // "rtu" or "tcp"
	Device         string // rtu: serial device path
	Address        string // tcp: host:port
	BaudRate       int    // rtu only
	SlaveID        uint8
	PollIntervalMs int
	TimeoutMs      int
	Registers      []RegisterRead
}

func parseConfig(raw map[string]any) (any, error) {
	cfg := Config{BaudRate: 9600, PollIntervalMs: 1000, TimeoutMs: 500, SlaveID: 1}

	if v, ok := raw["transport"].(string); ok {
		cfg.Transport = v
	}
	if cfg.Transport != "rtu" && cfg.Transport != "tcp" {
		return nil, fmt.Errorf("%w: modbus connector requires transport rtu|tcp", connector.ErrDeviceConfig)
	}
	if v, ok := raw["device"].(string); ok {
		cfg.Device = v
	}
	if v, ok := raw["address"].(string); ok {
		cfg.Address = v
	}
	if cfg.Transport == "rtu" && cfg.Device == "" {
		return nil, fmt.Errorf("%w: modbus_rtu requires device", connector.ErrDeviceConfig)
	}
	if cfg.Transport == "tcp" && cfg.Address == "" {
		return nil, fmt.Errorf("%w: modbus_tcp requires address", connector.ErrDeviceConfig)
	}
	if v, ok := asInt(raw["baud_rate"]); ok {
		cfg.BaudRate = v
	}
	if v, ok := asInt(raw["slave_id"]); ok {
		cfg.SlaveID = uint8(v)
	}
	if v, ok := asInt(raw["poll_interval_ms"]); ok {
		cfg.PollIntervalMs = v
	}
	if v, ok := asInt(raw["timeout_ms"]); ok {
		cfg.TimeoutMs = v
	}

	rawRegs, _ := raw["registers"].([]any)
	for _, rr := range rawRegs {
		m, ok := rr.(map[string]any)
		if !ok {
			continue
		}
		reg := RegisterRead{Function: 0x03, Count: 1}
		if name, ok := m["name"].(string); ok {
			reg.Name = name
		}
		if fn, ok := asInt(m["function"]); ok {
			reg.Function = uint8(fn)
		}
		if addr, ok := asInt(m["address"]); ok {
			reg.Address = uint16(addr)
		}
		if cnt, ok := asInt(m["count"]); ok {
			reg.Count = uint16(cnt)
		}
		cfg.Registers = append(cfg.Registers, reg)
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

// transport abstracts the RTU (serial+CRC16) and TCP (MBAP) framing
// differences behind a single request/response exchange.
type transport interface {
	request(slaveID uint8, reg RegisterRead) ([]byte, error)
	close() error
}

// Runtime is the live Modbus connector.
type Runtime struct {
	name string
	cfg  Config
	rx   connector.RXCallback

	tr     transport
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func open(name string, rawCfg any) (connector.Runtime, error) {
	cfg, ok := rawCfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: modbusconn.open: unexpected config type %T", connector.ErrDeviceConfig, rawCfg)
	}
	return &Runtime{name: name, cfg: cfg}, nil
}

func (r *Runtime) Kind() message.Kind {
	if r.cfg.Transport == "tcp" {
		return message.KindModbusTCP
	}
	return message.KindModbusRTU
}

func (r *Runtime) Name() string { return r.name }

func (r *Runtime) SetRXCallback(cb connector.RXCallback) { r.rx = cb }

func (r *Runtime) Start(ctx context.Context) error {
	timeout := time.Duration(r.cfg.TimeoutMs) * time.Millisecond

	switch r.cfg.Transport {
	case "rtu":
		mode := &serial.Mode{BaudRate: r.cfg.BaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
		port, err := serial.Open(r.cfg.Device, mode)
		if err != nil {
			return fmt.Errorf("%w: open %s: %v", connector.ErrDeviceConfig, r.cfg.Device, err)
		}
		if err := port.SetReadTimeout(timeout); err != nil {
			port.Close()
			return fmt.Errorf("%w: set read timeout: %v", connector.ErrDeviceConfig, err)
		}
		r.tr = &rtuTransport{port: port}
	case "tcp":
		conn, err := net.DialTimeout("tcp", r.cfg.Address, timeout)
		if err != nil {
			return fmt.Errorf("%w: dial %s: %v", connector.ErrConnect, r.cfg.Address, err)
		}
		r.tr = &tcpTransport{conn: conn, timeout: timeout}
	default:
		return fmt.Errorf("%w: unknown transport %q", connector.ErrDeviceConfig, r.cfg.Transport)
	}

	logger.Info("modbus %q: opened %s transport=%s", r.name, r.name, r.cfg.Transport)

	r.stopCh = make(chan struct{})
	r.wg.Add(1)
	go r.pollLoop()
	return nil
}

func (r *Runtime) pollLoop() {
	defer r.wg.Done()

	interval := time.Duration(r.cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.pollAll()
		}
	}
}

func (r *Runtime) pollAll() {
	for _, reg := range r.cfg.Registers {
		data, err := r.tr.request(r.cfg.SlaveID, reg)
		if err != nil {
			logger.Warn("modbus %q: register %q read failed: %v", r.name, reg.Name, err)
			continue
		}
		if r.rx == nil {
			continue
		}
		params := message.ModbusParams{
			SlaveID:      r.cfg.SlaveID,
			FunctionCode: reg.Function,
			Address:      reg.Address,
			RegisterName: reg.Name,
		}
		var p message.Params = params
		if r.cfg.Transport == "tcp" {
			p = message.ModbusTCPParams{ModbusParams: params}
		}
		r.rx(message.Message{
			Kind:    r.Kind(),
			Payload: message.Payload{Data: data, ContentType: "application/octet-stream"},
			Params:  p,
			TraceID: message.NewTraceID(),
		})
	}
}

func (r *Runtime) Send(ctx context.Context, msg message.Message) error {
	return fmt.Errorf("%w: modbusconn: write transactions are not supported, only polled reads", connector.ErrKindMismatch)
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
	if r.tr != nil {
		return r.tr.close()
	}
	return nil
}

// rtuTransport frames a register read as a Modbus RTU request with a
// CRC16 trailer (internal/modbuscrc), reading back the matching
// response over the same serial device.
type rtuTransport struct {
	port serial.Port
}

func (t *rtuTransport) request(slaveID uint8, reg RegisterRead) ([]byte, error) {
	frame := []byte{slaveID, reg.Function, byte(reg.Address >> 8), byte(reg.Address), byte(reg.Count >> 8), byte(reg.Count)}
	frame = modbuscrc.Append(frame)

	if _, err := t.port.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	reader := bufio.NewReaderSize(t.port, 256)
	header := make([]byte, 3)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	byteCount := int(header[2])
	body := make([]byte, byteCount+2) // + CRC16
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	full := append(header, body...)
	if !modbuscrc.Verify(full) {
		return nil, fmt.Errorf("crc mismatch")
	}
	return full[3 : 3+byteCount], nil
}

func (t *rtuTransport) close() error { return t.port.Close() }

// tcpTransport frames a register read with a Modbus TCP MBAP header
// (transaction id, protocol id 0, length, unit id) ahead of the same
// function/address/count PDU used by RTU.
type tcpTransport struct {
	conn      net.Conn
	timeout   time.Duration
	nextTxnID uint16
}

func (t *tcpTransport) request(slaveID uint8, reg RegisterRead) ([]byte, error) {
	t.nextTxnID++
	pdu := []byte{reg.Function, byte(reg.Address >> 8), byte(reg.Address), byte(reg.Count >> 8), byte(reg.Count)}

	mbap := make([]byte, 7)
	binary.BigEndian.PutUint16(mbap[0:2], t.nextTxnID)
	binary.BigEndian.PutUint16(mbap[2:4], 0)
	binary.BigEndian.PutUint16(mbap[4:6], uint16(len(pdu)+1))
	mbap[6] = slaveID

	frame := append(mbap, pdu...)
	t.conn.SetDeadline(time.Now().Add(t.timeout))
	if _, err := t.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	respHeader := make([]byte, 9)
	if _, err := io.ReadFull(t.conn, respHeader); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	byteCount := int(respHeader[8])
	body := make([]byte, byteCount)
	if _, err := io.ReadFull(t.conn, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (t *tcpTransport) close() error { return t.conn.Close() }
