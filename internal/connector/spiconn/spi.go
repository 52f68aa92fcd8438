// Package spiconn implements the SPI connector driver: open a spidev
// character device, apply mode/bits-per-word/speed via ioctl, and run a
// configured list of named transactions (write/read/transfer) on a
// ticker, invoking the RX callback for every transaction that produces
// data. Grounded on the ioctl sequence of original_source's conn_spi.c
// and the ticker-driven poll loop of the teacher's
// pkg/services/polling_service.go, using golang.org/x/sys/unix instead
// of cgo ioctl constants.
package spiconn

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/message"
)

func init() {
	connector.Register(connector.Entry{
		Type:  "spi",
		Kind:  message.KindSPI,
		Parse: parseConfig,
		Open:  open,
	})
}

// Transaction is one configured SPI operation, polled on every tick.
type Transaction struct {
	Name  string
	Op    message.SPITransactionOp
	TX    []byte // parsed from a hex string, e.g. "0x9F" or "9F 00 00"
	RXLen int    // 0 means "same length as TX" for READ/TRANSFER
}

// Config is the parsed params subtree for an "spi" connector.
type Config struct {
	Device         string
	Mode           uint8
	BitsPerWord    uint8
	SpeedHz        uint32
	PollIntervalMs int
	Transactions   []Transaction
}

func parseConfig(raw map[string]any) (any, error) {
	cfg := Config{BitsPerWord: 8, SpeedHz: 1_000_000, PollIntervalMs: 1000}

	if v, ok := raw["device"].(string); ok {
		cfg.Device = v
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: spi connector requires device", connector.ErrDeviceConfig)
	}
	if v, ok := asInt(raw["mode"]); ok {
		cfg.Mode = uint8(v)
	}
	if v, ok := asInt(raw["bits_per_word"]); ok {
		cfg.BitsPerWord = uint8(v)
	}
	if v, ok := asInt(raw["speed_hz"]); ok {
		cfg.SpeedHz = uint32(v)
	}
	if v, ok := asInt(raw["poll_interval_ms"]); ok {
		cfg.PollIntervalMs = v
	}

	rawTxns, _ := raw["transactions"].([]any)
	for _, rt := range rawTxns {
		m, ok := rt.(map[string]any)
		if !ok {
			continue
		}
		t := Transaction{Op: message.SPIOpTransfer}
		if name, ok := m["name"].(string); ok {
			t.Name = name
		}
		if opStr, ok := m["op"].(string); ok {
			switch strings.ToLower(opStr) {
			case "write":
				t.Op = message.SPIOpWrite
			case "read":
				t.Op = message.SPIOpRead
			case "transfer":
				t.Op = message.SPIOpTransfer
			}
		}
		if txStr, ok := m["tx"].(string); ok {
			parsed, err := parseHexBytes(txStr)
			if err != nil {
				return nil, fmt.Errorf("%w: transaction %q: %v", connector.ErrDeviceConfig, t.Name, err)
			}
			t.TX = parsed
		}
		if rxLen, ok := asInt(m["rx_len"]); ok {
			t.RXLen = rxLen
		}
		cfg.Transactions = append(cfg.Transactions, t)
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

// parseHexBytes accepts "0x9F00", "9F 00 00", or any mix of hex digits
// and spaces after an optional 0x/0X prefix, matching the tolerant
// parser in original_source's conn_spi.c parse_hex_bytes. Any other
// separator character is rejected as an invalid hex byte; an odd number
// of digits is padded with a trailing 0.
func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil, nil
	}
	if len(s)%2 != 0 {
		s = s + "0"
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		b, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", s[i:i+2])
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// spiIOCTransfer mirrors struct spi_ioc_transfer from linux/spi/spidev.h.
type spiIOCTransfer struct {
	TxBuf       uint64
	RxBuf       uint64
	Len         uint32
	SpeedHz     uint32
	DelayUsecs  uint16
	BitsPerWord uint8
	CSChange    uint8
	TxNBits     uint8
	RxNBits     uint8
	Pad         uint16
}

const (
	spiIOCWrMode        = 0x40016b01
	spiIOCWrBitsPerWord = 0x40016b03
	spiIOCWrMaxSpeedHz  = 0x40046b04
)

// Runtime is the live SPI connector.
type Runtime struct {
	name string
	cfg  Config
	rx   connector.RXCallback

	fd     int
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func open(name string, rawCfg any) (connector.Runtime, error) {
	cfg, ok := rawCfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: spiconn.open: unexpected config type %T", connector.ErrDeviceConfig, rawCfg)
	}
	return &Runtime{name: name, cfg: cfg, fd: -1}, nil
}

func (r *Runtime) Kind() message.Kind { return message.KindSPI }
func (r *Runtime) Name() string       { return r.name }

func (r *Runtime) SetRXCallback(cb connector.RXCallback) { r.rx = cb }

func (r *Runtime) Start(ctx context.Context) error {
	fd, err := unix.Open(r.cfg.Device, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", connector.ErrDeviceConfig, r.cfg.Device, err)
	}
	r.fd = fd

	mode := uint32(r.cfg.Mode)
	if err := ioctlSetU32(fd, spiIOCWrMode, mode); err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: set mode: %v", connector.ErrDeviceConfig, err)
	}
	if err := ioctlSetU8(fd, spiIOCWrBitsPerWord, r.cfg.BitsPerWord); err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: set bits_per_word: %v", connector.ErrDeviceConfig, err)
	}
	if err := ioctlSetU32(fd, spiIOCWrMaxSpeedHz, r.cfg.SpeedHz); err != nil {
		unix.Close(fd)
		return fmt.Errorf("%w: set speed_hz: %v", connector.ErrDeviceConfig, err)
	}

	logger.Info("spi %q: opened %s mode=%d bpw=%d speed=%d", r.name, r.cfg.Device, r.cfg.Mode, r.cfg.BitsPerWord, r.cfg.SpeedHz)

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
			r.runTransactions()
		}
	}
}

func (r *Runtime) runTransactions() {
	for _, t := range r.cfg.Transactions {
		if err := r.execTransaction(t); err != nil {
			logger.Warn("spi %q: transaction %q failed: %v", r.name, t.Name, err)
		}
	}
}

func (r *Runtime) execTransaction(t Transaction) error {
	txLen := len(t.TX)
	rxLen := t.RXLen
	if rxLen == 0 && t.Op != message.SPIOpWrite {
		rxLen = txLen
	}

	switch t.Op {
	case message.SPIOpWrite:
		return r.transfer(t.TX, nil)
	case message.SPIOpRead, message.SPIOpTransfer:
		tx := t.TX
		if len(tx) == 0 {
			tx = make([]byte, rxLen)
		}
		rx := make([]byte, rxLen)
		if err := r.transfer(tx, rx); err != nil {
			return err
		}
		if r.rx != nil {
			r.rx(message.Message{
				Kind:    message.KindSPI,
				Payload: message.Payload{Data: rx, ContentType: "application/octet-stream"},
				Params:  message.SPIParams{TransactionName: t.Name, Op: t.Op},
				TraceID: message.NewTraceID(),
			})
		}
		return nil
	default:
		return fmt.Errorf("unknown transaction op %v", t.Op)
	}
}

func (r *Runtime) transfer(tx, rx []byte) error {
	length := len(tx)
	if rx != nil && len(rx) > length {
		length = len(rx)
	}
	xfer := spiIOCTransfer{
		Len:         uint32(length),
		SpeedHz:     r.cfg.SpeedHz,
		BitsPerWord: r.cfg.BitsPerWord,
	}
	if len(tx) > 0 {
		xfer.TxBuf = uint64(uintptrOf(&tx[0]))
	}
	if rx != nil && len(rx) > 0 {
		xfer.RxBuf = uint64(uintptrOf(&rx[0]))
	}

	req := spiIOCMessage(1)
	if err := ioctlPtr(r.fd, req, &xfer); err != nil {
		return fmt.Errorf("ioctl transfer: %w", err)
	}
	return nil
}

// Send performs an ad-hoc transaction outside the configured poll list,
// mirroring original_source's spi_send_adapter.
func (r *Runtime) Send(ctx context.Context, msg message.Message) error {
	sp, ok := msg.Params.(message.SPIParams)
	if !ok {
		return fmt.Errorf("%w: spiconn: expected SPIParams, got %T", connector.ErrKindMismatch, msg.Params)
	}
	t := Transaction{Name: sp.TransactionName, Op: sp.Op, TX: msg.Payload.Data}
	if err := r.execTransaction(t); err != nil {
		return fmt.Errorf("%w: %v", connector.ErrSend, err)
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
	if r.fd >= 0 {
		err := unix.Close(r.fd)
		r.fd = -1
		return err
	}
	return nil
}
