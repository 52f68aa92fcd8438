// Package message defines the normalized message model every connector
// produces or consumes: a protocol kind tag, a payload, and a per-kind
// parameters record.
package message

import (
	"github.com/google/uuid"
)

// Kind is the protocol tag carried by every connector and message.
type Kind int

const (
	KindUnknown Kind = iota
	KindMQTT
	KindHTTPServer
	KindModbusRTU
	KindModbusTCP
	KindUART
	KindSPI
	KindI2C
	KindBLE
	KindCoAP
	KindLoRaWAN
	KindOneWire
	KindOPCUA
	KindSocketCAN
	KindZigbee
)

// String renders a Kind as its lower_snake config-facing name.
func (k Kind) String() string {
	switch k {
	case KindMQTT:
		return "mqtt"
	case KindHTTPServer:
		return "http_server"
	case KindModbusRTU:
		return "modbus_rtu"
	case KindModbusTCP:
		return "modbus_tcp"
	case KindUART:
		return "uart"
	case KindSPI:
		return "spi"
	case KindI2C:
		return "i2c"
	case KindBLE:
		return "ble"
	case KindCoAP:
		return "coap"
	case KindLoRaWAN:
		return "lorawan"
	case KindOneWire:
		return "onewire"
	case KindOPCUA:
		return "opcua"
	case KindSocketCAN:
		return "socketcan"
	case KindZigbee:
		return "zigbee"
	default:
		return "unknown"
	}
}

// Payload is an immutable byte view with advisory metadata. Data is
// binary-safe and may be empty.
type Payload struct {
	Data        []byte
	IsText      bool
	ContentType string
}

// Len returns the length of the payload's data.
func (p Payload) Len() int { return len(p.Data) }

// Clone returns a deep copy of the payload. Connectors and transforms
// must call this before retaining a Payload past a callback or transform
// return — the source byte slice is only valid for the duration of the
// call that delivered it (spec Testable Property 3).
func (p Payload) Clone() Payload {
	cp := make([]byte, len(p.Data))
	copy(cp, p.Data)
	return Payload{Data: cp, IsText: p.IsText, ContentType: p.ContentType}
}

// Params is the per-kind parameters record carried by a Message. The
// receiver switches on Message.Kind to know which concrete type to
// expect; Params itself carries no behavior beyond identifying its kind.
type Params interface {
	Kind() Kind
}

// Message is a payload plus its protocol kind and addressing parameters.
// It is self-describing: a receiver inspects Kind to interpret Params.
//
// TraceID is an opaque correlation identifier stamped by the connector
// that first normalized the message. It exists purely for log
// correlation across a bridge dispatch and is never interpreted by
// transforms or drivers.
type Message struct {
	Kind    Kind
	Payload Payload
	Params  Params
	TraceID string
}

// NewTraceID returns a fresh correlation identifier for a newly
// normalized message.
func NewTraceID() string {
	return uuid.NewString()
}

// MQTTParams addresses an MQTT-kind message.
type MQTTParams struct {
	Topic  string
	QoS    byte
	Retain bool
}

func (MQTTParams) Kind() Kind { return KindMQTT }

// HTTPParams addresses an HTTP-server-kind message.
type HTTPParams struct {
	Path   string
	Method string
}

func (HTTPParams) Kind() Kind { return KindHTTPServer }

// SPITransactionOp enumerates the SPI transaction kinds from spec §4.4.
type SPITransactionOp int

const (
	SPIOpWrite SPITransactionOp = iota
	SPIOpRead
	SPIOpTransfer
)

// SPIParams addresses an SPI-kind message: which configured transaction
// produced it.
type SPIParams struct {
	TransactionName string
	Op              SPITransactionOp
}

func (SPIParams) Kind() Kind { return KindSPI }

// ModbusParams addresses a Modbus-kind message (RTU or TCP).
type ModbusParams struct {
	SlaveID      uint8
	FunctionCode uint8
	Address      uint16
	RegisterName string
}

func (ModbusParams) Kind() Kind { return KindModbusRTU } // overridden per-instance by driver when TCP

// ModbusTCPParams is the TCP-transport variant; kept distinct so a
// message's Kind always matches the driver that produced it.
type ModbusTCPParams struct {
	ModbusParams
}

func (ModbusTCPParams) Kind() Kind { return KindModbusTCP }

// UARTParams addresses a UART-kind message: the framed line/record.
type UARTParams struct {
	Delimiter byte
}

func (UARTParams) Kind() Kind { return KindUART }

// OpaqueParams is used by connector kinds with no real driver: the
// parameter subtree is stored as a normalized JSON string so later
// components can interpret it without re-parsing the source config
// format (spec §4.7).
type OpaqueParams struct {
	RawJSON string
	kind    Kind
}

// NewOpaqueParams builds an OpaqueParams tagged with its connector kind.
func NewOpaqueParams(kind Kind, rawJSON string) OpaqueParams {
	return OpaqueParams{RawJSON: rawJSON, kind: kind}
}

func (o OpaqueParams) Kind() Kind { return o.kind }
