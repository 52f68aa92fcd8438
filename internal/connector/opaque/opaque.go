// Package opaque registers the connector kinds the gateway accepts in
// configuration but does not drive: I2C, BLE, CoAP, LoRaWAN, 1-Wire,
// OPC-UA, SocketCAN, Zigbee. Each gets a registry entry with a parser
// that stores its params subtree as normalized JSON (spec §4.7's opaque
// fallback) but no Opener — the supervisor skips a bridge naming one of
// these kinds as an endpoint with ErrUnsupportedPair.
package opaque

import (
	"encoding/json"
	"fmt"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/message"
)

func init() {
	kinds := map[string]message.Kind{
		"i2c":       message.KindI2C,
		"ble":       message.KindBLE,
		"coap":      message.KindCoAP,
		"lorawan":   message.KindLoRaWAN,
		"onewire":   message.KindOneWire,
		"opcua":     message.KindOPCUA,
		"socketcan": message.KindSocketCAN,
		"zigbee":    message.KindZigbee,
	}
	for typ, kind := range kinds {
		k := kind
		connector.Register(connector.Entry{
			Type:  typ,
			Kind:  k,
			Parse: parserFor(k),
			Open:  nil,
		})
	}
}

func parserFor(kind message.Kind) connector.Parser {
	return func(raw map[string]any) (any, error) {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: opaque: marshal params: %v", connector.ErrDeviceConfig, err)
		}
		return message.NewOpaqueParams(kind, string(data)), nil
	}
}
