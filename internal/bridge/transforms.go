package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iotgw/iotgwd/internal/message"
)

// spiToMQTT wraps an SPI transaction's raw bytes into an MQTT message
// under the bridge's topic_prefix, falling back to "ingest/spi/read"
// when no prefix is configured. QoS 1, no retain.
func spiToMQTT(prefix string, in message.Message) (message.Message, bool, error) {
	if _, ok := in.Params.(message.SPIParams); !ok {
		return message.Message{}, false, fmt.Errorf("spi_to_mqtt: expected SPIParams, got %T", in.Params)
	}
	topic := "ingest/spi/read"
	if prefix != "" {
		topic = prefix + "/spi/read"
	}
	return message.Message{
		Kind:    message.KindMQTT,
		Payload: in.Payload.Clone(),
		Params:  message.MQTTParams{Topic: topic, QoS: 1},
		TraceID: in.TraceID,
	}, true, nil
}

// httpToMQTT republishes an inbound HTTP POST body under
// <prefix>/<path-with-leading-slash-stripped>.
func httpToMQTT(prefix string, in message.Message) (message.Message, bool, error) {
	hp, ok := in.Params.(message.HTTPParams)
	if !ok {
		return message.Message{}, false, fmt.Errorf("http_to_mqtt: expected HTTPParams, got %T", in.Params)
	}
	path := strings.TrimPrefix(sanitizeTopicSegment(hp.Path), "/")
	topic := path
	if prefix != "" {
		topic = prefix + "/" + path
	}
	return message.Message{
		Kind:    message.KindMQTT,
		Payload: in.Payload.Clone(),
		Params:  message.MQTTParams{Topic: topic, QoS: 0},
		TraceID: in.TraceID,
	}, true, nil
}

// modbusToMQTT encodes a decoded register read as a small JSON object
// under <prefix>/modbus/read, symmetric to spiToMQTT.
func modbusToMQTT(prefix string, in message.Message) (message.Message, bool, error) {
	mp, ok := in.Params.(message.ModbusParams)
	if !ok {
		if tcp, ok2 := in.Params.(message.ModbusTCPParams); ok2 {
			mp = tcp.ModbusParams
		} else {
			return message.Message{}, false, fmt.Errorf("modbus_to_mqtt: expected ModbusParams, got %T", in.Params)
		}
	}

	body, err := json.Marshal(struct {
		Address uint16 `json:"address"`
		Value   string `json:"value"`
	}{
		Address: mp.Address,
		Value:   string(in.Payload.Data),
	})
	if err != nil {
		return message.Message{}, false, fmt.Errorf("modbus_to_mqtt: encode: %w", err)
	}

	topic := "ingest/modbus/read"
	if prefix != "" {
		topic = prefix + "/modbus/read"
	}
	return message.Message{
		Kind:    message.KindMQTT,
		Payload: message.Payload{Data: body, IsText: true, ContentType: "application/json"},
		Params:  message.MQTTParams{Topic: topic, QoS: 0},
		TraceID: in.TraceID,
	}, true, nil
}

// uartToMQTT republishes a framed UART line under <prefix>/uart/rx.
func uartToMQTT(prefix string, in message.Message) (message.Message, bool, error) {
	if _, ok := in.Params.(message.UARTParams); !ok {
		return message.Message{}, false, fmt.Errorf("uart_to_mqtt: expected UARTParams, got %T", in.Params)
	}
	topic := "ingest/uart/rx"
	if prefix != "" {
		topic = prefix + "/uart/rx"
	}
	return message.Message{
		Kind:    message.KindMQTT,
		Payload: in.Payload.Clone(),
		Params:  message.MQTTParams{Topic: topic, QoS: 0},
		TraceID: in.TraceID,
	}, true, nil
}

func sanitizeTopicSegment(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '+' || c == '#' {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out)
}
