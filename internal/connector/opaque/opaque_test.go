package opaque

import (
	"testing"

	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/message"
)

func TestRegistersEveryOpaqueKindWithNoOpener(t *testing.T) {
	types := []string{"i2c", "ble", "coap", "lorawan", "onewire", "opcua", "socketcan", "zigbee"}
	for _, typ := range types {
		entry, ok := connector.Lookup(typ)
		if !ok {
			t.Errorf("Lookup(%q) not found", typ)
			continue
		}
		if entry.Open != nil {
			t.Errorf("%q: expected nil Opener", typ)
		}
		if entry.Parse == nil {
			t.Errorf("%q: expected non-nil Parser", typ)
		}
	}
}

func TestParserProducesOpaqueParams(t *testing.T) {
	entry, ok := connector.Lookup("i2c")
	if !ok {
		t.Fatal("i2c entry not registered")
	}
	parsed, err := entry.Parse(map[string]any{"address": 0x48})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	params, ok := parsed.(message.Params)
	if !ok {
		t.Fatalf("Parse() returned %T, not message.Params", parsed)
	}
	if params.Kind() != message.KindI2C {
		t.Errorf("Kind() = %v, want %v", params.Kind(), message.KindI2C)
	}
}
