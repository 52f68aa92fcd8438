package modbusconn

import "testing"

func TestParseConfigRequiresTransport(t *testing.T) {
	if _, err := parseConfig(map[string]any{"device": "/dev/ttyUSB0"}); err == nil {
		t.Error("expected parseConfig to reject a missing transport")
	}
}

func TestParseConfigRTURequiresDevice(t *testing.T) {
	if _, err := parseConfig(map[string]any{"transport": "rtu"}); err == nil {
		t.Error("expected parseConfig to reject rtu transport without a device")
	}
}

func TestParseConfigTCPRequiresAddress(t *testing.T) {
	if _, err := parseConfig(map[string]any{"transport": "tcp"}); err == nil {
		t.Error("expected parseConfig to reject tcp transport without an address")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	raw := map[string]any{"transport": "rtu", "device": "/dev/ttyUSB0"}
	parsed, err := parseConfig(raw)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	cfg := parsed.(Config)
	if cfg.BaudRate != 9600 || cfg.SlaveID != 1 || cfg.PollIntervalMs != 1000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigRegisters(t *testing.T) {
	raw := map[string]any{
		"transport": "tcp",
		"address":   "10.0.0.5:502",
		"registers": []any{
			map[string]any{"name": "voltage", "function": 0x03, "address": 0x100, "count": 2},
		},
	}
	parsed, err := parseConfig(raw)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	cfg := parsed.(Config)
	if len(cfg.Registers) != 1 {
		t.Fatalf("Registers = %d, want 1", len(cfg.Registers))
	}
	reg := cfg.Registers[0]
	if reg.Name != "voltage" || reg.Address != 0x100 || reg.Count != 2 {
		t.Errorf("register = %+v", reg)
	}
}

func TestKindReflectsTransport(t *testing.T) {
	rtu := &Runtime{cfg: Config{Transport: "rtu"}}
	if rtu.Kind().String() != "modbus_rtu" {
		t.Errorf("Kind() = %v, want modbus_rtu", rtu.Kind())
	}
	tcp := &Runtime{cfg: Config{Transport: "tcp"}}
	if tcp.Kind().String() != "modbus_tcp" {
		t.Errorf("Kind() = %v, want modbus_tcp", tcp.Kind())
	}
}
