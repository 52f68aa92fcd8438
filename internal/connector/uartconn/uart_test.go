package uartconn

import "testing"

func TestParseConfigDefaults(t *testing.T) {
	parsed, err := parseConfig(map[string]any{"device": "/dev/ttyUSB0"})
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	cfg := parsed.(Config)
	if cfg.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", cfg.BaudRate)
	}
	if cfg.Delimiter != '\n' {
		t.Errorf("Delimiter = %q, want newline", cfg.Delimiter)
	}
}

func TestParseConfigRequiresDevice(t *testing.T) {
	if _, err := parseConfig(map[string]any{}); err == nil {
		t.Error("expected parseConfig to require device")
	}
}

func TestParseConfigCustomDelimiter(t *testing.T) {
	parsed, err := parseConfig(map[string]any{"device": "/dev/ttyUSB0", "delimiter": ";"})
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	cfg := parsed.(Config)
	if cfg.Delimiter != ';' {
		t.Errorf("Delimiter = %q, want ';'", cfg.Delimiter)
	}
}
