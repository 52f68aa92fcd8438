package spiconn

import (
	"reflect"
	"testing"
)

func TestParseHexBytes(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"0x9F", []byte{0x9F}},
		{"9F 00 00", []byte{0x9F, 0x00, 0x00}},
		{"0X0102", []byte{0x01, 0x02}},
		{"", nil},
		{"1", []byte{0x10}}, // odd-length input is padded
	}
	for _, tt := range tests {
		got, err := parseHexBytes(tt.in)
		if err != nil {
			t.Fatalf("parseHexBytes(%q) error = %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseHexBytes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseHexBytesInvalid(t *testing.T) {
	if _, err := parseHexBytes("ZZ"); err == nil {
		t.Error("expected parseHexBytes to reject non-hex input")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	raw := map[string]any{"device": "/dev/spidev0.0"}
	parsed, err := parseConfig(raw)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	cfg := parsed.(Config)
	if cfg.BitsPerWord != 8 {
		t.Errorf("BitsPerWord = %d, want 8", cfg.BitsPerWord)
	}
	if cfg.SpeedHz != 1_000_000 {
		t.Errorf("SpeedHz = %d, want 1000000", cfg.SpeedHz)
	}
}

func TestParseConfigRequiresDevice(t *testing.T) {
	if _, err := parseConfig(map[string]any{}); err == nil {
		t.Error("expected parseConfig to require device")
	}
}

func TestParseConfigTransactions(t *testing.T) {
	raw := map[string]any{
		"device": "/dev/spidev0.0",
		"transactions": []any{
			map[string]any{"name": "id", "op": "transfer", "tx": "0x9F000000", "rx_len": 4},
		},
	}
	parsed, err := parseConfig(raw)
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	cfg := parsed.(Config)
	if len(cfg.Transactions) != 1 {
		t.Fatalf("Transactions = %d, want 1", len(cfg.Transactions))
	}
	txn := cfg.Transactions[0]
	if txn.Name != "id" || txn.RXLen != 4 {
		t.Errorf("transaction = %+v", txn)
	}
	if len(txn.TX) != 4 {
		t.Errorf("TX length = %d, want 4", len(txn.TX))
	}
}
