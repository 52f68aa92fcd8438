package modbuscrc

import "testing"

func TestCRC16KnownVector(t *testing.T) {
	// Known-good vector: a read-holding-registers request, CRC verified
	// against the Modbus spec's reference table.
	data := []byte{0x0B, 0x03, 0x20, 0x00, 0x00, 0x22}
	if got := CRC16(data); got != 0xB9CE {
		t.Errorf("CRC16() = 0x%04X, want 0x%04X", got, 0xB9CE)
	}
}

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = 0x%04X, want 0xFFFF", got)
	}
}

func TestCRC16Deterministic(t *testing.T) {
	data := []byte{0x0B, 0x04, 0x40, 0x00, 0x00, 0x16}
	first := CRC16(data)
	second := CRC16(data)
	if first != second {
		t.Errorf("CRC16() not deterministic: %04X != %04X", first, second)
	}
	if CRC16([]byte{0x0B, 0x04, 0x40, 0x00, 0x00, 0x17}) == first {
		t.Error("CRC16() collided on a single changed byte")
	}
}

func TestAppendAndVerify(t *testing.T) {
	data := []byte{0x0B, 0x03, 0x20, 0x00, 0x00, 0x12}
	framed := Append(data)

	if len(framed) != len(data)+2 {
		t.Fatalf("Append() length = %d, want %d", len(framed), len(data)+2)
	}
	for i := range data {
		if framed[i] != data[i] {
			t.Fatalf("Append() modified original data at index %d", i)
		}
	}
	if !Verify(framed) {
		t.Error("Verify() = false for a freshly appended frame")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid frame", Append([]byte{0x0B, 0x03, 0x20, 0x00, 0x00, 0x22}), true},
		{"corrupted crc", []byte{0x0B, 0x03, 0x20, 0x00, 0x00, 0x22, 0xFF, 0xFF}, false},
		{"too short", []byte{0x0B, 0x03}, false},
		{"empty", []byte{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.data); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}
