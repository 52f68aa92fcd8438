// Package modbuscrc implements the Modbus RTU CRC16 checksum, used by
// the Modbus driver (internal/connector/modbusconn) to frame and verify
// RTU transactions.
package modbuscrc

// CRC16 computes the standard Modbus RTU CRC-16 checksum.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)

	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}

	return crc
}

// Verify reports whether the trailing two bytes of data are a valid
// little-endian CRC16 of the preceding bytes.
func Verify(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	want := CRC16(data[:len(data)-2])
	got := uint16(data[len(data)-2]) | (uint16(data[len(data)-1]) << 8)
	return want == got
}

// Append returns data with its CRC16 appended in little-endian order
// (low byte first), as required by the Modbus RTU wire format.
func Append(data []byte) []byte {
	crc := CRC16(data)
	out := make([]byte, len(data)+2)
	copy(out, data)
	out[len(data)] = byte(crc & 0xFF)
	out[len(data)+1] = byte(crc >> 8)
	return out
}
