// ABOUTME: Tests for FLAC CRC tables
// ABOUTME: Regenerates both tables bitwise and checks published reference values
package crc

import "testing"

var checkInput = []byte("123456789")

// bitwise8 is the reference shift-register form of CRC-8 poly 0x07.
func bitwise8(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// bitwise16 is the reference shift-register form of CRC-16 poly 0x8005.
func bitwise16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func TestCRC8TableMatchesPolynomial(t *testing.T) {
	for i := 0; i < 256; i++ {
		want := bitwise8([]byte{byte(i)})
		if crc8Table[i] != want {
			t.Fatalf("crc8Table[%d] = 0x%02X, want 0x%02X", i, crc8Table[i], want)
		}
	}
}

func TestCRC16TableMatchesPolynomial(t *testing.T) {
	for i := 0; i < 256; i++ {
		v := bitwise16([]byte{byte(i)})
		want := v<<8 | v>>8
		if crc16Table[i] != want {
			t.Fatalf("crc16Table[%d] = 0x%04X, want 0x%04X", i, crc16Table[i], want)
		}
	}
}

func TestCheckValues(t *testing.T) {
	// CRC-8/SMBUS (ATM) and CRC-16/UMTS (BUYPASS) catalogue check values.
	if got := CRC8(checkInput); got != 0xF4 {
		t.Errorf("CRC8 check = 0x%02X, want 0xF4", got)
	}
	if got := CRC16(checkInput); got != 0xFEE8 {
		t.Errorf("CRC16 check = 0x%04X, want 0xFEE8", got)
	}
	if got := Footer16(checkInput); got != 0xE8FE {
		t.Errorf("Footer16 check = 0x%04X, want 0xE8FE", got)
	}
}

func TestAgainstBitwise(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00},
		{0xFF, 0xF8, 0xC9, 0x18, 0x00},
		[]byte("fLaC"),
		checkInput,
	}
	for _, in := range inputs {
		if got, want := CRC8(in), bitwise8(in); got != want {
			t.Errorf("CRC8(%x) = 0x%02X, want 0x%02X", in, got, want)
		}
		if got, want := CRC16(in), bitwise16(in); got != want {
			t.Errorf("CRC16(%x) = 0x%04X, want 0x%04X", in, got, want)
		}
	}
}

func TestUpdateCRC8Incremental(t *testing.T) {
	whole := CRC8(checkInput)
	part := UpdateCRC8(CRC8(checkInput[:4]), checkInput[4:])
	if whole != part {
		t.Errorf("incremental CRC8 = 0x%02X, want 0x%02X", part, whole)
	}
}

func TestMatchFooter(t *testing.T) {
	sum := CRC16(checkInput)
	footer := []byte{byte(sum >> 8), byte(sum)}
	if !MatchFooter(checkInput, footer) {
		t.Error("expected big-endian footer to match")
	}
	if MatchFooter(checkInput, []byte{footer[1], footer[0]}) {
		t.Error("expected swapped footer to be rejected")
	}
	if MatchFooter(checkInput, footer[:1]) {
		t.Error("expected short footer to be rejected")
	}
}
