package crc16

import (
	"math/rand"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, Init},
		{"single zero byte", []byte{0x00}, 0x0000},
		{"single A", []byte("A"), 0x58e5},
		{"check string", []byte("123456789"), 0x31c3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum(%q) = 0x%04x, want 0x%04x", tt.data, got, tt.want)
			}
		})
	}
}

func TestChecksumDeterministic(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x04, 0x10}
	first := Checksum(data)
	for i := 0; i < 10; i++ {
		if got := Checksum(data); got != first {
			t.Fatalf("Checksum not deterministic: 0x%04x then 0x%04x", first, got)
		}
	}
}

func TestUpdateIncremental(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 257)
	rng.Read(data)

	crc := Init
	for _, b := range data {
		crc = Update(crc, b)
	}
	if want := Checksum(data); crc != want {
		t.Errorf("incremental Update = 0x%04x, Checksum = 0x%04x", crc, want)
	}
}

// bitwiseUpdate is the textbook MSB-first CRC, used here to cross-check the
// nibble table.
func bitwiseUpdate(crc uint16, b byte) uint16 {
	crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = crc<<1 ^ Poly
		} else {
			crc <<= 1
		}
	}
	return crc
}

func TestTableMatchesPolynomial(t *testing.T) {
	for b := 0; b < 256; b++ {
		for _, seed := range []uint16{0x0000, 0xffff, 0x1234} {
			got := Update(seed, byte(b))
			want := bitwiseUpdate(seed, byte(b))
			if got != want {
				t.Fatalf("Update(0x%04x, 0x%02x) = 0x%04x, bitwise = 0x%04x",
					seed, b, got, want)
			}
		}
	}
}
