// Package crc16 implements the 16-bit CRC used by the resident HID
// bootloader, both for flash verification and for the per-frame checksum on
// the wire. The firmware computes it with the CCITT polynomial (0x1021),
// one nibble at a time through a 16-entry table, starting from zero with no
// reflection and no final XOR (the variant commonly called CRC-16/XMODEM).
package crc16

// Poly is the CCITT generator polynomial behind crcTable.
const Poly uint16 = 0x1021

// Init is the starting CRC value. The bootloader starts from zero, not the
// 0xFFFF used by CCITT-FALSE.
const Init uint16 = 0x0000

// crcTable holds the CRC of every 4-bit value, letting Update consume a byte
// with two lookups. It must stay byte-exact with the table compiled into the
// bootloader firmware.
var crcTable = [16]uint16{
	0x0000, 0x1021, 0x2042, 0x3063, 0x4084, 0x50a5, 0x60c6, 0x70e7,
	0x8108, 0x9129, 0xa14a, 0xb16b, 0xc18c, 0xd1ad, 0xe1ce, 0xf1ef,
}

// Update folds one byte into crc, high nibble first.
func Update(crc uint16, b byte) uint16 {
	crc = crcTable[((crc>>12)^uint16(b>>4))&0x0f] ^ (crc << 4)
	crc = crcTable[((crc>>12)^uint16(b))&0x0f] ^ (crc << 4)
	return crc
}

// Checksum computes the CRC of data starting from Init.
func Checksum(data []byte) uint16 {
	crc := Init
	for _, b := range data {
		crc = Update(crc, b)
	}
	return crc
}
