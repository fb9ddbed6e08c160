package boot

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/synthread/go-hidboot/crc16"
)

// Opcode identifies one of the five commands the resident bootloader
// understands. The set is fixed by the firmware; responses are decoded by
// exhaustive match, not by lookup.
type Opcode byte

const (
	OpReadBootInfo Opcode = 1
	OpEraseFlash   Opcode = 2
	OpProgramFlash Opcode = 3
	OpReadCRC      Opcode = 4
	OpJumpToApp    Opcode = 5
)

func (op Opcode) String() string {
	switch op {
	case OpReadBootInfo:
		return "READ_BOOT_INFO"
	case OpEraseFlash:
		return "ERASE_FLASH"
	case OpProgramFlash:
		return "PROGRAM_FLASH"
	case OpReadCRC:
		return "READ_CRC"
	case OpJumpToApp:
		return "JMP_TO_APP"
	}
	return fmt.Sprintf("opcode %d", byte(op))
}

// BootInfo is the bootloader version reported by READ_BOOT_INFO.
type BootInfo struct {
	VersionLo byte
	VersionHi byte
}

// Version combines the two wire bytes, low byte first.
func (bi BootInfo) Version() uint16 {
	return uint16(bi.VersionLo) | uint16(bi.VersionHi)<<8
}

// encodeRequest builds the wire frame for one command: opcode and payload,
// a little-endian CRC16 over both, then bisync framing around everything.
func encodeRequest(op Opcode, payload []byte) []byte {
	body := make([]byte, 0, len(payload)+3)
	body = append(body, byte(op))
	body = append(body, payload...)

	crc := crc16.Checksum(body)
	body = append(body, byte(crc), byte(crc>>8))

	return bisyncEncode(body)
}

// decodeResponse unframes a received frame, verifies its trailing CRC16 and
// checks that it answers op. The returned payload excludes the opcode and
// the CRC.
func decodeResponse(op Opcode, frame []byte) ([]byte, error) {
	body, err := bisyncDecode(frame)
	if err != nil {
		return nil, err
	}
	if len(body) < 3 {
		return nil, errors.Wrapf(ErrBadFrame, "%d byte response body", len(body))
	}

	data, tail := body[:len(body)-2], body[len(body)-2:]
	want := uint16(tail[0]) | uint16(tail[1])<<8
	if got := crc16.Checksum(data); got != want {
		return nil, errors.Wrapf(ErrBadFrame, "response crc 0x%04x, computed 0x%04x", want, got)
	}

	if got := Opcode(data[0]); got != op {
		return nil, &MismatchError{Want: op, Got: got}
	}
	return data[1:], nil
}
