package boot

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/synthread/go-hidboot/crc16"
)

// simDevice implements Transport as an in-memory bootloader: five opcodes,
// 0xff-erased flash, and the real bisync+CRC wire format on both sides.
type simDevice struct {
	version uint16
	mem     map[uint32]byte
	base    uint32

	sends   int
	erases  int
	pending [][]byte
}

func newSimDevice() *simDevice {
	return &simDevice{version: 0x0105, mem: map[uint32]byte{}}
}

func (d *simDevice) Send(frame []byte) error {
	d.sends++

	body, err := bisyncDecode(frame)
	if err != nil {
		return err
	}
	data, tail := body[:len(body)-2], body[len(body)-2:]
	if crc16.Checksum(data) != uint16(tail[0])|uint16(tail[1])<<8 {
		return errors.New("sim: bad request crc")
	}

	op, payload := Opcode(data[0]), data[1:]
	switch op {
	case OpReadBootInfo:
		d.respond(op, []byte{byte(d.version), byte(d.version >> 8)})
	case OpEraseFlash:
		d.mem = map[uint32]byte{}
		d.base = 0
		d.erases++
		d.respond(op, nil)
	case OpProgramFlash:
		d.program(payload)
		d.respond(op, nil)
	case OpReadCRC:
		addr := binary.LittleEndian.Uint32(payload[0:])
		length := binary.LittleEndian.Uint32(payload[4:])
		crc := crc16.Init
		for a := addr; a < addr+length; a++ {
			crc = crc16.Update(crc, d.peek(a))
		}
		d.respond(op, []byte{byte(crc), byte(crc >> 8)})
	case OpJumpToApp:
		// resets instead of answering
	}
	return nil
}

func (d *simDevice) Receive(timeout time.Duration) ([]byte, error) {
	if len(d.pending) == 0 {
		return nil, ErrTimeout
	}
	frame := d.pending[0]
	d.pending = d.pending[1:]
	return frame, nil
}

func (d *simDevice) Close() error { return nil }

// respond queues a response body framed exactly like a request.
func (d *simDevice) respond(op Opcode, payload []byte) {
	d.pending = append(d.pending, encodeRequest(op, payload))
}

func (d *simDevice) peek(a uint32) byte {
	if b, ok := d.mem[a]; ok {
		return b
	}
	return 0xff
}

// program applies one binary hex record the way the firmware's NVM layer
// does: data records land at the current extended base, type-04 records move
// the base, everything else is a no-op.
func (d *simDevice) program(rec []byte) {
	count := int(rec[0])
	addr := uint32(rec[1])<<8 | uint32(rec[2])
	data := rec[4 : 4+count]

	switch rec[3] {
	case 0x00:
		for i, b := range data {
			d.mem[d.base+addr+uint32(i)] = b
		}
	case 0x04:
		d.base = (uint32(data[0])<<8 | uint32(data[1])) << 16
	}
}

// recordLine builds one valid hex file line, checksum included.
func recordLine(addr uint16, typ byte, data []byte) string {
	raw := []byte{byte(len(data)), byte(addr >> 8), byte(addr), typ}
	raw = append(raw, data...)
	var sum byte
	for _, b := range raw {
		sum += b
	}
	raw = append(raw, ^sum+1)
	return ":" + strings.ToUpper(hex.EncodeToString(raw))
}

func testConfig() Config {
	return Config{
		Timeout:      10 * time.Millisecond,
		EraseTimeout: 10 * time.Millisecond,
		Retries:      0,
	}
}
