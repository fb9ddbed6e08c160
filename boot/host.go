package boot

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config tunes the per-command timing of a Host. Zero fields fall back to
// DefaultConfig, except Retries, where zero is meaningful: a command gets
// 1+Retries attempts in total.
type Config struct {
	// Timeout bounds the wait for a single response.
	Timeout time.Duration

	// EraseTimeout bounds ERASE_FLASH separately; erase duration depends on
	// flash geometry, not transport health.
	EraseTimeout time.Duration

	// Retries is how many times a command is resent after a timeout or a
	// corrupt response frame before the failure is surfaced.
	Retries int
}

// DefaultConfig matches the timing of the reference host tool.
var DefaultConfig = Config{
	Timeout:      5 * time.Second,
	EraseTimeout: 20 * time.Second,
	Retries:      3,
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig.Timeout
	}
	if c.EraseTimeout <= 0 {
		c.EraseTimeout = DefaultConfig.EraseTimeout
	}
	if c.Retries < 0 {
		c.Retries = DefaultConfig.Retries
	}
	return c
}

// Host speaks the five-opcode protocol over a Transport, one command in
// flight at a time. A Host must not be shared across goroutines; it owns the
// transport for the duration of a workflow.
type Host struct {
	t   Transport
	cfg Config
}

// NewHost wraps a transport with the command layer.
func NewHost(t Transport, cfg Config) *Host {
	return &Host{t: t, cfg: cfg.withDefaults()}
}

// Close releases the underlying transport.
func (h *Host) Close() error {
	return h.t.Close()
}

// ReadBootInfo asks the bootloader for its version.
func (h *Host) ReadBootInfo() (BootInfo, error) {
	payload, err := h.exchange(OpReadBootInfo, nil, h.cfg.Timeout)
	if err != nil {
		return BootInfo{}, err
	}
	if len(payload) < 2 {
		return BootInfo{}, errors.Wrap(ErrBadFrame, "short READ_BOOT_INFO response")
	}
	return BootInfo{VersionLo: payload[0], VersionHi: payload[1]}, nil
}

// EraseFlash erases application flash. The erased range is fixed when the
// firmware is built; there is nothing to parameterize.
func (h *Host) EraseFlash() error {
	payload, err := h.exchange(OpEraseFlash, nil, h.cfg.EraseTimeout)
	if errors.Is(err, ErrNoResponse) {
		return &busyError{cause: err}
	}
	if err != nil {
		return err
	}
	if len(payload) != 0 {
		return errors.Wrapf(ErrBadFrame, "ERASE_FLASH echoed %d payload bytes", len(payload))
	}
	return nil
}

// ProgramFlash writes one binary hex record into program memory. Flash must
// have been erased first; records must arrive in ascending address order.
func (h *Host) ProgramFlash(record []byte) error {
	payload, err := h.exchange(OpProgramFlash, record, h.cfg.Timeout)
	if err != nil {
		return err
	}
	if len(payload) != 0 {
		return errors.Wrapf(ErrProgramRejected, "device answered with %d status bytes", len(payload))
	}
	return nil
}

// ReadCRC has the bootloader checksum length bytes of flash starting at
// addr, using the same CRC16 the crc16 package implements.
func (h *Host) ReadCRC(addr, length uint32) (uint16, error) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:], addr)
	binary.LittleEndian.PutUint32(payload[4:], length)

	resp, err := h.exchange(OpReadCRC, payload, h.cfg.Timeout)
	if err != nil {
		return 0, err
	}
	if len(resp) < 2 {
		return 0, errors.Wrap(ErrBadFrame, "short READ_CRC response")
	}
	return uint16(resp[0]) | uint16(resp[1])<<8, nil
}

// JumpToApp resets the device into the loaded application. The device never
// acknowledges this command, so success is the send completing, not a
// response arriving.
func (h *Host) JumpToApp() error {
	return errors.Wrap(h.t.Send(encodeRequest(OpJumpToApp, nil)), "JMP_TO_APP: send")
}

// exchange sends one command and waits for its response, resending on
// timeouts and corrupt frames up to the retry budget. A well-formed response
// with the wrong opcode is a desync and fails immediately.
func (h *Host) exchange(op Opcode, payload []byte, timeout time.Duration) ([]byte, error) {
	req := encodeRequest(op, payload)
	attempts := h.cfg.Retries + 1

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			logrus.Debugf("%s: retry %d of %d (%v)", op, i, h.cfg.Retries, last)
		}
		if err := h.t.Send(req); err != nil {
			return nil, errors.Wrapf(err, "%s: send", op)
		}

		frame, err := h.t.Receive(timeout)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				last = err
				continue
			}
			return nil, errors.Wrapf(err, "%s: receive", op)
		}

		resp, err := decodeResponse(op, frame)
		if err != nil {
			var mismatch *MismatchError
			if errors.As(err, &mismatch) {
				return nil, err
			}
			last = err // corrupt frame, worth another attempt
			continue
		}
		return resp, nil
	}
	return nil, errors.Wrapf(ErrNoResponse, "%s after %d attempts (last: %v)", op, attempts, last)
}
