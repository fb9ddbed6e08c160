package boot

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultBaud is used when no baud rate is configured.
var DefaultBaud = 115200

// SerialTransport carries the same bootloader frames over a UART. The bisync
// delimiters mark frame boundaries on the byte stream.
type SerialTransport struct {
	port serial.Port
	rx   chan byte
	done chan struct{}
	open bool
}

// OpenSerial opens the named port at the given baud rate (8N1). A baud of
// zero or less falls back to DefaultBaud.
func OpenSerial(name string, baud int) (*SerialTransport, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not open serial")
	}

	t := &SerialTransport{
		port: port,
		rx:   make(chan byte, 64),
		done: make(chan struct{}),
		open: true,
	}
	go t.pump()

	logrus.Debugf("serial open: %s @ %d", name, baud)
	return t, nil
}

// pump is the loop that forever reads from the port and writes the incoming
// bytes to the rx chan.
func (t *SerialTransport) pump() {
	buf := make([]byte, 64)

	t.port.SetReadTimeout(1 * time.Millisecond)

	for {
		n, err := t.port.Read(buf)
		if err != nil {
			if perr, ok := err.(*serial.PortError); ok && perr.Code() == serial.PortClosed {
				return
			}
			if errors.Is(err, syscall.EBADF) {
				return
			}
			logrus.Error("serial rx err: ", err.Error())
			return
		}

		// a select on done keeps a full rx channel from pinning the
		// goroutine when nobody is receiving
		for _, b := range buf[:n] {
			select {
			case t.rx <- b:
			case <-t.done:
				return
			}
		}
		if n > 0 {
			logrus.Tracef("serial rx: %x", buf[:n])
		}
	}
}

// Send writes one frame to the port.
func (t *SerialTransport) Send(frame []byte) error {
	if !t.open {
		return ErrClosed
	}
	if _, err := t.port.Write(frame); err != nil {
		return errors.Wrap(err, "could not write frame")
	}
	logrus.Tracef("serial tx: %x", frame)
	return nil
}

// Receive assembles one frame from the byte stream, waiting at most timeout
// for it to complete. Noise between frames is discarded; the returned frame
// keeps its SOH and EOT delimiters so decoding stays in one place.
func (t *SerialTransport) Receive(timeout time.Duration) ([]byte, error) {
	if !t.open {
		return nil, ErrClosed
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var frame []byte
	escaped := false
	for {
		select {
		case <-t.done:
			return nil, ErrClosed
		case <-deadline.C:
			return nil, ErrTimeout
		case b := <-t.rx:
			if len(frame) == 0 {
				if b != b_SOH {
					continue
				}
				frame = append(frame, b)
				continue
			}
			frame = append(frame, b)
			switch {
			case escaped:
				escaped = false
			case b == b_DLE:
				escaped = true
			case b == b_EOT:
				return frame, nil
			}
		}
	}
}

func (t *SerialTransport) Close() error {
	if !t.open {
		return nil
	}
	t.open = false
	close(t.done)
	logrus.Debug("serial close")
	return t.port.Close()
}
