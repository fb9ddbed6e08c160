package boot

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sstallion/go-hid"
)

// Default USB identifiers of the Microchip HID bootloader.
const (
	DefaultVendorID  uint16 = 0x04d8
	DefaultProductID uint16 = 0x003f
)

// reportSize is the fixed HID report size the bootloader firmware uses.
const reportSize = 64

// HIDTransport exchanges fixed-size reports with the bootloader over USB HID.
type HIDTransport struct {
	dev *hid.Device
}

// OpenHID opens the first HID device matching vid and pid.
func OpenHID(vid, pid uint16) (*HIDTransport, error) {
	var path string
	err := hid.Enumerate(vid, pid, func(info *hid.DeviceInfo) error {
		if path == "" {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not enumerate hid devices")
	}
	if path == "" {
		return nil, errors.Wrapf(ErrDeviceNotFound, "vid 0x%04x pid 0x%04x", vid, pid)
	}

	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open hid device")
	}
	logrus.Debugf("hid open: %s", path)

	return &HIDTransport{dev: dev}, nil
}

// Send writes frame as a single output report, prefixed with a zero report
// ID and padded to the full report size.
func (t *HIDTransport) Send(frame []byte) error {
	if t.dev == nil {
		return ErrClosed
	}
	if len(frame) > reportSize {
		return errors.Errorf("frame of %d bytes exceeds report size %d", len(frame), reportSize)
	}

	buf := make([]byte, reportSize+1)
	copy(buf[1:], frame)
	logrus.Tracef("hid tx: %x", frame)

	_, err := t.dev.Write(buf)
	return errors.Wrap(err, "could not write report")
}

// Receive reads one input report, waiting at most timeout.
func (t *HIDTransport) Receive(timeout time.Duration) ([]byte, error) {
	if t.dev == nil {
		return nil, ErrClosed
	}

	buf := make([]byte, reportSize)
	n, err := t.dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "could not read report")
	}
	if n == 0 {
		return nil, ErrTimeout
	}
	logrus.Tracef("hid rx: %x", buf[:n])

	return buf[:n], nil
}

func (t *HIDTransport) Close() error {
	if t.dev == nil {
		return nil
	}
	err := t.dev.Close()
	t.dev = nil
	logrus.Debug("hid close")
	return err
}
