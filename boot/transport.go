package boot

import (
	"time"

	"github.com/pkg/errors"
)

var ErrTimeout = errors.New("timed out waiting for bootloader response")
var ErrClosed = errors.New("transport is closed")
var ErrDeviceNotFound = errors.New("no matching HID device found")

// Transport moves single protocol frames to and from the bootloader. A frame
// is the bisync-framed wire image of one request or response; the transport
// neither inspects nor alters it.
//
// A transport handle is exclusively owned by one Host for the duration of a
// workflow. The bootloader cannot pipeline commands, so implementations need
// not be safe for concurrent use.
type Transport interface {
	// Send transmits one frame.
	Send(frame []byte) error

	// Receive returns the next frame, waiting at most timeout. It returns
	// ErrTimeout when nothing arrives in time.
	Receive(timeout time.Duration) ([]byte, error)

	Close() error
}
