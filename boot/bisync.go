// Package boot drives a resident USB HID bootloader: it frames and sends the
// five fixed protocol commands, retries on transport stalls, and sequences
// the erase/program/verify workflows over a parsed hex image.
package boot

import "github.com/pkg/errors"

// BiSync control bytes, fixed by the bootloader's framing layer.
const (
	b_SOH byte = 0x01
	b_EOT byte = 0x04
	b_DLE byte = 0x10
)

// ErrBadFrame marks a response that could not be unframed or failed its CRC.
var ErrBadFrame = errors.New("malformed response frame")

// bisyncEncode wraps body as [SOH body EOT], escaping every SOH, EOT or DLE
// inside body with a leading DLE.
func bisyncEncode(body []byte) []byte {
	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, b_SOH)
	for _, b := range body {
		if b == b_SOH || b == b_EOT || b == b_DLE {
			frame = append(frame, b_DLE)
		}
		frame = append(frame, b)
	}
	return append(frame, b_EOT)
}

// bisyncDecode extracts the body from a frame, stopping at the first
// unescaped EOT. Bytes past the EOT (HID report padding) are ignored.
func bisyncDecode(frame []byte) ([]byte, error) {
	if len(frame) == 0 || frame[0] != b_SOH {
		return nil, errors.Wrap(ErrBadFrame, "missing SOH")
	}

	body := make([]byte, 0, len(frame))
	escaped := false
	for _, b := range frame[1:] {
		switch {
		case escaped:
			body = append(body, b)
			escaped = false
		case b == b_DLE:
			escaped = true
		case b == b_EOT:
			return body, nil
		default:
			body = append(body, b)
		}
	}
	return nil, errors.Wrap(ErrBadFrame, "missing EOT")
}
