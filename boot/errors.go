package boot

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoResponse is returned when a command exhausts its retry budget without
// a usable response.
var ErrNoResponse = errors.New("no response from bootloader")

// ErrDeviceBusy is what an erase timeout surfaces as: the erase window is
// bounded by flash geometry rather than transport health.
var ErrDeviceBusy = errors.New("erase did not complete in time")

// busyError tags an exhausted erase exchange with ErrDeviceBusy while
// keeping the exchange failure (and its retry count) in the chain, so
// errors.Is matches both ErrDeviceBusy and ErrNoResponse.
type busyError struct {
	cause error
}

func (e *busyError) Error() string {
	return fmt.Sprintf("%v: %v", ErrDeviceBusy, e.cause)
}

func (e *busyError) Is(target error) bool { return target == ErrDeviceBusy }

func (e *busyError) Unwrap() error { return e.cause }

// ErrProgramRejected is returned when the bootloader answers PROGRAM_FLASH
// with anything other than a bare opcode echo.
var ErrProgramRejected = errors.New("bootloader rejected hex record")

// ErrRecordTooLong is returned for a hex record whose encoded frame cannot
// fit a single report.
var ErrRecordTooLong = errors.New("hex record does not fit a single report")

// MismatchError reports a well-formed response whose opcode does not answer
// the request. It means the session is desynchronized; the command is never
// retried and the transport should be reopened.
type MismatchError struct {
	Want Opcode
	Got  Opcode
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("protocol mismatch: sent %s, device answered %s", e.Want, e.Got)
}
