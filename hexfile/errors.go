package hexfile

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyFile is returned when a hex file holds no data records.
var ErrEmptyFile = errors.New("hex file contains no data records")

// ParseError reports a syntactically malformed line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ChecksumError reports a line whose trailing checksum byte does not match
// the record contents.
type ChecksumError struct {
	Line int
	Got  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("line %d: record checksum 0x%02x, computed 0x%02x", e.Line, e.Got, e.Want)
}

// OverlapError reports two data records claiming the same flash address.
type OverlapError struct {
	Addr uint32
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping data at address 0x%08x", e.Addr)
}
