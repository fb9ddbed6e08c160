package boot

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-hidboot/crc16"
	"github.com/synthread/go-hidboot/hexfile"
)

// State tracks where a Session is in the erase/program/verify sequence.
type State int

const (
	StateIdle State = iota
	StateErasing
	StateProgramming
	StateVerifying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateErasing:
		return "erasing"
	case StateProgramming:
		return "programming"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// CRCSource says which side produced a checksum.
type CRCSource int

const (
	SourceDevice CRCSource = iota
	SourceHost
)

func (s CRCSource) String() string {
	if s == SourceDevice {
		return "device"
	}
	return "host"
}

// CRCResult is one checksum together with its provenance.
type CRCResult struct {
	Value  uint16
	Source CRCSource
}

// CompareResult holds both sides of a flash-vs-hexfile verification. A
// mismatch is a result, not an error.
type CompareResult struct {
	Device CRCResult
	Host   CRCResult
	Match  bool
}

// Session drives complete bootloader workflows over a single exclusively
// owned Host. It is not safe for concurrent use: the firmware supports one
// outstanding command, so callers run one workflow at a time.
type Session struct {
	host  *Host
	state State
}

// NewSession wraps a Host in the workflow layer.
func NewSession(host *Host) *Session {
	return &Session{host: host, state: StateIdle}
}

// State reports the current workflow state.
func (s *Session) State() State { return s.state }

func (s *Session) setState(st State) {
	logrus.Debugf("session: %s -> %s", s.state, st)
	s.state = st
}

func (s *Session) fail(err error) error {
	s.setState(StateFailed)
	return err
}

// Bootload erases program memory, then writes every record of img in
// original file order. Records are checked against the report size up front,
// so an image the bootloader cannot take fails with flash still intact. If
// programming fails partway, flash is left in an indeterminate state; the
// only recovery is another full Bootload starting from erase.
func (s *Session) Bootload(img *hexfile.Image) error {
	// the firmware buffers one report per command, so the limit holds on
	// the serial transport too
	for _, rec := range img.Records {
		if n := len(encodeRequest(OpProgramFlash, rec.Raw)); n > reportSize {
			return s.fail(errors.Wrapf(ErrRecordTooLong,
				"record at line %d encodes to %d bytes, above the %d byte report",
				rec.Line, n, reportSize))
		}
	}

	s.setState(StateErasing)
	logrus.Info("erasing program memory")
	if err := s.host.EraseFlash(); err != nil {
		return s.fail(errors.WithMessage(err, "erase"))
	}

	s.setState(StateProgramming)
	logrus.Infof("programming %d records", len(img.Records))
	for _, rec := range img.Records {
		if err := s.host.ProgramFlash(rec.Raw); err != nil {
			return s.fail(errors.Wrapf(err,
				"program record at line %d (address 0x%04x); flash is now partially programmed, rerun bootload from erase",
				rec.Line, rec.Addr))
		}
	}

	s.setState(StateDone)
	logrus.Info("programming complete")
	return nil
}

// CRCMemory asks the device to checksum flash from start up to (not
// including) end.
func (s *Session) CRCMemory(start, end uint32) (CRCResult, error) {
	s.setState(StateVerifying)
	crc, err := s.host.ReadCRC(start, end-start)
	if err != nil {
		return CRCResult{}, s.fail(err)
	}
	s.setState(StateDone)
	return CRCResult{Value: crc, Source: SourceDevice}, nil
}

// CRCCompare checksums the same address window on both sides and reports the
// two values plus whether they match.
func (s *Session) CRCCompare(img *hexfile.Image, start, end uint32) (CompareResult, error) {
	device, err := s.CRCMemory(start, end)
	if err != nil {
		return CompareResult{}, err
	}
	host := HexfileCRC(img, start, end)
	return CompareResult{
		Device: device,
		Host:   host,
		Match:  device.Value == host.Value,
	}, nil
}

// RunProgram resets the device into its application. A clean send is
// success; no response ever arrives.
func (s *Session) RunProgram() error {
	if err := s.host.JumpToApp(); err != nil {
		return s.fail(err)
	}
	s.setState(StateDone)
	return nil
}

// HexfileCRC checksums the bytes img holds within [start, end) in address
// order. Gaps between segments contribute nothing, while CRCMemory covers
// the full span, so a compare is only meaningful when the window is aligned
// to the segment boundaries of a gapless image.
func HexfileCRC(img *hexfile.Image, start, end uint32) CRCResult {
	crc := crc16.Init
	for _, seg := range img.Segments {
		lo := max(seg.Addr, start)
		hi := min(seg.Addr+uint32(len(seg.Data)), end)
		for a := lo; a < hi; a++ {
			crc = crc16.Update(crc, seg.Data[a-seg.Addr])
		}
	}
	return CRCResult{Value: crc, Source: SourceHost}
}
