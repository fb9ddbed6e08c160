// Package hexfile parses Intel HEX firmware images into contiguous memory
// segments, keeping the raw record images the bootloader's PROGRAM_FLASH
// command consumes.
package hexfile

// RecordType is the TT field of an Intel HEX record.
type RecordType byte

const (
	RecData             RecordType = 0x00
	RecEndOfFile        RecordType = 0x01
	RecExtSegmentAddr   RecordType = 0x02
	RecStartSegmentAddr RecordType = 0x03
	RecExtLinearAddr    RecordType = 0x04
	RecStartLinearAddr  RecordType = 0x05
)

// Record is one validated line of a hex file.
type Record struct {
	// Line is the 1-based line number in the source file.
	Line int

	// Addr is the 16-bit record address (before any extended linear offset).
	Addr uint16

	// Type is the record type field.
	Type RecordType

	// Data is the record payload.
	Data []byte

	// Raw is the full binary image of the line sans colon: byte count,
	// address, type, data and checksum. PROGRAM_FLASH sends this verbatim.
	Raw []byte
}

// Segment is a contiguous run of bytes destined for a flash address range.
type Segment struct {
	Addr uint32
	Data []byte
}

// end is one past the last address the segment covers.
func (s Segment) end() uint32 {
	return s.Addr + uint32(len(s.Data))
}

// Image is the parsed contents of one hex file: every record in file order,
// plus the data bytes folded into sorted, non-overlapping segments.
type Image struct {
	Records  []Record
	Segments []Segment
}

// Start returns the lowest address covered by the image.
func (img *Image) Start() uint32 {
	if len(img.Segments) == 0 {
		return 0
	}
	return img.Segments[0].Addr
}

// End returns one past the highest address covered by the image.
func (img *Image) End() uint32 {
	if len(img.Segments) == 0 {
		return 0
	}
	return img.Segments[len(img.Segments)-1].end()
}
