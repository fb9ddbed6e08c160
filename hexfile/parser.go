package hexfile

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// minRecordChars is the shortest valid line after the colon: byte count,
// address, type and checksum with no data.
const minRecordChars = 10

// Parse reads and parses the hex file at path.
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open hex file")
	}
	defer f.Close()

	return ParseReader(f)
}

// ParseReader parses Intel HEX text from r. Blank lines and lines starting
// with '#' are skipped. Parsing stops at the first End-Of-File record;
// anything after it is ignored. Every returned segment is non-empty and
// contiguous, and segments are sorted by address with no two overlapping.
func ParseReader(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)
	img := &Image{}

	var base uint32 // upper 16 address bits from the last type-04 record
	line := 0
scan:
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' {
			continue
		}

		rec, err := parseLine(line, text)
		if err != nil {
			return nil, err
		}
		img.Records = append(img.Records, rec)

		switch rec.Type {
		case RecData:
			img.addData(base+uint32(rec.Addr), rec.Data)
		case RecEndOfFile:
			break scan
		case RecExtLinearAddr:
			if len(rec.Data) != 2 {
				return nil, &ParseError{Line: line, Reason: "extended linear address record must carry two bytes"}
			}
			base = uint32(binary.BigEndian.Uint16(rec.Data)) << 16
		default:
			// other record types carry nothing the bootloader host needs,
			// but they were still checksum-validated above
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read hex file")
	}

	if len(img.Segments) == 0 {
		return nil, ErrEmptyFile
	}
	if err := img.normalize(); err != nil {
		return nil, err
	}
	return img, nil
}

// parseLine validates one record line and returns it in binary form.
func parseLine(line int, text string) (Record, error) {
	if text[0] != ':' {
		return Record{}, &ParseError{Line: line, Reason: `line must begin with ":"`}
	}
	body := text[1:]
	if len(body) < minRecordChars {
		return Record{}, &ParseError{Line: line, Reason: fmt.Sprintf("record too short (%d hex digits)", len(body))}
	}

	raw, err := hex.DecodeString(body)
	if err != nil {
		return Record{}, &ParseError{Line: line, Reason: "record is not valid hex"}
	}
	count := int(raw[0])
	if len(raw) != count+5 {
		return Record{}, &ParseError{
			Line:   line,
			Reason: fmt.Sprintf("record length %d does not match byte count %d", len(raw), count),
		}
	}

	// checksum is the two's complement of the 8-bit sum of everything
	// before it on the line
	var sum byte
	for _, b := range raw[:len(raw)-1] {
		sum += b
	}
	want := ^sum + 1
	if got := raw[len(raw)-1]; got != want {
		return Record{}, &ChecksumError{Line: line, Got: got, Want: want}
	}

	return Record{
		Line: line,
		Addr: binary.BigEndian.Uint16(raw[1:3]),
		Type: RecordType(raw[3]),
		Data: raw[4 : 4+count],
		Raw:  raw,
	}, nil
}

// addData folds one data record into the segment list, extending the last
// segment when the record lands exactly at its end.
func (img *Image) addData(addr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	if n := len(img.Segments); n > 0 && img.Segments[n-1].end() == addr {
		seg := &img.Segments[n-1]
		seg.Data = append(seg.Data, data...)
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	img.Segments = append(img.Segments, Segment{Addr: addr, Data: cp})
}

// normalize sorts segments by address, rejects overlaps, and merges runs
// that turn out to be contiguous once sorted.
func (img *Image) normalize() error {
	sort.SliceStable(img.Segments, func(i, j int) bool {
		return img.Segments[i].Addr < img.Segments[j].Addr
	})

	merged := img.Segments[:1]
	for _, seg := range img.Segments[1:] {
		last := &merged[len(merged)-1]
		switch {
		case seg.Addr < last.end():
			return &OverlapError{Addr: seg.Addr}
		case seg.Addr == last.end():
			last.Data = append(last.Data, seg.Data...)
		default:
			merged = append(merged, seg)
		}
	}
	img.Segments = merged
	return nil
}
