package boot

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestBisyncRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"empty", []byte{}},
		{"plain", []byte{0x02, 0x42, 0xff}},
		{"contains SOH", []byte{0x01}},
		{"contains EOT", []byte{0x04}},
		{"contains DLE", []byte{0x10}},
		{"all specials", []byte{0x01, 0x04, 0x10, 0x01, 0x10, 0x04}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := bisyncEncode(tt.body)
			got, err := bisyncDecode(frame)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(got, tt.body) {
				t.Errorf("round trip = %x, want %x", got, tt.body)
			}
		})
	}
}

func TestBisyncEncodeEscapes(t *testing.T) {
	frame := bisyncEncode([]byte{0x04})
	want := []byte{b_SOH, b_DLE, 0x04, b_EOT}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = %x, want %x", frame, want)
	}
}

func TestBisyncDecodeIgnoresPadding(t *testing.T) {
	frame := append(bisyncEncode([]byte{0xaa, 0xbb}), make([]byte, 58)...) // HID report padding
	got, err := bisyncDecode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, []byte{0xaa, 0xbb}) {
		t.Errorf("body = %x", got)
	}
}

func TestBisyncDecodeFailures(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"missing SOH", []byte{0x42, b_EOT}},
		{"missing EOT", []byte{b_SOH, 0x42}},
		{"dangling DLE", []byte{b_SOH, 0x42, b_DLE}},
		{"escaped EOT only", []byte{b_SOH, b_DLE, b_EOT}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bisyncDecode(tt.frame); !errors.Is(err, ErrBadFrame) {
				t.Errorf("decode(%x) = %v, want ErrBadFrame", tt.frame, err)
			}
		})
	}
}
