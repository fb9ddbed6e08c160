package main

import (
	"flag"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/synthread/go-hidboot/hexfile"
)

// testImage covers [0x10, 0x14).
func testImage(t *testing.T) *hexfile.Image {
	t.Helper()
	img, err := hexfile.ParseReader(strings.NewReader(":0400100001020304E2\n:00000001FF"))
	if err != nil {
		t.Fatalf("parse image: %v", err)
	}
	return img
}

func windowContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("hidboot", flag.ContinueOnError)
	set.String("start", "", "")
	set.String("end", "", "")
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(nil, set, nil)
}

func TestWindowResolution(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		withImage  bool
		start, end uint32
	}{
		{"both absent", nil, true, 0x10, 0x14},
		{"start only", []string{"--start", "0x12"}, true, 0x12, 0x14},
		{"end only", []string{"--end", "0x13"}, true, 0x10, 0x13},
		{"both given", []string{"--start", "0x11", "--end", "0x13"}, true, 0x11, 0x13},
		{"decimal", []string{"--start", "17", "--end", "19"}, true, 17, 19},
		{"no image needed", []string{"--start", "0x100", "--end", "0x200"}, false, 0x100, 0x200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var img *hexfile.Image
			if tt.withImage {
				img = testImage(t)
			}
			start, end, err := window(windowContext(t, tt.args...), img)
			if err != nil {
				t.Fatalf("window: %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("window = [0x%x, 0x%x), want [0x%x, 0x%x)", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestWindowRejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"empty window", []string{"--start", "0x14"}},
		{"inverted window", []string{"--start", "0x13", "--end", "0x11"}},
		{"start not a number", []string{"--start", "zz"}},
		{"end not a number", []string{"--end", "0x1g", "--start", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := window(windowContext(t, tt.args...), testImage(t)); err == nil {
				t.Error("window must reject the flags")
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("0x04d8")
	if err != nil || id != 0x04d8 {
		t.Errorf("parseID(0x04d8) = 0x%04x, %v", id, err)
	}
	if _, err := parseID("0x10000"); err == nil {
		t.Error("parseID must reject values above 16 bits")
	}
}
