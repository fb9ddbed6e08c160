// Package main provides the hidboot CLI, a host-side tool for reprogramming
// microcontroller flash through a resident USB HID bootloader.
//
// Usage:
//
//	hidboot <command> [options]
//
// Commands that talk to a device take the USB identifiers (or a serial port)
// as global flags; crc_hexfile works entirely offline.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/synthread/go-hidboot/boot"
	"github.com/synthread/go-hidboot/hexfile"
)

func main() {
	app := &cli.App{
		Name:  "hidboot",
		Usage: "program and verify flash through a USB HID bootloader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "vid",
				Usage: "USB vendor ID of the bootloader",
				Value: fmt.Sprintf("0x%04x", boot.DefaultVendorID),
			},
			&cli.StringFlag{
				Name:  "pid",
				Usage: "USB product ID of the bootloader",
				Value: fmt.Sprintf("0x%04x", boot.DefaultProductID),
			},
			&cli.StringFlag{
				Name:  "serial",
				Usage: "talk over this serial port instead of USB HID",
			},
			&cli.IntFlag{
				Name:  "baud",
				Usage: "baud rate for --serial",
				Value: boot.DefaultBaud,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log protocol commands and state changes",
			},
			&cli.BoolFlag{
				Name:    "trace",
				Aliases: []string{"t"},
				Usage:   "log raw frames on the wire",
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case c.Bool("trace"):
				logrus.SetLevel(logrus.TraceLevel)
			case c.Bool("verbose"):
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			bootloadCommand(),
			crcMemoryCommand(),
			crcHexfileCommand(),
			crcCompareCommand(),
			runProgramCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func hexfileFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "hexfile",
		Aliases:  []string{"x"},
		Usage:    "Intel HEX image to load",
		Required: required,
	}
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "start address (defaults to the image start)",
		},
		&cli.StringFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "end address, exclusive (defaults to the image end)",
		},
	}
}

func bootloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "bootload",
		Usage: "erase flash and program a hex image",
		Flags: []cli.Flag{hexfileFlag(true)},
		Action: func(c *cli.Context) error {
			img, err := hexfile.Parse(c.String("hexfile"))
			if err != nil {
				return err
			}

			s, done, err := openSession(c)
			if err != nil {
				return err
			}
			defer done()

			if err := s.Bootload(img); err != nil {
				return err
			}
			fmt.Printf("Programmed %d records from %s\n", len(img.Records), c.String("hexfile"))
			return nil
		},
	}
}

func crcMemoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "crc_memory",
		Usage: "checksum a range of program memory on the device",
		Flags: append([]cli.Flag{hexfileFlag(false)}, windowFlags()...),
		Action: func(c *cli.Context) error {
			var img *hexfile.Image
			if path := c.String("hexfile"); path != "" {
				var err error
				if img, err = hexfile.Parse(path); err != nil {
					return err
				}
			} else if c.String("start") == "" || c.String("end") == "" {
				return fmt.Errorf("crc_memory needs --start/--end or a --hexfile to take the range from")
			}
			start, end, err := window(c, img)
			if err != nil {
				return err
			}

			s, done, err := openSession(c)
			if err != nil {
				return err
			}
			defer done()

			res, err := s.CRCMemory(start, end)
			if err != nil {
				return err
			}
			fmt.Printf("CRC of program memory from 0x%x to 0x%x = 0x%04x\n", start, end, res.Value)
			return nil
		},
	}
}

func crcHexfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "crc_hexfile",
		Usage: "checksum a hex image without touching the device",
		Flags: append([]cli.Flag{hexfileFlag(true)}, windowFlags()...),
		Action: func(c *cli.Context) error {
			img, err := hexfile.Parse(c.String("hexfile"))
			if err != nil {
				return err
			}
			start, end, err := window(c, img)
			if err != nil {
				return err
			}

			res := boot.HexfileCRC(img, start, end)
			fmt.Printf("CRC of %s from 0x%x to 0x%x = 0x%04x\n", c.String("hexfile"), start, end, res.Value)
			return nil
		},
	}
}

func crcCompareCommand() *cli.Command {
	return &cli.Command{
		Name:  "crc_compare",
		Usage: "verify device flash against a hex image",
		Flags: append([]cli.Flag{hexfileFlag(true)}, windowFlags()...),
		Action: func(c *cli.Context) error {
			img, err := hexfile.Parse(c.String("hexfile"))
			if err != nil {
				return err
			}
			start, end, err := window(c, img)
			if err != nil {
				return err
			}

			s, done, err := openSession(c)
			if err != nil {
				return err
			}
			defer done()

			res, err := s.CRCCompare(img, start, end)
			if err != nil {
				return err
			}
			fmt.Printf("device CRC = 0x%04x, hexfile CRC = 0x%04x\n", res.Device.Value, res.Host.Value)
			if !res.Match {
				return cli.Exit("CRC mismatch: flash does not match the hex image", 1)
			}
			fmt.Println("CRCs match")
			return nil
		},
	}
}

func runProgramCommand() *cli.Command {
	return &cli.Command{
		Name:  "run_program",
		Usage: "reset the device into the loaded application",
		Action: func(c *cli.Context) error {
			s, done, err := openSession(c)
			if err != nil {
				return err
			}
			defer done()

			if err := s.RunProgram(); err != nil {
				return err
			}
			fmt.Println("Device reset into application")
			return nil
		},
	}
}

// window resolves --start/--end, accepting 0x-prefixed hex or decimal. Each
// bound falls back to the image bounds independently, so a start-only or
// end-only invocation is fine when a hexfile is at hand.
func window(c *cli.Context, img *hexfile.Image) (start, end uint32, err error) {
	parse := func(name string, fallback uint32) (uint32, error) {
		s := c.String(name)
		if s == "" {
			return fallback, nil
		}
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid --%s %q", name, s)
		}
		return uint32(v), nil
	}

	var lo, hi uint32
	if img != nil {
		lo, hi = img.Start(), img.End()
	}
	if start, err = parse("start", lo); err != nil {
		return 0, 0, err
	}
	if end, err = parse("end", hi); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("window [0x%x, 0x%x) is empty", start, end)
	}
	return start, end, nil
}

func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB ID %q", s)
	}
	return uint16(v), nil
}

func openTransport(c *cli.Context) (boot.Transport, error) {
	if port := c.String("serial"); port != "" {
		return boot.OpenSerial(port, c.Int("baud"))
	}

	vid, err := parseID(c.String("vid"))
	if err != nil {
		return nil, err
	}
	pid, err := parseID(c.String("pid"))
	if err != nil {
		return nil, err
	}
	return boot.OpenHID(vid, pid)
}

func openSession(c *cli.Context) (*boot.Session, func(), error) {
	t, err := openTransport(c)
	if err != nil {
		return nil, nil, err
	}
	host := boot.NewHost(t, boot.DefaultConfig)
	return boot.NewSession(host), func() { _ = host.Close() }, nil
}
