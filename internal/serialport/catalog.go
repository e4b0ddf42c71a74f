package serialport

import (
	"fmt"
	"path/filepath"
)

// Candidate space for the Windows COM port scan.
const maxWindowsPorts = 256

// Baud rate used for the liveness probe; the rate is irrelevant for an
// open/close round trip.
const probeBaudRate = 9600

// Catalog enumerates serial ports that can currently be opened. The zero
// value probes with the platform's real opener; tests set Opener to a fake.
type Catalog struct {
	Opener Opener
}

// List returns a fresh scan of openable ports for the platform. Each
// candidate is probed by opening and immediately closing it; candidates
// that fail to open are skipped, and a single bad candidate never fails
// the scan.
func (c *Catalog) List(platform Platform) ([]string, error) {
	candidates, err := c.candidates(platform)
	if err != nil {
		return nil, err
	}

	open := c.Opener
	if open == nil {
		open = openerFor(platform)
	}

	var available []string
	for _, cand := range candidates {
		port, err := open(cand, probeBaudRate)
		if err != nil {
			continue
		}
		port.Close()
		available = append(available, cand)
	}
	return available, nil
}

func (c *Catalog) candidates(platform Platform) ([]string, error) {
	switch platform {
	case PlatformWindows:
		names := make([]string, 0, maxWindowsPorts)
		for i := 1; i <= maxWindowsPorts; i++ {
			names = append(names, fmt.Sprintf("COM%d", i))
		}
		return names, nil
	case PlatformLinux:
		matches, err := filepath.Glob("/dev/tty[A-Za-z]*")
		if err != nil {
			return nil, err
		}
		names := matches[:0]
		for _, m := range matches {
			if deviceAccessible(m) {
				names = append(names, m)
			}
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
}
