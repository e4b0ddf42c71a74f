// Package serialport provides line-oriented access to serial devices and
// discovery of ports that can currently be opened.
//
// Two implementations back the Port interface: a raw syscall-based one for
// Linux, tuned for unbuffered low-latency reads from embedded devices, and a
// portable one built on go.bug.st/serial used for the Windows platform
// selector and on non-Linux builds.
//
// ReadLine is deadline-bounded: it returns a complete line as soon as one is
// available, or whatever partial text accumulated when the deadline expires
// (possibly nothing). A partial line is not held back for the next call, so a
// reading split across two timeout windows is delivered as two fragments.
package serialport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnsupportedPlatform is returned for a platform selector outside
	// the supported set.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrPortClosed is returned by ReadLine when the port was closed while
	// a read was in flight.
	ErrPortClosed = errors.New("serial port closed")
)

// Port is one open serial device. ReadLine must only be called from a single
// goroutine; Write is safe to call concurrently with ReadLine and never waits
// behind a pending read.
type Port interface {
	// ReadLine blocks until a newline-terminated line arrives or the
	// timeout expires. The returned line has its delimiter stripped; on
	// timeout the partial text read so far is returned, which may be "".
	ReadLine(timeout time.Duration) (string, error)

	// Write sends raw bytes to the device. No delimiter is appended.
	Write(b []byte) (int, error)

	// Close closes the device. Safe to call more than once.
	Close() error
}

// Opener opens a serial device by path. Injectable so catalog and session
// tests can substitute fakes.
type Opener func(path string, baudRate int) (Port, error)

// Platform selects the host conventions for port naming and opening.
type Platform string

// The supported platforms.
const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
)

// ParsePlatform maps a configuration string to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformLinux:
		return PlatformLinux, nil
	case PlatformWindows:
		return PlatformWindows, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
	}
}

// DevicePath builds the path the platform's open call accepts. Linux port
// names are relative to /dev (port "USB0" opens /dev/ttyUSB0); names that
// already carry the device directory are used verbatim, as are all Windows
// names (COM3).
func (p Platform) DevicePath(port string) string {
	if p == PlatformLinux && !strings.HasPrefix(port, "/dev/") {
		return "/dev/tty" + port
	}
	return port
}

// Open opens the device at path with the platform's implementation.
func Open(platform Platform, path string, baudRate int) (Port, error) {
	switch platform {
	case PlatformLinux:
		return openNative(path, baudRate)
	case PlatformWindows:
		return openPortable(path, baudRate)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
}

func openerFor(platform Platform) Opener {
	if platform == PlatformLinux {
		return openNative
	}
	return openPortable
}
