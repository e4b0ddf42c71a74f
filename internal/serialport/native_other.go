//go:build !linux

package serialport

// The raw termios implementation is Linux-only; other builds fall back to
// the portable implementation for the Linux platform selector too.
func openNative(path string, baudRate int) (Port, error) {
	return openPortable(path, baudRate)
}
