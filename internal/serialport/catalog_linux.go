//go:build linux

package serialport

import "golang.org/x/sys/unix"

// deviceAccessible filters the /dev/tty* glob before the open probe; most
// entries are virtual consoles the process cannot read anyway.
func deviceAccessible(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
