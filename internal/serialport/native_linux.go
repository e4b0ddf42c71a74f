//go:build linux

package serialport

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// nativePort is a raw syscall-based serial port. The device is opened in raw
// mode with no kernel line buffering; reads poll on the fd together with a
// self-pipe so Close can wake a blocked ReadLine immediately.
type nativePort struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
	carry     []byte
	writeMu   sync.Mutex
}

// openNative opens a Linux serial device configured for raw, low-latency,
// non-buffered operation.
func openNative(path string, baudRate int) (Port, error) {
	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	// Baud rate
	baud := baudToUnix(baudRate)
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// VMIN=1, VTIME=0: blocking reads return as soon as a byte arrives.
	// ReadLine bounds the wait with poll, not with VTIME.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	syscall.SetNonblock(fd, false)

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	file := os.NewFile(uintptr(fd), path)
	return &nativePort{
		fd:    fd,
		file:  file,
		done:  make(chan struct{}),
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
	}, nil
}

func (p *nativePort) ReadLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 4096)
	for {
		if idx := bytes.IndexByte(p.carry, '\n'); idx >= 0 {
			line := strings.TrimRight(string(p.carry[:idx]), "\r")
			p.carry = p.carry[idx+1:]
			return line, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return p.flushCarry(), nil
		}

		// Wait for data, the kill signal, or the deadline.
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfd, pollMillis(remaining))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return "", err
		}
		select {
		case <-p.done:
			return "", ErrPortClosed
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			// Drain pipe
			var b [1]byte
			unix.Read(p.pipeR, b[:])
			return "", ErrPortClosed
		}
		if n == 0 {
			// Poll timed out; the deadline check above flushes.
			continue
		}
		if pfd[0].Revents&unix.POLLIN != 0 {
			nr, err := p.file.Read(buf)
			if err != nil {
				return "", err
			}
			p.carry = append(p.carry, buf[:nr]...)
		}
	}
}

func (p *nativePort) flushCarry() string {
	line := strings.TrimRight(string(p.carry), "\r")
	p.carry = nil
	return line
}

func (p *nativePort) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.file.Write(b)
}

// Close closes the device and unblocks any in-flight ReadLine.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *nativePort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		if p.pipeW > 0 {
			unix.Write(p.pipeW, []byte{1})
		}
		if p.file != nil {
			err = p.file.Close()
		}
		if p.pipeR > 0 {
			unix.Close(p.pipeR)
		}
		if p.pipeW > 0 {
			unix.Close(p.pipeW)
		}
	})
	return err
}

func pollMillis(d time.Duration) int {
	ms := int(d / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	default:
		return unix.B9600 // fallback
	}
}
