package serialport

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	ser "go.bug.st/serial"
)

// portablePort wraps go.bug.st/serial. It serves the Windows platform
// selector and every non-Linux build.
type portablePort struct {
	port    ser.Port
	carry   []byte
	writeMu sync.Mutex
}

func openPortable(path string, baudRate int) (Port, error) {
	port, err := ser.Open(path, &ser.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}
	return &portablePort{port: port}, nil
}

func (p *portablePort) ReadLine(timeout time.Duration) (string, error) {
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
			break
		}
		if err := p.port.SetReadTimeout(remaining); err != nil {
			return "", err
		}
		n, err := p.port.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// Library-level timeout.
			break
		}
		p.carry = append(p.carry, buf[:n]...)
	}

	line := strings.TrimRight(string(p.carry), "\r")
	p.carry = nil
	return line, nil
}

func (p *portablePort) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.port.Write(b)
}

func (p *portablePort) Close() error {
	return p.port.Close()
}
