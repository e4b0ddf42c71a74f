// Package session manages the lifetime of one serial connection: connect,
// disconnect, command sending, and the background receive loop that decodes
// incoming telemetry lines and hands readings to a registered observer.
//
// A session is either Idle or Connected. The receive loop runs as a single
// goroutine per connection; it owns all read access to the port, while Send
// may be called concurrently from other goroutines. Readings are delivered
// in the order their lines arrived.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mizulab/sensorhub/internal/monitor"
	"github.com/mizulab/sensorhub/internal/serialport"
	"github.com/mizulab/sensorhub/internal/telemetry"
)

// ErrNotConnected is returned by Send when the session is Idle.
var ErrNotConnected = errors.New("session not connected")

// Defaults applied by New when Config leaves a field zero.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// Observer consumes decoded readings. It is invoked from the receive
// goroutine, so implementations that are not synchronous-safe must do their
// own locking or hand off to a channel.
type Observer func(telemetry.Reading)

// Config is the immutable configuration of a Session.
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration
	Platform    serialport.Platform

	// Opener overrides the platform opener; tests inject fakes here.
	Opener serialport.Opener
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Platform == "" {
		c.Platform = serialport.PlatformLinux
	}
	return c
}

// conn is one connection lifetime: the handle, the stop signal observed by
// the receive loop, and the done signal the loop closes on exit.
type conn struct {
	port serialport.Port
	stop chan struct{}
	done chan struct{}
}

// Session owns at most one open serial handle at a time.
type Session struct {
	cfg Config
	log *logrus.Logger

	mu  sync.Mutex
	cur *conn

	obsMu    sync.RWMutex
	observer Observer
}

// New returns an Idle session.
func New(cfg Config, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{cfg: cfg.withDefaults(), log: log}
}

// SetObserver registers the single consumer of decoded readings. The last
// registration wins.
func (s *Session) SetObserver(obs Observer) {
	s.obsMu.Lock()
	s.observer = obs
	s.obsMu.Unlock()
}

// Connected reports whether the session currently holds an open handle.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Connect opens the named port and starts the receive loop. Connecting an
// already-connected session is a no-op that reports success; the existing
// handle stays open. The returned error carries the port name so callers can
// surface it.
func (s *Session) Connect(portName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil {
		return nil
	}

	open := s.cfg.Opener
	if open == nil {
		open = func(path string, baudRate int) (serialport.Port, error) {
			return serialport.Open(s.cfg.Platform, path, baudRate)
		}
	}

	path := s.cfg.Platform.DevicePath(portName)
	port, err := open(path, s.cfg.BaudRate)
	if err != nil {
		return fmt.Errorf("connect %s: %w", portName, err)
	}

	c := &conn{port: port, stop: make(chan struct{}), done: make(chan struct{})}
	s.cur = c
	monitor.ConnectsTotal.Inc()
	monitor.ActiveSessions.Inc()
	s.log.Infof("connected to %s at %d baud", path, s.cfg.BaudRate)

	go s.readLoop(c)
	return nil
}

// Disconnect stops the receive loop, waits for it to exit, and closes the
// handle. A close error is logged and does not prevent the transition to
// Idle. Disconnecting an Idle session is a safe no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	c := s.cur
	s.cur = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	close(c.stop)
	<-c.done

	if err := c.port.Close(); err != nil {
		s.log.Warnf("closing serial connection: %v", err)
	}
	monitor.ActiveSessions.Dec()
	s.log.Info("serial connection closed")
}

// Send writes the command's bytes to the port. No delimiter is appended;
// the caller supplies exactly the bytes it wants sent. Fails with
// ErrNotConnected when the session is Idle.
func (s *Session) Send(command string) error {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	if _, err := c.port.Write([]byte(command)); err != nil {
		monitor.WriteFailures.Inc()
		return fmt.Errorf("send failed: %w", err)
	}
	monitor.CommandsSent.Inc()
	return nil
}

// readLoop is the background receive worker. Empty reads (timeouts) loop;
// unparsable lines are dropped and counted; a hard I/O error closes the
// handle and leaves the session Idle.
func (s *Session) readLoop(c *conn) {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		line, err := c.port.ReadLine(s.cfg.ReadTimeout)
		if err != nil {
			if errors.Is(err, serialport.ErrPortClosed) {
				return
			}
			monitor.ReadFaults.Inc()
			s.log.Errorf("read fault, closing session: %v", err)
			s.faultClose(c)
			return
		}
		if line == "" {
			continue
		}

		monitor.LinesReceived.Inc()
		line = strings.ToValidUTF8(line, "")

		reading, err := telemetry.Parse(line)
		if err != nil {
			monitor.ParseFailures.Inc()
			s.log.Debugf("dropped line %q: %v", line, err)
			continue
		}
		reading.ReceivedAt = time.Now().UTC()
		s.deliver(c, reading)
	}
}

// faultClose closes the handle after a hard read fault, unless a concurrent
// Disconnect already took ownership of it.
func (s *Session) faultClose(c *conn) {
	s.mu.Lock()
	owned := s.cur == c
	if owned {
		s.cur = nil
	}
	s.mu.Unlock()
	if !owned {
		return
	}
	if err := c.port.Close(); err != nil {
		s.log.Warnf("closing serial connection: %v", err)
	}
	monitor.ActiveSessions.Dec()
}

func (s *Session) deliver(c *conn, r telemetry.Reading) {
	// Delivery racing a disconnect is a harmless no-op.
	select {
	case <-c.stop:
		return
	default:
	}

	s.obsMu.RLock()
	obs := s.observer
	s.obsMu.RUnlock()
	if obs == nil {
		return
	}
	obs(r)
	monitor.ReadingsDelivered.WithLabelValues(r.DeviceID).Inc()
}
