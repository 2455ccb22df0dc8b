/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auxline reads newline terminated values from a serial port.
package auxline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/sensorbus"
)

const (
	DefaultPort     = "/dev/ttyACM0"
	DefaultBaudRate = 9600
	DefaultTimeout  = time.Second

	readChunk = 64
	maxLine   = 256
)

var (
	// ErrReadTimeout is returned when no complete line arrives in time.
	ErrReadTimeout = errors.New("serial read timed out")
	errLineTooLong = errors.New("serial line too long")
)

// Port is the part of serial.Port the reader uses.
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
}

// openPort is replaced in tests.
var openPort = func(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// Config describes the serial line.
type Config struct {
	Name     string          `json:"name" yaml:"name"`
	Port     string          `json:"port" yaml:"port"`
	BaudRate int             `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	Timeout  models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Line is a newline delimited ASCII source.
type Line struct {
	name    string
	port    Port
	timeout time.Duration
	pending []byte
	now     func() time.Time
}

// Open opens the configured serial port.
func Open(cfg *Config) (*Line, error) {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}

	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = models.Duration(DefaultTimeout)
	}

	port, err := openPort(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	// short polls so the overall deadline and ctx are honored
	if err := port.SetReadTimeout(cfg.Timeout.Std() / 10); err != nil {
		_ = port.Close()

		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Port
	}

	return New(name, port, cfg.Timeout.Std()), nil
}

// New wraps an open port.
func New(name string, port Port, timeout time.Duration) *Line {
	return &Line{name: name, port: port, timeout: timeout, now: time.Now}
}

// Name identifies the line in logs.
func (l *Line) Name() string {
	return l.name
}

// ReadLine returns the next line without its terminator. Bytes after the
// newline are kept for the next call.
func (l *Line) ReadLine(ctx context.Context) (string, error) {
	deadline := l.now().Add(l.timeout)
	buf := make([]byte, readChunk)

	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := string(bytes.TrimRight(l.pending[:i], "\r"))
			l.pending = append(l.pending[:0], l.pending[i+1:]...)

			return line, nil
		}

		if len(l.pending) > maxLine {
			l.pending = l.pending[:0]

			return "", errLineTooLong
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		if !l.now().Before(deadline) {
			l.pending = l.pending[:0]

			return "", fmt.Errorf("%w after %s on %s", ErrReadTimeout, l.timeout, l.name)
		}

		n, err := l.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", l.name, mapReadError(err))
		}

		l.pending = append(l.pending, buf[:n]...)
	}
}

// mapReadError marks an unplugged or vanished port as disconnected.
func mapReadError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortClosed, serial.InvalidSerialPort, serial.PortNotFound:
			return fmt.Errorf("%w: %w", sensorbus.ErrDeviceDisconnected, err)
		}
	}

	return sensorbus.MapBusError(err)
}

// Close closes the port.
func (l *Line) Close() error {
	return l.port.Close()
}
