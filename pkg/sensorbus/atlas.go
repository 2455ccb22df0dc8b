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

package sensorbus

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"
	"golang.org/x/sys/unix"
)

const (
	// DefaultBus is /dev/i2c-1 on a Raspberry Pi.
	DefaultBus = 1

	atlasReadSize = 31

	statusSuccess = 1
	statusSyntax  = 2
	statusPending = 254
	statusNoData  = 255
)

// Connector hands out I2C connections. The raspi adaptor implements it.
type Connector interface {
	GetI2cConnection(address int, busNr int) (i2c.Connection, error)
}

type finalizer interface {
	Finalize() error
}

// GobotBus is a Bus over gobot I2C connections speaking the Atlas EZO framing.
type GobotBus struct {
	connector Connector
	busNr     int
}

// NewGobotBus wraps an already connected gobot adaptor.
func NewGobotBus(connector Connector, busNr int) *GobotBus {
	return &GobotBus{connector: connector, busNr: busNr}
}

// NewRaspiBus connects the Raspberry Pi adaptor and returns a bus on busNr.
func NewRaspiBus(busNr int) (*GobotBus, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	return NewGobotBus(adaptor, busNr), nil
}

// Connector returns the adaptor behind the bus, for drivers that speak
// their own framing on the same bus.
func (b *GobotBus) Connector() Connector {
	return b.connector
}

// BusNr is the I2C bus number.
func (b *GobotBus) BusNr() int {
	return b.busNr
}

// Open returns a transport for the device at address.
func (b *GobotBus) Open(address int) (Transport, error) {
	conn, err := b.connector.GetI2cConnection(address, b.busNr)
	if err != nil {
		return nil, fmt.Errorf("open i2c 0x%02x on bus %d: %w", address, b.busNr, MapBusError(err))
	}

	return &atlasTransport{conn: conn}, nil
}

// Close releases the adaptor when it owns one.
func (b *GobotBus) Close() error {
	if f, ok := b.connector.(finalizer); ok {
		return f.Finalize()
	}

	return nil
}

type atlasTransport struct {
	conn io.ReadWriteCloser
}

func (t *atlasTransport) Write(cmd string) error {
	if _, err := t.conn.Write([]byte(cmd)); err != nil {
		return MapBusError(err)
	}

	return nil
}

// Read decodes one answer: a status byte followed by NUL padded ASCII.
// The padding is kept so callers see the answer as the device sent it.
func (t *atlasTransport) Read() (string, error) {
	buf := make([]byte, atlasReadSize)

	n, err := t.conn.Read(buf)
	if err != nil {
		return "", MapBusError(err)
	}

	if n == 0 {
		return "", errShortRead
	}

	return decodeAnswer(buf[:n])
}

func (t *atlasTransport) Close() error {
	return t.conn.Close()
}

func decodeAnswer(b []byte) (string, error) {
	switch b[0] {
	case statusSuccess:
	case statusSyntax:
		return "", ErrSyntax
	case statusPending:
		return "", ErrPending
	case statusNoData:
		return "", ErrNoData
	default:
		return "", fmt.Errorf("%w: %d", errUnknownStatus, b[0])
	}

	var sb strings.Builder

	for _, c := range b[1:] {
		// the Pi I2C driver can set the high bit
		sb.WriteByte(c & 0x7f)
	}

	return sb.String(), nil
}

// MapBusError wraps errors meaning the device or adapter is gone with
// ErrDeviceDisconnected.
func MapBusError(err error) error {
	if errors.Is(err, unix.ENODEV) || errors.Is(err, unix.ENXIO) || errors.Is(err, unix.EIO) {
		return fmt.Errorf("%w: %w", ErrDeviceDisconnected, err)
	}

	return err
}
