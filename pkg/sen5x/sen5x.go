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

// Package sen5x talks to a Sensirion SEN5x environmental sensor over I2C.
package sen5x

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/carverauto/homeradar/pkg/sensorbus"
)

// Address is the fixed I2C address of the SEN5x family.
const Address = 0x69

type command struct {
	code  uint16
	delay time.Duration
}

var (
	cmdStartMeasurement    = command{0x0021, 50 * time.Millisecond}
	cmdStopMeasurement     = command{0x0104, 200 * time.Millisecond}
	cmdReadDataReady       = command{0x0202, 20 * time.Millisecond}
	cmdReadMeasuredValues  = command{0x03C4, 20 * time.Millisecond}
	cmdFanCleaningInterval = command{0x8004, 20 * time.Millisecond}
	cmdProductName         = command{0xD014, 50 * time.Millisecond}
	cmdSerialNumber        = command{0xD033, 50 * time.Millisecond}
	cmdFirmwareVersion     = command{0xD100, 20 * time.Millisecond}
	cmdDeviceStatus        = command{0xD206, 20 * time.Millisecond}
	cmdDeviceReset         = command{0xD304, 200 * time.Millisecond}
)

const (
	crcPolynomial = 0x31
	crcInit       = 0xFF

	wordSize   = 2
	frameSize  = wordSize + 1
	stringSize = 32
)

// Device is one SEN5x on an I2C connection.
type Device struct {
	conn  io.ReadWriteCloser
	sleep func(ctx context.Context, d time.Duration) error
}

// New wraps an open connection to the sensor.
func New(conn io.ReadWriteCloser) *Device {
	return &Device{conn: conn, sleep: sensorbus.Sleep}
}

// Open connects to the sensor at Address on busNr.
func Open(connector sensorbus.Connector, busNr int) (*Device, error) {
	conn, err := connector.GetI2cConnection(Address, busNr)
	if err != nil {
		return nil, fmt.Errorf("open sen5x on bus %d: %w", busNr, sensorbus.MapBusError(err))
	}

	return New(conn), nil
}

// Close releases the connection.
func (d *Device) Close() error {
	return d.conn.Close()
}

// Reset reboots the sensor firmware. Measurement stops.
func (d *Device) Reset(ctx context.Context) error {
	return d.send(ctx, cmdDeviceReset)
}

// StartMeasurement starts continuous measurement of every value.
func (d *Device) StartMeasurement(ctx context.Context) error {
	return d.send(ctx, cmdStartMeasurement)
}

// StopMeasurement returns the sensor to idle.
func (d *Device) StopMeasurement(ctx context.Context) error {
	return d.send(ctx, cmdStopMeasurement)
}

// DataReady reports whether a new measurement can be read.
func (d *Device) DataReady(ctx context.Context) (bool, error) {
	words, err := d.read(ctx, cmdReadDataReady, 1)
	if err != nil {
		return false, err
	}

	return words[0]&0x00ff != 0, nil
}

// ReadMeasuredValues reads the latest measurement and clears the data ready flag.
func (d *Device) ReadMeasuredValues(ctx context.Context) (*Values, error) {
	words, err := d.read(ctx, cmdReadMeasuredValues, 8)
	if err != nil {
		return nil, err
	}

	return decodeValues(words), nil
}

// ProductName reads the product name, e.g. "SEN55".
func (d *Device) ProductName(ctx context.Context) (string, error) {
	return d.readString(ctx, cmdProductName)
}

// SerialNumber reads the serial number.
func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	return d.readString(ctx, cmdSerialNumber)
}

// FirmwareVersion reads the firmware major version.
func (d *Device) FirmwareVersion(ctx context.Context) (int, error) {
	words, err := d.read(ctx, cmdFirmwareVersion, 1)
	if err != nil {
		return 0, err
	}

	return int(words[0] >> 8), nil
}

// FanCleaningInterval reads the automatic fan cleaning interval.
func (d *Device) FanCleaningInterval(ctx context.Context) (time.Duration, error) {
	words, err := d.read(ctx, cmdFanCleaningInterval, 2)
	if err != nil {
		return 0, err
	}

	return time.Duration(uint32(words[0])<<16|uint32(words[1])) * time.Second, nil
}

// DeviceStatus reads the status register.
func (d *Device) DeviceStatus(ctx context.Context) (Status, error) {
	words, err := d.read(ctx, cmdDeviceStatus, 2)
	if err != nil {
		return 0, err
	}

	return Status(uint32(words[0])<<16 | uint32(words[1])), nil
}

func (d *Device) send(ctx context.Context, cmd command) error {
	buf := make([]byte, wordSize)
	binary.BigEndian.PutUint16(buf, cmd.code)

	if _, err := d.conn.Write(buf); err != nil {
		return fmt.Errorf("sen5x command 0x%04x: %w", cmd.code, sensorbus.MapBusError(err))
	}

	return d.sleep(ctx, cmd.delay)
}

func (d *Device) read(ctx context.Context, cmd command, words int) ([]uint16, error) {
	if err := d.send(ctx, cmd); err != nil {
		return nil, err
	}

	buf := make([]byte, words*frameSize)

	n, err := d.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("sen5x read 0x%04x: %w", cmd.code, sensorbus.MapBusError(err))
	}

	if n < len(buf) {
		return nil, fmt.Errorf("%w: 0x%04x got %d of %d bytes", errShortRead, cmd.code, n, len(buf))
	}

	return decodeWords(buf)
}

func (d *Device) readString(ctx context.Context, cmd command) (string, error) {
	words, err := d.read(ctx, cmd, stringSize/wordSize)
	if err != nil {
		return "", err
	}

	b := make([]byte, 0, stringSize)
	for _, w := range words {
		b = append(b, byte(w>>8), byte(w))
	}

	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}

	return string(b), nil
}

func decodeWords(buf []byte) ([]uint16, error) {
	words := make([]uint16, 0, len(buf)/frameSize)

	for i := 0; i+frameSize <= len(buf); i += frameSize {
		if crc8(buf[i:i+wordSize]) != buf[i+wordSize] {
			return nil, fmt.Errorf("%w at word %d", ErrCRC, i/frameSize)
		}

		words = append(words, binary.BigEndian.Uint16(buf[i:i+wordSize]))
	}

	return words, nil
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF, no reflection.
func crc8(data []byte) byte {
	crc := byte(crcInit)

	for _, b := range data {
		crc ^= b

		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
