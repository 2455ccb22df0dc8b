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

package auxline

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"golang.org/x/sys/unix"

	"github.com/carverauto/homeradar/pkg/sensorbus"
)

var errUnplugged = errors.New("unplugged")

// scriptedPort returns one chunk per Read, then (0, nil) like a timed out port.
type scriptedPort struct {
	chunks  []string
	err     error
	timeout time.Duration
	closed  bool
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}

	if len(p.chunks) == 0 {
		return 0, nil
	}

	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]

	return n, nil
}

func (p *scriptedPort) Close() error {
	p.closed = true
	return nil
}

func (p *scriptedPort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

// fakeClock advances one tick on every call.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)

	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestReadLineAssemblesChunks(t *testing.T) {
	t.Parallel()

	port := &scriptedPort{chunks: []string{"3.", "30\r\n4.1", "0\n"}}
	line := New("water", port, time.Second)

	got, err := line.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.30", got)

	got, err = line.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.10", got)
}

func TestReadLineTimeout(t *testing.T) {
	t.Parallel()

	port := &scriptedPort{chunks: []string{"3.3"}}
	line := New("water", port, time.Second)
	line.now = fakeClock(300 * time.Millisecond)

	_, err := line.ReadLine(context.Background())
	require.ErrorIs(t, err, ErrReadTimeout)
	assert.Empty(t, line.pending)
}

func TestReadLineErrors(t *testing.T) {
	t.Parallel()

	line := New("water", &scriptedPort{err: errUnplugged}, time.Second)
	_, err := line.ReadLine(context.Background())
	require.ErrorIs(t, err, errUnplugged)
	require.NotErrorIs(t, err, sensorbus.ErrDeviceDisconnected)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New("water", &scriptedPort{}, time.Second).ReadLine(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadLineDisconnected(t *testing.T) {
	t.Parallel()

	for _, errno := range []error{unix.EIO, unix.ENXIO, unix.ENODEV} {
		port := &scriptedPort{err: &os.PathError{Op: "read", Path: "/dev/ttyACM0", Err: errno}}

		_, err := New("water", port, time.Second).ReadLine(context.Background())
		require.ErrorIs(t, err, sensorbus.ErrDeviceDisconnected, errno.Error())
		require.ErrorIs(t, err, errno)
	}
}

func TestOpen(t *testing.T) {
	port := &scriptedPort{chunks: []string{"1.0\n"}}

	orig := openPort
	t.Cleanup(func() { openPort = orig })

	var gotName string

	var gotMode *serial.Mode

	openPort = func(name string, mode *serial.Mode) (Port, error) {
		gotName, gotMode = name, mode
		return port, nil
	}

	line, err := Open(&Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, gotName)
	assert.Equal(t, DefaultBaudRate, gotMode.BaudRate)
	assert.Equal(t, DefaultTimeout/10, port.timeout)
	assert.Equal(t, DefaultPort, line.Name())

	got, err := line.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0", got)

	require.NoError(t, line.Close())
	assert.True(t, port.closed)
}
