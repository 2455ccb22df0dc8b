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
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

var errNoAck = errors.New("no ack")

type fakeDevice struct {
	module  string
	name    string
	value   string
	lastCmd string
	closed  bool
	readErr error
}

func (d *fakeDevice) Write(cmd string) error {
	d.lastCmd = cmd
	return nil
}

func (d *fakeDevice) Read() (string, error) {
	if d.readErr != nil {
		return "", d.readErr
	}

	switch d.lastCmd {
	case cmdInfo:
		return fmt.Sprintf("?I,%s,2.10\x00\x00\x00", d.module), nil
	case cmdName:
		return fmt.Sprintf("?NAME,%s\x00\x00", d.name), nil
	case cmdRead:
		return d.value + "\x00\x00\x00\x00", nil
	default:
		return "", ErrSyntax
	}
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

type fakeBus struct {
	devices map[int]*fakeDevice
	closed  bool
}

func (b *fakeBus) Open(address int) (Transport, error) {
	d, ok := b.devices[address]
	if !ok {
		return nil, errNoAck
	}

	return d, nil
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func poolBus() *fakeBus {
	return &fakeBus{devices: map[int]*fakeDevice{
		98:  {module: "ORP", name: "orp", value: "123.4"},
		99:  {module: "pH", name: "ph", value: "7.200"},
		102: {module: "RTD", name: "", value: "21.5"},
	}}
}

func newTestRegistry(bus Bus, cfg Config) *Registry {
	r := NewRegistry(bus, cfg, logger.NewTestLogger())
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return r
}

func TestDiscoverAssignsRolesByType(t *testing.T) {
	t.Parallel()

	bus := poolBus()
	r := newTestRegistry(bus, Config{})

	devices, err := r.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 3)

	assert.Equal(t, 98, devices[0].Address)
	assert.Equal(t, "ORP", devices[0].ModuleType)
	assert.Equal(t, "orp", devices[0].Role)
	assert.Equal(t, "ph", devices[1].Role)
	assert.Equal(t, "temperature", devices[2].Role)
	assert.Empty(t, devices[2].Name)

	require.NoError(t, r.Close())
	assert.True(t, bus.closed)
	assert.True(t, bus.devices[98].closed)
	assert.Empty(t, r.Probes())
}

func TestDiscoverPositionalRoles(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(poolBus(), Config{Roles: []string{"a", "b"}})

	devices, err := r.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "a", devices[0].Role)
	assert.Equal(t, "b", devices[1].Role)
	assert.Equal(t, "temperature", devices[2].Role)
}

func TestDiscoverDuplicateRoles(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{devices: map[int]*fakeDevice{
		99:  {module: "pH"},
		100: {module: "pH"},
	}}

	devices, err := newTestRegistry(bus, Config{}).Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ph", devices[0].Role)
	assert.Equal(t, "ph_2", devices[1].Role)
}

func TestDiscoverNoDevices(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{devices: map[int]*fakeDevice{
		97: {module: "DO", readErr: ErrNoData},
	}}

	_, err := newTestRegistry(bus, Config{}).Discover(context.Background())
	require.ErrorIs(t, err, ErrEnumeration)
	assert.True(t, bus.devices[97].closed)
}

func TestDiscoverCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRegistry(poolBus(), Config{}).Discover(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProbeRequestCollect(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(poolBus(), Config{Addresses: []int{98}})

	_, err := r.Discover(context.Background())
	require.NoError(t, err)

	probe := r.Probes()[0]
	require.NoError(t, probe.Request())

	raw, err := probe.Collect()
	require.NoError(t, err)
	assert.Equal(t, "Success ORP 98 orp: 123.4\x00\x00\x00\x00", raw)
	assert.Equal(t, raw, probe.Device.LastRaw)
	assert.False(t, probe.Device.LastReadAt.IsZero())
}

func TestDiscoverWithMockBus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	bus := NewMockBus(ctrl)
	transport := NewMockTransport(ctrl)

	gomock.InOrder(
		bus.EXPECT().Open(0x63).Return(transport, nil),
		transport.EXPECT().Write("I").Return(nil),
		transport.EXPECT().Read().Return("?I,pH,1.98", nil),
		transport.EXPECT().Write("name,?").Return(nil),
		transport.EXPECT().Read().Return("", ErrPending),
		bus.EXPECT().Open(0x64).Return(nil, fmt.Errorf("%w: %w", ErrDeviceDisconnected, unix.ENXIO)),
	)

	devices, err := newTestRegistry(bus, Config{Addresses: []int{0x63, 0x64}}).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, &models.Device{Address: 0x63, Role: "ph", ModuleType: "pH"}, devices[0])
}

func TestRoleForType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "orp", RoleForType("ORP"))
	assert.Equal(t, "ph", RoleForType("pH"))
	assert.Equal(t, "temperature", RoleForType("RTD"))
	assert.Equal(t, "flo", RoleForType("FLO"))
}
