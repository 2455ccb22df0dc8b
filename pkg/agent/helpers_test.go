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

package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/auxline"
	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/sensorbus"
)

var (
	errTestRead    = errors.New("i2c timeout")
	errTestOutlet  = errors.New("outlet offline")
	errTestBackend = errors.New("backend down")
)

// fakeClock fires every wait immediately unless hold is set or the wait is at
// least holdFrom, in which case the returned channel fires on release.
type fakeClock struct {
	mu       sync.Mutex
	now      time.Time
	waits    []time.Duration
	hold     bool
	holdFrom time.Duration
	pending  []chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)

	ch := make(chan time.Time, 1)
	if c.hold || (c.holdFrom > 0 && d >= c.holdFrom) {
		c.pending = append(c.pending, ch)
	} else {
		ch <- c.now
	}

	return ch
}

func (c *fakeClock) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.pending {
		ch <- c.now
	}

	c.pending = nil
	c.hold = false
}

func (c *fakeClock) waited() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.waits...)
}

// ezoDevice answers the Atlas command set.
type ezoDevice struct {
	moduleType string
	name       string
	value      string
}

type ezoBus struct {
	mu      sync.Mutex
	devices map[int]*ezoDevice
	readErr map[int]error
	closed  bool
}

func (b *ezoBus) Open(address int) (sensorbus.Transport, error) {
	d, ok := b.devices[address]
	if !ok {
		return nil, sensorbus.ErrNoData
	}

	return &ezoTransport{bus: b, address: address, dev: d}, nil
}

func (b *ezoBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}

func (b *ezoBus) failReads(address int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readErr == nil {
		b.readErr = make(map[int]error)
	}

	b.readErr[address] = err
}

type ezoTransport struct {
	bus     *ezoBus
	address int
	dev     *ezoDevice
	last    string
}

func (t *ezoTransport) Write(cmd string) error {
	t.last = cmd
	return nil
}

func (t *ezoTransport) Read() (string, error) {
	switch t.last {
	case "I":
		return "?I," + t.dev.moduleType + ",2.10\x00", nil
	case "name,?":
		return "?NAME," + t.dev.name + "\x00", nil
	}

	t.bus.mu.Lock()
	err := t.bus.readErr[t.address]
	t.bus.mu.Unlock()

	if err != nil {
		return "", err
	}

	return t.dev.value + "\x00\x00\x00", nil
}

func (*ezoTransport) Close() error { return nil }

func poolBus() *ezoBus {
	return &ezoBus{devices: map[int]*ezoDevice{
		98:  {moduleType: "ORP", name: "orp", value: "123.4"},
		99:  {moduleType: "pH", name: "ph", value: "7.2"},
		102: {moduleType: "RTD", name: "temp", value: "21.5"},
	}}
}

func poolRegistry(bus *ezoBus) *sensorbus.Registry {
	return sensorbus.NewRegistry(bus, sensorbus.Config{
		Addresses:  []int{98, 99, 102},
		QueryDelay: models.Duration(time.Nanosecond),
	}, logger.NewTestLogger())
}

// linePort serves fixed serial data.
type linePort struct {
	mu     sync.Mutex
	data   bytes.Buffer
	closed bool
}

func newLinePort(lines ...string) *linePort {
	p := &linePort{}
	p.data.WriteString(strings.Join(lines, ""))

	return p
}

func (p *linePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}

	return p.data.Read(b)
}

func (p *linePort) Close() error {
	p.closed = true
	return nil
}

func (*linePort) SetReadTimeout(time.Duration) error { return nil }

func waterLine(lines ...string) *auxline.Line {
	return auxline.New("water_level", newLinePort(lines...), 50*time.Millisecond)
}

// fakeSampler returns fixed readings.
type fakeSampler struct {
	name     string
	readings []models.Reading
	err      error
}

func (s *fakeSampler) Name() string { return s.name }

func (s *fakeSampler) Sample(context.Context) ([]models.Reading, error) {
	return s.readings, s.err
}

func cpuSampler() *fakeSampler {
	return &fakeSampler{
		name:     "cpu_temperature",
		readings: []models.Reading{{Field: "cpu_temp", Value: 48.3, Unit: models.UnitCelsius}},
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// metricValue returns the value of the first counter or gauge sample of name
// whose labels include every key/value pair in labels.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}

		for _, m := range mf.GetMetric() {
			have := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}

			matched := true

			for i := 0; i+1 < len(labels); i += 2 {
				if have[labels[i]] != labels[i+1] {
					matched = false
					break
				}
			}

			if !matched {
				continue
			}

			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}

			return m.GetGauge().GetValue()
		}
	}

	t.Fatalf("metric %s%v not found", name, labels)

	return 0
}
