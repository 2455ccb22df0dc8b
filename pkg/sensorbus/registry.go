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
	"strings"
	"time"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

const (
	// DefaultQueryDelay is how long an EZO device needs for an info query.
	DefaultQueryDelay = 300 * time.Millisecond

	firstScanAddress = 0x08
	lastScanAddress  = 0x77

	cmdInfo = "I"
	cmdName = "name,?"
	cmdRead = "R"
)

var typeRoles = map[string]string{
	"ORP": "orp",
	"PH":  "ph",
	"RTD": "temperature",
	"EC":  "conductivity",
	"DO":  "dissolved_oxygen",
}

// Config drives discovery.
type Config struct {
	BusNr int `json:"bus" yaml:"bus"`
	// Addresses limits the scan. Empty scans 0x08-0x77.
	Addresses []int `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	// Roles assigns roles by discovery position. Empty assigns by module type.
	Roles      []string        `json:"roles,omitempty" yaml:"roles,omitempty"`
	QueryDelay models.Duration `json:"query_delay,omitempty" yaml:"query_delay,omitempty"`
}

// Probe is one enumerated command/response device.
type Probe struct {
	Device    *models.Device
	transport Transport
}

// Request asks the device to start a reading.
func (p *Probe) Request() error {
	return p.transport.Write(cmdRead)
}

// Collect reads the answer to the last request and frames it as
// "Success <type> <address> <name>: <payload>", so the value is token 4.
func (p *Probe) Collect() (string, error) {
	payload, err := p.transport.Read()
	if err != nil {
		return "", err
	}

	raw := fmt.Sprintf("Success %s: %s", p.Device.Info(), payload)
	p.Device.LastRaw = raw
	p.Device.LastReadAt = time.Now().UTC()

	return raw, nil
}

// Registry enumerates the bus once and owns the device handles until Close.
type Registry struct {
	bus    Bus
	cfg    Config
	logger logger.Logger
	probes []*Probe
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRegistry creates a registry over bus.
func NewRegistry(bus Bus, cfg Config, log logger.Logger) *Registry {
	if cfg.QueryDelay <= 0 {
		cfg.QueryDelay = models.Duration(DefaultQueryDelay)
	}

	return &Registry{
		bus:    bus,
		cfg:    cfg,
		logger: log,
		sleep:  Sleep,
	}
}

// Discover scans the bus, identifies each device that answers and assigns
// roles. Devices keep scan order.
func (r *Registry) Discover(ctx context.Context) ([]*models.Device, error) {
	addresses := r.cfg.Addresses
	if len(addresses) == 0 {
		for addr := firstScanAddress; addr <= lastScanAddress; addr++ {
			addresses = append(addresses, addr)
		}
	}

	for _, addr := range addresses {
		probe, err := r.identify(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				_ = r.closeProbes()

				return nil, ctx.Err()
			}

			r.logger.Trace().Int("address", addr).Err(err).Msg("No device at address")

			continue
		}

		r.probes = append(r.probes, probe)
	}

	if len(r.probes) == 0 {
		return nil, ErrEnumeration
	}

	r.assignRoles()

	devices := make([]*models.Device, 0, len(r.probes))

	for i, p := range r.probes {
		ev := r.logger.Info().
			Int("address", p.Device.Address).
			Str("type", p.Device.ModuleType).
			Str("name", p.Device.Name).
			Str("role", p.Device.Role)
		if i == 0 {
			ev = ev.Bool("first", true)
		}

		ev.Msg("Discovered device")

		devices = append(devices, p.Device)
	}

	return devices, nil
}

// Probes returns the enumerated devices in discovery order.
func (r *Registry) Probes() []*Probe {
	return r.probes
}

// Close releases every device handle and the bus.
func (r *Registry) Close() error {
	err := r.closeProbes()

	if busErr := r.bus.Close(); busErr != nil {
		err = errors.Join(err, busErr)
	}

	return err
}

func (r *Registry) closeProbes() error {
	var err error

	for _, p := range r.probes {
		if cerr := p.transport.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}

	r.probes = nil

	return err
}

func (r *Registry) identify(ctx context.Context, addr int) (*Probe, error) {
	t, err := r.bus.Open(addr)
	if err != nil {
		return nil, err
	}

	info, err := r.query(ctx, t, cmdInfo)
	if err != nil {
		_ = t.Close()

		return nil, err
	}

	moduleType := commaField(info, 1)
	if moduleType == "" {
		_ = t.Close()

		return nil, fmt.Errorf("%w: unexpected info answer %q", ErrSyntax, info)
	}

	name, err := r.query(ctx, t, cmdName)
	if err != nil {
		// unnamed devices still work
		r.logger.Debug().Int("address", addr).Err(err).Msg("Device name query failed")
	}

	return &Probe{
		Device: &models.Device{
			Address:    addr,
			ModuleType: moduleType,
			Name:       commaField(name, 1),
		},
		transport: t,
	}, nil
}

func (r *Registry) query(ctx context.Context, t Transport, cmd string) (string, error) {
	if err := t.Write(cmd); err != nil {
		return "", err
	}

	if err := r.sleep(ctx, r.cfg.QueryDelay.Std()); err != nil {
		return "", err
	}

	return t.Read()
}

func (r *Registry) assignRoles() {
	seen := make(map[string]int, len(r.probes))

	for i, p := range r.probes {
		role := ""

		if len(r.cfg.Roles) > 0 {
			if i < len(r.cfg.Roles) {
				role = r.cfg.Roles[i]
			}
		}

		if role == "" {
			role = RoleForType(p.Device.ModuleType)
		}

		seen[role]++
		if n := seen[role]; n > 1 {
			role = fmt.Sprintf("%s_%d", role, n)
		}

		p.Device.Role = role
	}
}

// RoleForType maps an EZO module type to its logical role.
func RoleForType(moduleType string) string {
	if role, ok := typeRoles[strings.ToUpper(moduleType)]; ok {
		return role
	}

	return strings.ToLower(moduleType)
}

func commaField(answer string, idx int) string {
	parts := strings.Split(strings.TrimRight(answer, "\x00"), ",")
	if idx >= len(parts) {
		return ""
	}

	return strings.TrimSpace(parts[idx])
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
