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

package models

import (
	"fmt"
	"time"
)

// Device is a sensor found on the bus during startup enumeration.
// Devices are never removed while the process runs.
type Device struct {
	Address    int       `json:"address"`
	Port       string    `json:"port,omitempty"`
	Role       string    `json:"role"`
	ModuleType string    `json:"module_type"`
	Name       string    `json:"name"`
	LastRaw    string    `json:"last_raw,omitempty"`
	LastReadAt time.Time `json:"last_read_at,omitempty"`
}

// Info renders the device the way the probe driver prints it: type, address, name.
func (d *Device) Info() string {
	if d.Port != "" {
		return fmt.Sprintf("%s %s %s", d.ModuleType, d.Port, d.Name)
	}

	return fmt.Sprintf("%s %d %s", d.ModuleType, d.Address, d.Name)
}

// Reading is one normalized value produced during a poll cycle.
type Reading struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Units used by readings.
const (
	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
	UnitPH         = "ph"
	UnitMillivolt  = "mV"
	UnitPercentRH  = "%RH"
	UnitMicrogram  = "ug/m3"
	UnitIndex      = "index"
	UnitInch       = "in"
)

// OutletDevice is a smart outlet as listed by the actuation service.
type OutletDevice struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
	Model string `json:"model,omitempty"`
	// Online reports whether the cloud service can currently reach the outlet.
	Online bool `json:"online"`
}
