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

// Package hostmetrics samples readings about the host the agent runs on.
package hostmetrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/carverauto/homeradar/pkg/models"
)

const (
	// DefaultField is the reading field for the CPU temperature.
	DefaultField = "cpu_temp"

	thermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

	// SourceSensors indicates the value came from hwmon via gopsutil.
	SourceSensors = "hwmon"
	// SourceThermalZone indicates the value came from the thermal zone sysfs file.
	SourceThermalZone = "thermal_zone"
)

// ErrTemperatureUnavailable is returned when no CPU temperature could be read.
var ErrTemperatureUnavailable = errors.New("cpu temperature unavailable")

// sensor key prefixes that identify the CPU package, most specific first
var cpuSensorPrefixes = []string{
	"cpu_thermal",
	"soc_thermal",
	"coretemp_package",
	"k10temp",
	"coretemp",
	"cpu",
}

var (
	sensorsTemperatures = host.SensorsTemperaturesWithContext
	readThermalZoneFunc = readThermalZone
)

// CPUTemperature samples the CPU temperature in degrees Celsius.
type CPUTemperature struct {
	field  string
	source string
}

// NewCPUTemperature returns a sampler producing field, or DefaultField when empty.
func NewCPUTemperature(field string) *CPUTemperature {
	if field == "" {
		field = DefaultField
	}

	return &CPUTemperature{field: field}
}

// Name implements the agent sampler contract.
func (*CPUTemperature) Name() string {
	return "cpu_temperature"
}

// Source reports where the last sample came from.
func (c *CPUTemperature) Source() string {
	return c.source
}

// Sample reads the temperature, preferring hwmon and falling back to the
// thermal zone file.
func (c *CPUTemperature) Sample(ctx context.Context) ([]models.Reading, error) {
	if v, ok := fromSensors(ctx); ok {
		c.source = SourceSensors

		return c.reading(v), nil
	}

	v, err := readThermalZoneFunc()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemperatureUnavailable, err)
	}

	c.source = SourceThermalZone

	return c.reading(v), nil
}

func (c *CPUTemperature) reading(v float64) []models.Reading {
	return []models.Reading{{Field: c.field, Value: v, Unit: models.UnitCelsius}}
}

func fromSensors(ctx context.Context) (float64, bool) {
	// gopsutil returns partial results together with a warnings error
	stats, err := sensorsTemperatures(ctx)
	if err != nil && len(stats) == 0 {
		return 0, false
	}

	for _, prefix := range cpuSensorPrefixes {
		for _, s := range stats {
			if strings.HasPrefix(strings.ToLower(s.SensorKey), prefix) && s.Temperature > 0 {
				return s.Temperature, true
			}
		}
	}

	return 0, false
}

func readThermalZone() (float64, error) {
	data, err := os.ReadFile(thermalZonePath)
	if err != nil {
		return 0, err
	}

	return parseMilliCelsius(string(data))
}

// parseMilliCelsius parses the kernel's millidegree format.
func parseMilliCelsius(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}

	return v / 1000, nil
}
