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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/actuator"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/normalize"
	"github.com/carverauto/homeradar/pkg/outlet/kasa"
	"github.com/carverauto/homeradar/pkg/sensorbus"
	"github.com/carverauto/homeradar/pkg/tsdb"
	"github.com/carverauto/homeradar/pkg/tsdb/influx1"
)

func validPoolConfig() *Config {
	return &Config{
		Name: "pool",
		Backend: tsdb.Config{
			Type:    tsdb.TypeInflux1,
			Influx1: &influx1.Config{Database: "pool"},
		},
		Sensors: SensorsConfig{
			Probes: &sensorbus.Config{BusNr: 1},
			Line:   &LineConfig{},
		},
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	t.Parallel()

	cfg := validPoolConfig()
	cfg.Telemetry.Precision = "ns"

	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultSettleTime, cfg.SettleTime.Std())
	assert.Equal(t, "pool", cfg.Telemetry.Measurement)
	assert.Equal(t, "ns", cfg.Backend.Influx1.Precision)
	assert.Equal(t, "localhost", cfg.Backend.Influx1.Host)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{
			name:   "missing name",
			mutate: func(c *Config) { c.Name = "" },
			want:   errNameRequired,
		},
		{
			name:   "negative settle",
			mutate: func(c *Config) { c.SettleTime = -1 },
			want:   errNegativeSettle,
		},
		{
			name:   "no sensors",
			mutate: func(c *Config) { c.Sensors = SensorsConfig{} },
			want:   errNoSources,
		},
		{
			name: "rule without role",
			mutate: func(c *Config) {
				c.Sensors.Rules = []RuleConfig{{Field: "x"}}
			},
			want: errUnknownRuleRole,
		},
		{
			name: "actuator without outlet",
			mutate: func(c *Config) {
				c.Actuator = &actuator.Config{
					Field: "orp", DeviceAlias: "chlorinator", TurnOnThreshold: 700, TurnOffThreshold: 650,
				}
			},
			want: errOutletRequired,
		},
		{
			name: "inverted thresholds",
			mutate: func(c *Config) {
				c.Actuator = &actuator.Config{
					Field: "orp", DeviceAlias: "chlorinator", TurnOnThreshold: 600, TurnOffThreshold: 650,
				}
				c.Outlet = &kasa.Config{Username: "u", Password: "p"}
			},
			want: actuator.ErrInvalidThresholds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validPoolConfig()
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfigValidateRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := validPoolConfig()
	cfg.Backend = tsdb.Config{Type: "graphite"}

	require.Error(t, cfg.Validate())
}

func TestRuleForDefaults(t *testing.T) {
	t.Parallel()

	var s SensorsConfig

	temp := s.RuleFor("temperature")
	assert.Equal(t, "temp_c", temp.Field)
	assert.Equal(t, "temp_f", temp.FahrenheitField)
	assert.Equal(t, normalize.ProbeSpec(), temp.Spec)

	assert.Equal(t, models.UnitMillivolt, s.RuleFor("orp").Unit)
	assert.Equal(t, models.UnitPH, s.RuleFor("ph").Unit)

	other := s.RuleFor("conductivity")
	assert.Equal(t, "conductivity", other.Field)
	assert.Empty(t, other.Unit)
}

func TestRuleForOverrides(t *testing.T) {
	t.Parallel()

	idx := 1
	s := SensorsConfig{Rules: []RuleConfig{
		{Role: "orp", Field: "redox", Delimiter: ",", Index: &idx},
		{Role: "temperature", FahrenheitField: "water_f"},
	}}

	orp := s.RuleFor("orp")
	assert.Equal(t, "redox", orp.Field)
	assert.Equal(t, models.UnitMillivolt, orp.Unit)
	assert.Equal(t, normalize.Spec{Delimiter: ",", Field: 1}, orp.Spec)

	readings, err := orp.Apply("?R,655.2")
	require.NoError(t, err)
	assert.Equal(t, []models.Reading{{Field: "redox", Value: 655.2, Unit: models.UnitMillivolt}}, readings)

	assert.Equal(t, "water_f", s.RuleFor("temperature").FahrenheitField)
}

func TestLineRuleCalibration(t *testing.T) {
	t.Parallel()

	rule := (&LineConfig{}).Rule()

	readings, err := rule.Apply("3.3\r")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, DefaultLineField, readings[0].Field)
	assert.Equal(t, models.UnitInch, readings[0].Unit)
	assert.InDelta(t, 13.7909, readings[0].Value, 0.0001)

	scale, offset := 1.0, -1.0
	custom := (&LineConfig{Field: "depth", WaterLevelScale: &scale, WaterLevelOffset: &offset}).Rule()

	readings, err = custom.Apply("10")
	require.NoError(t, err)
	assert.Equal(t, "depth", readings[0].Field)
	assert.InDelta(t, 9.0, readings[0].Value, 1e-9)

	// the package calibration is not modified
	assert.InDelta(t, 2.0/-66.0, normalize.WaterLevel.Scale, 1e-12)
}
