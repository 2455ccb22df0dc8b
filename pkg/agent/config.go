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
	"fmt"

	"github.com/carverauto/homeradar/pkg/actuator"
	"github.com/carverauto/homeradar/pkg/auxline"
	"github.com/carverauto/homeradar/pkg/dht"
	"github.com/carverauto/homeradar/pkg/events"
	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/normalize"
	"github.com/carverauto/homeradar/pkg/outlet/kasa"
	"github.com/carverauto/homeradar/pkg/sen5x"
	"github.com/carverauto/homeradar/pkg/sensorbus"
	"github.com/carverauto/homeradar/pkg/telemetry"
	"github.com/carverauto/homeradar/pkg/tsdb"
)

const (
	// DefaultLineField is the reading produced by the auxiliary line.
	DefaultLineField = "water_level"
)

// Config is the configuration shared by every agent binary.
type Config struct {
	Name         string           `json:"name" yaml:"name"`
	SettleTime   models.Duration  `json:"settle_time,omitempty" yaml:"settle_time,omitempty"`
	PollInterval models.Duration  `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	Logging      *logger.Config   `json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics      MetricsConfig    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Telemetry    telemetry.Config `json:"telemetry" yaml:"telemetry"`
	Backend      tsdb.Config      `json:"backend" yaml:"backend"`
	Sensors      SensorsConfig    `json:"sensors" yaml:"sensors"`
	Actuator     *actuator.Config `json:"actuator,omitempty" yaml:"actuator,omitempty"`
	Outlet       *kasa.Config     `json:"outlet,omitempty" yaml:"outlet,omitempty"`
	Events       *events.Config   `json:"events,omitempty" yaml:"events,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
}

// SensorsConfig lists the sources polled each cycle. Unset sections are skipped.
type SensorsConfig struct {
	Probes  *sensorbus.Config `json:"probes,omitempty" yaml:"probes,omitempty"`
	Rules   []RuleConfig      `json:"rules,omitempty" yaml:"rules,omitempty"`
	Line    *LineConfig       `json:"line,omitempty" yaml:"line,omitempty"`
	SEN5x   *sen5x.Config     `json:"sen5x,omitempty" yaml:"sen5x,omitempty"`
	DHT     *dht.Config       `json:"dht,omitempty" yaml:"dht,omitempty"`
	CPUTemp *CPUTempConfig    `json:"cpu_temp,omitempty" yaml:"cpu_temp,omitempty"`
}

// RuleConfig overrides how a probe role is normalized.
type RuleConfig struct {
	Role            string `json:"role" yaml:"role"`
	Field           string `json:"field,omitempty" yaml:"field,omitempty"`
	Unit            string `json:"unit,omitempty" yaml:"unit,omitempty"`
	FahrenheitField string `json:"fahrenheit_field,omitempty" yaml:"fahrenheit_field,omitempty"`
	Delimiter       string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Index           *int   `json:"index,omitempty" yaml:"index,omitempty"`
}

// LineConfig is the auxiliary serial line and its calibration.
type LineConfig struct {
	auxline.Config   `yaml:",inline"`
	Field            string   `json:"field,omitempty" yaml:"field,omitempty"`
	WaterLevelScale  *float64 `json:"water_level_scale,omitempty" yaml:"water_level_scale,omitempty"`
	WaterLevelOffset *float64 `json:"water_level_offset,omitempty" yaml:"water_level_offset,omitempty"`
}

// CPUTempConfig enables the CPU temperature sampler.
type CPUTempConfig struct {
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// Validate fills defaults and checks every section.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errNameRequired
	}

	if c.SettleTime < 0 {
		return errNegativeSettle
	}

	if c.SettleTime == 0 {
		c.SettleTime = models.Duration(DefaultSettleTime)
	}

	if c.Telemetry.Measurement == "" {
		c.Telemetry.Measurement = c.Name
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	c.Backend.SetPrecision(c.Telemetry.Precision)

	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	if err := c.Sensors.validate(); err != nil {
		return fmt.Errorf("sensors: %w", err)
	}

	if c.Actuator != nil {
		if err := c.Actuator.Validate(); err != nil {
			return fmt.Errorf("actuator: %w", err)
		}

		if c.Outlet == nil {
			return errOutletRequired
		}

		if err := c.Outlet.Validate(); err != nil {
			return fmt.Errorf("outlet: %w", err)
		}
	}

	return nil
}

func (s *SensorsConfig) validate() error {
	if s.Probes == nil && s.Line == nil && s.SEN5x == nil && s.DHT == nil && s.CPUTemp == nil {
		return errNoSources
	}

	for i := range s.Rules {
		if s.Rules[i].Role == "" {
			return fmt.Errorf("rule %d: %w", i, errUnknownRuleRole)
		}
	}

	if s.SEN5x != nil {
		if err := s.SEN5x.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// RuleFor returns the normalization rule for a probe role. Configured rules
// win over the defaults.
func (s *SensorsConfig) RuleFor(role string) normalize.Rule {
	rule := defaultRule(role)

	for i := range s.Rules {
		rc := &s.Rules[i]
		if rc.Role != role {
			continue
		}

		if rc.Field != "" {
			rule.Field = rc.Field
		}

		if rc.Unit != "" {
			rule.Unit = rc.Unit
		}

		if rc.FahrenheitField != "" {
			rule.FahrenheitField = rc.FahrenheitField
		}

		if rc.Delimiter != "" {
			rule.Spec.Delimiter = rc.Delimiter
		}

		if rc.Index != nil {
			rule.Spec.Field = *rc.Index
		}
	}

	return rule
}

func defaultRule(role string) normalize.Rule {
	rule := normalize.Rule{Field: role, Spec: normalize.ProbeSpec()}

	switch role {
	case "orp":
		rule.Unit = models.UnitMillivolt
	case "ph":
		rule.Unit = models.UnitPH
	case "temperature":
		rule.Field = "temp_c"
		rule.Unit = models.UnitCelsius
		rule.FahrenheitField = "temp_f"
	}

	return rule
}

// Rule returns the line's normalization rule with the water level calibration.
func (l *LineConfig) Rule() normalize.Rule {
	cal := normalize.WaterLevel

	if l.WaterLevelScale != nil {
		cal.Scale = *l.WaterLevelScale
	}

	if l.WaterLevelOffset != nil {
		cal.Offset = *l.WaterLevelOffset
	}

	field := l.Field
	if field == "" {
		field = DefaultLineField
	}

	return normalize.Rule{
		Field:       field,
		Unit:        models.UnitInch,
		Spec:        normalize.LineSpec(),
		Calibration: &cal,
	}
}
