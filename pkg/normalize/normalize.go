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

// Package normalize turns raw sensor responses into typed readings.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carverauto/homeradar/pkg/models"
)

const (
	// DefaultField is the token holding the value in a framed probe answer
	// ("<status> <type> <addr> <name>: <value>").
	DefaultField = 4

	fahrenheitScale  = 1.8
	fahrenheitOffset = 32
)

// WaterLevel is the default calibration of the auxiliary water level line.
var WaterLevel = Linear{
	Scale:  2.0 / -66.0,
	Offset: 3.8 + 666.0/66.0,
}

// Spec says where the value sits in a raw response.
type Spec struct {
	// Delimiter splits the response. Empty means any run of whitespace.
	Delimiter string
	// Field is the zero-based token index.
	Field int
}

// ProbeSpec is the layout of an Atlas probe answer.
func ProbeSpec() Spec {
	return Spec{Field: DefaultField}
}

// LineSpec is the layout of a bare numeric line.
func LineSpec() Spec {
	return Spec{Field: 0}
}

// Parse extracts the configured field from raw and parses it as a float.
// Trailing NUL padding and surrounding whitespace are stripped.
func Parse(raw string, spec Spec) (float64, error) {
	var tokens []string
	if spec.Delimiter == "" {
		tokens = strings.Fields(raw)
	} else {
		tokens = strings.Split(raw, spec.Delimiter)
	}

	if spec.Field < 0 || spec.Field >= len(tokens) {
		return 0, fmt.Errorf("%w: field %d missing in %q", ErrParse, spec.Field, raw)
	}

	token := strings.TrimSpace(strings.TrimRight(tokens[spec.Field], "\x00"))

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrParse, token, err)
	}

	return value, nil
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*fahrenheitScale + fahrenheitOffset
}

// Linear is a value*Scale + Offset calibration.
type Linear struct {
	Scale  float64 `json:"scale" yaml:"scale"`
	Offset float64 `json:"offset" yaml:"offset"`
}

// Apply calibrates v.
func (l Linear) Apply(v float64) float64 {
	return v*l.Scale + l.Offset
}

// Rule maps one raw response to one or more readings.
type Rule struct {
	Field string
	Unit  string
	Spec  Spec
	// Calibration is applied after parsing when set.
	Calibration *Linear
	// FahrenheitField, when set, adds a converted reading under that name.
	FahrenheitField string
}

// Apply parses raw and returns the readings the rule produces.
func (r *Rule) Apply(raw string) ([]models.Reading, error) {
	value, err := Parse(raw, r.Spec)
	if err != nil {
		return nil, err
	}

	if r.Calibration != nil {
		value = r.Calibration.Apply(value)
	}

	readings := []models.Reading{{Field: r.Field, Value: value, Unit: r.Unit}}

	if r.FahrenheitField != "" {
		readings = append(readings, models.Reading{
			Field: r.FahrenheitField,
			Value: CelsiusToFahrenheit(value),
			Unit:  models.UnitFahrenheit,
		})
	}

	return readings, nil
}
