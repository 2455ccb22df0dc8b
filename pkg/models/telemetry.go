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
	"sort"
	"time"
)

// ActuatorState is the last verified state of a controllable outlet.
type ActuatorState int

const (
	ActuatorUnknown ActuatorState = iota
	ActuatorOn
	ActuatorOff
)

func (s ActuatorState) String() string {
	switch s {
	case ActuatorOn:
		return "on"
	case ActuatorOff:
		return "off"
	case ActuatorUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Field returns the telemetry encoding of the state. ok is false while the
// state is unknown, in which case no field is emitted.
func (s ActuatorState) Field() (value float64, ok bool) {
	switch s {
	case ActuatorOn:
		return 1, true
	case ActuatorOff:
		return 0, true
	case ActuatorUnknown:
		return 0, false
	default:
		return 0, false
	}
}

// Point is one timestamped, named set of numeric fields.
type Point struct {
	Measurement string             `json:"measurement"`
	Tags        map[string]string  `json:"tags,omitempty"`
	Fields      map[string]float64 `json:"fields"`
	Time        time.Time          `json:"time"`
}

// FieldNames returns the point's field keys in sorted order.
func (p *Point) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
