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

package sen5x

import (
	"strings"

	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/normalize"
)

const (
	unavailableUnsigned = 0xFFFF
	unavailableSigned   = 0x7FFF

	massScale        = 10
	humidityScale    = 100
	temperatureScale = 200
	indexScale       = 10
)

// Value is one scaled measurement. Available is false when the sensor
// reported the unavailable sentinel.
type Value struct {
	Value     float64
	Available bool
}

// Values is one measurement of every channel.
type Values struct {
	MassConcentration1p0  Value
	MassConcentration2p5  Value
	MassConcentration4p0  Value
	MassConcentration10p0 Value
	Humidity              Value
	Temperature           Value
	VOCIndex              Value
	NOxIndex              Value
}

func unsigned(raw uint16, scale float64) Value {
	if raw == unavailableUnsigned {
		return Value{}
	}

	return Value{Value: float64(raw) / scale, Available: true}
}

func signed(raw uint16, scale float64) Value {
	if raw == unavailableSigned {
		return Value{}
	}

	return Value{Value: float64(int16(raw)) / scale, Available: true}
}

func decodeValues(w []uint16) *Values {
	return &Values{
		MassConcentration1p0:  unsigned(w[0], massScale),
		MassConcentration2p5:  unsigned(w[1], massScale),
		MassConcentration4p0:  unsigned(w[2], massScale),
		MassConcentration10p0: unsigned(w[3], massScale),
		Humidity:              signed(w[4], humidityScale),
		Temperature:           signed(w[5], temperatureScale),
		VOCIndex:              signed(w[6], indexScale),
		NOxIndex:              signed(w[7], indexScale),
	}
}

// Readings converts the measurement into readings. Mass concentrations are
// reported as a group when PM1.0 is available and each only when non-zero.
func (v *Values) Readings() []models.Reading {
	var out []models.Reading

	if v.MassConcentration1p0.Available {
		for _, mc := range []struct {
			field string
			value Value
		}{
			{"mc1p0", v.MassConcentration1p0},
			{"mc2p5", v.MassConcentration2p5},
			{"mc4p0", v.MassConcentration4p0},
			{"mc10p0", v.MassConcentration10p0},
		} {
			if mc.value.Value != 0 {
				out = append(out, models.Reading{Field: mc.field, Value: mc.value.Value, Unit: models.UnitMicrogram})
			}
		}
	}

	if v.Humidity.Available {
		out = append(out, models.Reading{Field: "rh", Value: v.Humidity.Value, Unit: models.UnitPercentRH})
	}

	if v.Temperature.Available {
		out = append(out,
			models.Reading{Field: "temp_c", Value: v.Temperature.Value, Unit: models.UnitCelsius},
			models.Reading{
				Field: "temp_f",
				Value: normalize.CelsiusToFahrenheit(v.Temperature.Value),
				Unit:  models.UnitFahrenheit,
			},
		)
	}

	if v.VOCIndex.Available {
		out = append(out, models.Reading{Field: "voc_index", Value: v.VOCIndex.Value, Unit: models.UnitIndex})
	}

	if v.NOxIndex.Available {
		out = append(out, models.Reading{Field: "nox_index", Value: v.NOxIndex.Value, Unit: models.UnitIndex})
	}

	return out
}

// Status is the device status register.
type Status uint32

const (
	StatusFanSpeedWarning Status = 1 << 21
	StatusFanCleaning     Status = 1 << 19
	StatusGasSensorError  Status = 1 << 7
	StatusRHTError        Status = 1 << 6
	StatusLaserFailure    Status = 1 << 5
	StatusFanFailure      Status = 1 << 4
)

var statusNames = []struct {
	flag Status
	name string
}{
	{StatusFanSpeedWarning, "fan_speed_warning"},
	{StatusFanCleaning, "fan_cleaning"},
	{StatusGasSensorError, "gas_sensor_error"},
	{StatusRHTError, "rht_error"},
	{StatusLaserFailure, "laser_failure"},
	{StatusFanFailure, "fan_failure"},
}

// Errors reports whether any error flag is set. Warnings do not count.
func (s Status) Errors() bool {
	return s&(StatusGasSensorError|StatusRHTError|StatusLaserFailure|StatusFanFailure) != 0
}

func (s Status) String() string {
	var names []string

	for _, n := range statusNames {
		if s&n.flag != 0 {
			names = append(names, n.name)
		}
	}

	if len(names) == 0 {
		return "ok"
	}

	return strings.Join(names, ",")
}
