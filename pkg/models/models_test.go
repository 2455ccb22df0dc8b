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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationJSON(t *testing.T) {
	t.Parallel()

	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"10s","b":1000}`), &v))
	assert.Equal(t, 10*time.Second, v.A.Std())
	assert.Equal(t, time.Microsecond, v.B.Std())

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(out))

	require.ErrorIs(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v), errInvalidDuration)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"a":true}`), &v), errInvalidDuration)
}

func TestDurationYAML(t *testing.T) {
	t.Parallel()

	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("a: 250ms\nb: 5\n"), &v))
	assert.Equal(t, 250*time.Millisecond, v.A.Std())
	assert.Equal(t, 5*time.Nanosecond, v.B.Std())

	require.Error(t, yaml.Unmarshal([]byte("a: [1]\n"), &v))
}

func TestActuatorStateField(t *testing.T) {
	t.Parallel()

	v, ok := ActuatorOn.Field()
	assert.True(t, ok)
	assert.InDelta(t, 1.0, v, 0)

	v, ok = ActuatorOff.Field()
	assert.True(t, ok)
	assert.InDelta(t, 0.0, v, 0)

	_, ok = ActuatorUnknown.Field()
	assert.False(t, ok)

	assert.Equal(t, "on", ActuatorOn.String())
	assert.Equal(t, "unknown", ActuatorState(9).String())
}

func TestPointFieldNames(t *testing.T) {
	t.Parallel()

	p := Point{Fields: map[string]float64{"ph": 7.2, "orp": 123.4, "temp_c": 21.5}}
	assert.Equal(t, []string{"orp", "ph", "temp_c"}, p.FieldNames())
}

func TestDeviceInfo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ORP 98 orp", (&Device{ModuleType: "ORP", Address: 98, Name: "orp"}).Info())
	assert.Equal(t, "line /dev/ttyACM0 water", (&Device{ModuleType: "line", Port: "/dev/ttyACM0", Name: "water"}).Info())
}
