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

package actuator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

var errCloud = errors.New("cloud unavailable")

func orpConfig() *Config {
	return &Config{
		Field:            "orp",
		DeviceID:         "8006A1",
		TurnOnThreshold:  650,
		TurnOffThreshold: 600,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, orpConfig().Validate())

	cfg := orpConfig()
	cfg.TurnOnThreshold = 600
	require.ErrorIs(t, cfg.Validate(), ErrInvalidThresholds)

	cfg = orpConfig()
	cfg.Field = ""
	require.ErrorIs(t, cfg.Validate(), errFieldRequired)

	cfg = orpConfig()
	cfg.DeviceID = ""
	require.ErrorIs(t, cfg.Validate(), errOutletRequired)

	cfg.DeviceAlias = "chlorinator"
	require.NoError(t, cfg.Validate())
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	cfg := orpConfig()

	tests := []struct {
		name       string
		value      float64
		state      models.ActuatorState
		wantState  models.ActuatorState
		wantAction Action
	}{
		{"above on from unknown", 651, models.ActuatorUnknown, models.ActuatorOn, ActionTurnOn},
		{"above on from off", 700, models.ActuatorOff, models.ActuatorOn, ActionTurnOn},
		{"above on already on", 700, models.ActuatorOn, models.ActuatorOn, ActionNone},
		{"at on threshold is dead band", 650, models.ActuatorOff, models.ActuatorOff, ActionNone},
		{"dead band keeps on", 620, models.ActuatorOn, models.ActuatorOn, ActionNone},
		{"dead band keeps unknown", 620, models.ActuatorUnknown, models.ActuatorUnknown, ActionNone},
		{"at off threshold turns off", 600, models.ActuatorOn, models.ActuatorOff, ActionTurnOff},
		{"below off from unknown", 500, models.ActuatorUnknown, models.ActuatorOff, ActionTurnOff},
		{"below off already off", 500, models.ActuatorOff, models.ActuatorOff, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state, action := cfg.Evaluate(tt.value, tt.state)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantAction, action)
		})
	}
}

func TestEvaluateOneCommandPerCrossing(t *testing.T) {
	t.Parallel()

	cfg := orpConfig()
	state := models.ActuatorUnknown

	var actions []Action

	for _, v := range []float64{550, 580, 620, 660, 680, 640, 610, 600, 590, 630, 655} {
		next, action := cfg.Evaluate(v, state)
		if action != ActionNone {
			actions = append(actions, action)
		}

		state = next
	}

	assert.Equal(t, []Action{ActionTurnOff, ActionTurnOn, ActionTurnOff, ActionTurnOn}, actions)
}

func TestStepSwitchesAndNotifies(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	outlet := NewMockOutlet(ctrl)
	notifier := NewMockNotifier(ctrl)

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	outlet.EXPECT().SetOutletState(gomock.Any(), "8006A1", true).Return(nil)
	notifier.EXPECT().NotifyTransition(gomock.Any(), &models.Transition{
		Agent:     "pool",
		OutletID:  "8006A1",
		Field:     "orp",
		Value:     700,
		Previous:  "unknown",
		Current:   "on",
		Threshold: 650,
		Timestamp: ts,
	}).Return(errCloud)

	a := New(orpConfig(), outlet, logger.NewTestLogger(), WithNotifier(notifier), WithAgent("pool"))
	a.now = func() time.Time { return ts }

	state := models.ActuatorUnknown
	readings := []models.Reading{{Field: "ph", Value: 7.2}, {Field: "orp", Value: 700}}

	action, err := a.Step(context.Background(), readings, &state)
	require.NoError(t, err)
	assert.Equal(t, ActionTurnOn, action)
	assert.Equal(t, models.ActuatorOn, state)

	// same side of the threshold: no second command
	action, err = a.Step(context.Background(), readings, &state)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
}

func TestStepFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	outlet := NewMockOutlet(ctrl)

	gomock.InOrder(
		outlet.EXPECT().SetOutletState(gomock.Any(), "8006A1", false).Return(errCloud),
		outlet.EXPECT().SetOutletState(gomock.Any(), "8006A1", false).Return(nil),
	)

	a := New(orpConfig(), outlet, logger.NewTestLogger())
	state := models.ActuatorOn
	readings := []models.Reading{{Field: "orp", Value: 590}}

	action, err := a.Step(context.Background(), readings, &state)
	require.ErrorIs(t, err, ErrActuation)
	require.ErrorIs(t, err, errCloud)
	assert.Equal(t, ActionTurnOff, action)
	assert.Equal(t, models.ActuatorOn, state)

	// retried on the next cycle while the condition persists
	action, err = a.Step(context.Background(), readings, &state)
	require.NoError(t, err)
	assert.Equal(t, ActionTurnOff, action)
	assert.Equal(t, models.ActuatorOff, state)
}

func TestStepMissingField(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := New(orpConfig(), NewMockOutlet(ctrl), logger.NewTestLogger())

	state := models.ActuatorOff

	action, err := a.Step(context.Background(), []models.Reading{{Field: "ph", Value: 9}}, &state)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Equal(t, models.ActuatorOff, state)
	assert.Equal(t, "orp", a.Field())
}

func TestPrepareResolvesAlias(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	outlet := NewMockOutlet(ctrl)

	outlet.EXPECT().Login(gomock.Any()).Return(nil)
	outlet.EXPECT().ListDevices(gomock.Any()).Return([]models.OutletDevice{
		{ID: "A", Alias: "pump", Online: true},
		{ID: "B", Alias: "chlorinator", Online: true},
	}, nil)
	outlet.EXPECT().SetOutletState(gomock.Any(), "B", true).Return(nil)

	cfg := orpConfig()
	cfg.DeviceID = ""
	cfg.DeviceAlias = "chlorinator"

	a := New(cfg, outlet, logger.NewTestLogger())
	require.NoError(t, a.Prepare(context.Background()))

	state := models.ActuatorUnknown
	_, err := a.Step(context.Background(), []models.Reading{{Field: "orp", Value: 800}}, &state)
	require.NoError(t, err)
}

func TestPrepareErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	outlet := NewMockOutlet(ctrl)

	cfg := orpConfig()
	cfg.DeviceID = ""
	cfg.DeviceAlias = "missing"

	outlet.EXPECT().Login(gomock.Any()).Return(errCloud)
	require.ErrorIs(t, New(cfg, outlet, logger.NewTestLogger()).Prepare(context.Background()), errCloud)

	outlet.EXPECT().Login(gomock.Any()).Return(nil)
	outlet.EXPECT().ListDevices(gomock.Any()).Return(nil, nil)
	require.ErrorIs(t, New(cfg, outlet, logger.NewTestLogger()).Prepare(context.Background()), ErrOutletNotFound)
}

func TestActionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "turn_on", ActionTurnOn.String())
	assert.Equal(t, "turn_off", ActionTurnOff.String())
	assert.Equal(t, "none", ActionNone.String())
}
