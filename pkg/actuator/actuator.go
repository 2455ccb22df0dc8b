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

// Package actuator switches an outlet with hysteresis on a reading.
package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

// Action is the command an evaluation asks for.
type Action int

const (
	ActionNone Action = iota
	ActionTurnOn
	ActionTurnOff
)

func (a Action) String() string {
	switch a {
	case ActionTurnOn:
		return "turn_on"
	case ActionTurnOff:
		return "turn_off"
	case ActionNone:
		return "none"
	default:
		return "none"
	}
}

// Config binds one reading field to one outlet.
type Config struct {
	// Field is the reading that drives the outlet, e.g. "orp".
	Field            string  `json:"field" yaml:"field"`
	DeviceID         string  `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	DeviceAlias      string  `json:"device_alias,omitempty" yaml:"device_alias,omitempty"`
	TurnOnThreshold  float64 `json:"turn_on_threshold" yaml:"turn_on_threshold"`
	TurnOffThreshold float64 `json:"turn_off_threshold" yaml:"turn_off_threshold"`
}

// Validate checks the thresholds and the outlet selector.
func (c *Config) Validate() error {
	if c.Field == "" {
		return errFieldRequired
	}

	if c.DeviceID == "" && c.DeviceAlias == "" {
		return errOutletRequired
	}

	if c.TurnOnThreshold <= c.TurnOffThreshold {
		return fmt.Errorf("%w: on=%v off=%v", ErrInvalidThresholds, c.TurnOnThreshold, c.TurnOffThreshold)
	}

	return nil
}

// Evaluate applies the hysteresis rule. Above the on threshold the outlet
// should be on, at or below the off threshold it should be off, and in the
// dead band between them nothing changes. No action is returned when the
// state already matches.
func (c *Config) Evaluate(value float64, state models.ActuatorState) (models.ActuatorState, Action) {
	switch {
	case value > c.TurnOnThreshold && state != models.ActuatorOn:
		return models.ActuatorOn, ActionTurnOn
	case value <= c.TurnOffThreshold && state != models.ActuatorOff:
		return models.ActuatorOff, ActionTurnOff
	default:
		return state, ActionNone
	}
}

// Actuator drives one outlet from one reading field.
type Actuator struct {
	cfg      Config
	agent    string
	outlet   Outlet
	notifier Notifier
	logger   logger.Logger
	deviceID string
	now      func() time.Time
}

// Option configures an Actuator.
type Option func(*Actuator)

// WithNotifier publishes successful transitions.
func WithNotifier(n Notifier) Option {
	return func(a *Actuator) {
		a.notifier = n
	}
}

// WithAgent tags notifications with the agent name.
func WithAgent(name string) Option {
	return func(a *Actuator) {
		a.agent = name
	}
}

// New creates an actuator. Call Prepare before the first Step.
func New(cfg *Config, outlet Outlet, log logger.Logger, opts ...Option) *Actuator {
	a := &Actuator{
		cfg:      *cfg,
		outlet:   outlet,
		logger:   log,
		deviceID: cfg.DeviceID,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Field is the reading field the actuator watches.
func (a *Actuator) Field() string {
	return a.cfg.Field
}

// Prepare logs in and resolves the outlet by alias when no id is configured.
func (a *Actuator) Prepare(ctx context.Context) error {
	if err := a.outlet.Login(ctx); err != nil {
		return fmt.Errorf("outlet login: %w", err)
	}

	devices, err := a.outlet.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list outlets: %w", err)
	}

	for i := range devices {
		d := &devices[i]

		a.logger.Info().
			Str("id", d.ID).
			Str("alias", d.Alias).
			Str("model", d.Model).
			Bool("online", d.Online).
			Msg("Outlet available")

		if a.deviceID == "" && d.Alias == a.cfg.DeviceAlias {
			a.deviceID = d.ID
		}
	}

	if a.deviceID == "" {
		return fmt.Errorf("%w: alias %q", ErrOutletNotFound, a.cfg.DeviceAlias)
	}

	return nil
}

// Step evaluates the watched field in readings and applies the result.
// Readings without the field leave the state alone.
func (a *Actuator) Step(ctx context.Context, readings []models.Reading, state *models.ActuatorState) (Action, error) {
	for _, r := range readings {
		if r.Field != a.cfg.Field {
			continue
		}

		next, action := a.cfg.Evaluate(r.Value, *state)
		if action == ActionNone {
			return ActionNone, nil
		}

		if err := a.Apply(ctx, action, next, r.Value, state); err != nil {
			return action, err
		}

		return action, nil
	}

	return ActionNone, nil
}

// Apply sends one command and commits next to state only when the outlet
// accepted it.
func (a *Actuator) Apply(
	ctx context.Context, action Action, next models.ActuatorState, value float64, state *models.ActuatorState,
) error {
	if action == ActionNone {
		return nil
	}

	on := action == ActionTurnOn

	if err := a.outlet.SetOutletState(ctx, a.deviceID, on); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrActuation, action, a.deviceID, err)
	}

	prev := *state
	*state = next

	threshold := a.cfg.TurnOffThreshold
	if on {
		threshold = a.cfg.TurnOnThreshold
	}

	a.logger.Info().
		Str("outlet", a.deviceID).
		Str("field", a.cfg.Field).
		Float64("value", value).
		Float64("threshold", threshold).
		Str("previous", prev.String()).
		Str("state", next.String()).
		Msg("Outlet switched")

	if a.notifier == nil {
		return nil
	}

	err := a.notifier.NotifyTransition(ctx, &models.Transition{
		Agent:     a.agent,
		OutletID:  a.deviceID,
		Field:     a.cfg.Field,
		Value:     value,
		Previous:  prev.String(),
		Current:   next.String(),
		Threshold: threshold,
		Timestamp: a.now().UTC(),
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to publish actuation event")
	}

	return nil
}
