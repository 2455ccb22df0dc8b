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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultDataTimeout  = 5 * time.Second

	stopTimeout = time.Second
)

// Config configures the sampler.
type Config struct {
	BusNr int `json:"bus" yaml:"bus"`
	// PollInterval is how often data ready is checked while waiting.
	PollInterval models.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	DataTimeout  models.Duration `json:"data_timeout,omitempty" yaml:"data_timeout,omitempty"`
	SkipReset    bool            `json:"skip_reset,omitempty" yaml:"skip_reset,omitempty"`
}

// Validate fills defaults.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = models.Duration(DefaultPollInterval)
	}

	if c.DataTimeout <= 0 {
		c.DataTimeout = models.Duration(DefaultDataTimeout)
	}

	return nil
}

// Sampler produces one set of readings per call from a measuring SEN5x.
type Sampler struct {
	dev    *Device
	cfg    Config
	logger logger.Logger
}

// NewSampler creates a sampler. Call Start before the first Sample.
func NewSampler(dev *Device, cfg *Config, log logger.Logger) *Sampler {
	c := *cfg
	_ = c.Validate()

	return &Sampler{dev: dev, cfg: c, logger: log}
}

// Name implements the agent sampler contract.
func (*Sampler) Name() string {
	return "sen5x"
}

// Start logs the device identity, resets it and starts measuring.
func (s *Sampler) Start(ctx context.Context) error {
	s.logIdentity(ctx)

	if !s.cfg.SkipReset {
		if err := s.dev.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	if err := s.dev.StartMeasurement(ctx); err != nil {
		return fmt.Errorf("start measurement: %w", err)
	}

	s.logger.Info().Msg("Measurement started")

	return nil
}

func (s *Sampler) logIdentity(ctx context.Context) {
	ev := s.logger.Info()

	if v, err := s.dev.FirmwareVersion(ctx); err == nil {
		ev = ev.Int("firmware", v)
	}

	if name, err := s.dev.ProductName(ctx); err == nil {
		ev = ev.Str("product", name)
	}

	if serial, err := s.dev.SerialNumber(ctx); err == nil {
		ev = ev.Str("serial", serial)
	}

	if interval, err := s.dev.FanCleaningInterval(ctx); err == nil {
		ev = ev.Dur("fan_cleaning_interval", interval)
	}

	ev.Msg("SEN5x device")
}

// Sample waits for the next measurement, reads it and logs the device status.
func (s *Sampler) Sample(ctx context.Context) ([]models.Reading, error) {
	if err := s.waitReady(ctx); err != nil {
		return nil, err
	}

	values, err := s.dev.ReadMeasuredValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("read measured values: %w", err)
	}

	status, err := s.dev.DeviceStatus(ctx)

	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("Failed to read device status")
	case status.Errors():
		s.logger.Warn().Str("status", status.String()).Msg("Device status")
	default:
		s.logger.Info().Str("status", status.String()).Msg("Device status")
	}

	return values.Readings(), nil
}

func (s *Sampler) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DataTimeout.Std())
	defer cancel()

	s.logger.Debug().Msg("Waiting for new data...")

	for {
		ready, err := s.dev.DataReady(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrDataNotReady
			}

			return fmt.Errorf("read data ready: %w", err)
		}

		if ready {
			return nil
		}

		if err := s.dev.sleep(ctx, s.cfg.PollInterval.Std()); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrDataNotReady
			}

			return err
		}
	}
}

// Close stops measuring and releases the device.
func (s *Sampler) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	err := s.dev.StopMeasurement(ctx)
	if err == nil {
		s.logger.Info().Msg("Measurement stopped.")
	}

	return errors.Join(err, s.dev.Close())
}
