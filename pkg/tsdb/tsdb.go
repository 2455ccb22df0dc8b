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

// Package tsdb opens the time-series backend an agent writes to.
package tsdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/telemetry"
	"github.com/carverauto/homeradar/pkg/tsdb/influx1"
	"github.com/carverauto/homeradar/pkg/tsdb/influx2"
	"github.com/carverauto/homeradar/pkg/tsdb/natsjs"
	"github.com/carverauto/homeradar/pkg/tsdb/timescale"
)

const (
	TypeInflux1   = "influx1"
	TypeInflux2   = "influx2"
	TypeTimescale = "timescale"
	TypeNATS      = "nats"

	defaultConnectTimeout = 30 * time.Second
	pingInitialBackoff    = 500 * time.Millisecond
	pingMaxBackoff        = 5 * time.Second
	pingAttemptTimeout    = 5 * time.Second
)

var (
	errUnknownBackend  = errors.New("unknown backend type")
	errBackendSettings = errors.New("backend settings missing")
)

// Backend is a telemetry writer with a connection to check and release.
type Backend interface {
	telemetry.Writer
	Ping(ctx context.Context) error
	Close() error
}

// Config selects a backend by type. Only the section for Type is used.
type Config struct {
	Type           string            `json:"type" yaml:"type"`
	ConnectTimeout models.Duration   `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	Influx1        *influx1.Config   `json:"influx1,omitempty" yaml:"influx1,omitempty"`
	Influx2        *influx2.Config   `json:"influx2,omitempty" yaml:"influx2,omitempty"`
	Timescale      *timescale.Config `json:"timescale,omitempty" yaml:"timescale,omitempty"`
	NATS           *natsjs.Config    `json:"nats,omitempty" yaml:"nats,omitempty"`
}

// Validate checks that the selected backend is configured.
func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = models.Duration(defaultConnectTimeout)
	}

	switch c.Type {
	case TypeInflux1:
		if c.Influx1 == nil {
			return fmt.Errorf("%w: %s", errBackendSettings, c.Type)
		}

		return c.Influx1.Validate()
	case TypeInflux2:
		if c.Influx2 == nil {
			return fmt.Errorf("%w: %s", errBackendSettings, c.Type)
		}

		return c.Influx2.Validate()
	case TypeTimescale:
		if c.Timescale == nil {
			return fmt.Errorf("%w: %s", errBackendSettings, c.Type)
		}

		return c.Timescale.Validate()
	case TypeNATS:
		if c.NATS == nil {
			return fmt.Errorf("%w: %s", errBackendSettings, c.Type)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, c.Type)
	}
}

// SetPrecision passes the timestamp precision to backends that encode it.
func (c *Config) SetPrecision(precision string) {
	if c.Influx1 != nil {
		c.Influx1.Precision = precision
	}

	if c.Influx2 != nil {
		c.Influx2.Precision = precision
	}
}

// Open builds the configured backend and checks it answers. An unreachable
// backend is logged, not fatal: writes fail per cycle until it comes back.
func Open(ctx context.Context, cfg *Config, agent string, log logger.Logger) (Backend, error) {
	var (
		b   Backend
		err error
	)

	switch cfg.Type {
	case TypeInflux1:
		b, err = influx1.New(cfg.Influx1)
	case TypeInflux2:
		b = influx2.New(cfg.Influx2)
	case TypeTimescale:
		b, err = timescale.Open(ctx, cfg.Timescale, agent)
	case TypeNATS:
		b, err = natsjs.Open(ctx, cfg.NATS, agent, log)
	default:
		err = fmt.Errorf("%w: %q", errUnknownBackend, cfg.Type)
	}

	if err != nil {
		return nil, err
	}

	if err := WaitReady(ctx, b, cfg.ConnectTimeout.Std()); err != nil {
		if ctx.Err() != nil {
			_ = b.Close()

			return nil, ctx.Err()
		}

		log.Warn().Err(err).Str("backend", cfg.Type).Msg("Backend not reachable yet, continuing")

		return b, nil
	}

	log.Info().Str("backend", cfg.Type).Msg("Connected to time-series backend")

	return b, nil
}

// WaitReady pings b with exponential backoff until it answers or maxElapsed passes.
func WaitReady(ctx context.Context, b Backend, maxElapsed time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pingInitialBackoff
	bo.MaxInterval = pingMaxBackoff

	operation := func() (struct{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, pingAttemptTimeout)
		defer cancel()

		return struct{}{}, b.Ping(attemptCtx)
	}

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(maxElapsed))

	return err
}
