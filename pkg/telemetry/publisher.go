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

// Package telemetry turns a cycle's readings into points and writes them.
package telemetry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

// Layout is how readings map onto points.
type Layout string

const (
	// LayoutFields writes one measurement holding every reading as a field.
	LayoutFields Layout = "fields"
	// LayoutMeasurements writes one measurement per reading with a "value" field.
	LayoutMeasurements Layout = "measurements"

	PrecisionSecond     = "s"
	PrecisionNanosecond = "ns"

	valueField = "value"
)

// Config shapes the points of every cycle.
type Config struct {
	Measurement string `json:"measurement" yaml:"measurement"`
	Layout      Layout `json:"layout,omitempty" yaml:"layout,omitempty"`
	// Names maps a reading field to its measurement in the measurements layout.
	Names     map[string]string `json:"names,omitempty" yaml:"names,omitempty"`
	Tags      map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Precision string            `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// Validate fills defaults and rejects unknown settings.
func (c *Config) Validate() error {
	switch c.Layout {
	case "":
		c.Layout = LayoutFields
	case LayoutFields, LayoutMeasurements:
	default:
		return fmt.Errorf("%w: %q", errUnknownLayout, c.Layout)
	}

	switch c.Precision {
	case "":
		c.Precision = PrecisionSecond
	case PrecisionSecond, PrecisionNanosecond:
	default:
		return fmt.Errorf("%w: %q", errUnknownPrecision, c.Precision)
	}

	return nil
}

// Publisher writes one point set per cycle.
type Publisher struct {
	cfg    Config
	writer Writer
	logger logger.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher. cfg must have been validated.
func NewPublisher(cfg *Config, writer Writer, log logger.Logger) *Publisher {
	return &Publisher{
		cfg:    *cfg,
		writer: writer,
		logger: log,
		now:    time.Now,
	}
}

// Publish builds the cycle's points with a single timestamp and calls the
// writer once. extra holds agent-level fields such as the outlet state.
// It returns the number of points written.
func (p *Publisher) Publish(ctx context.Context, readings []models.Reading, extra map[string]float64) (int, error) {
	points := p.Build(p.Timestamp(), readings, extra)
	if len(points) == 0 {
		p.logger.Debug().Msg("No readings this cycle, nothing to publish")

		return 0, nil
	}

	if err := p.writer.Write(ctx, points); err != nil {
		p.logger.Error().Err(err).Int("points", len(points)).Msg("Failed to write telemetry, dropping cycle")

		return 0, fmt.Errorf("%w: %w", ErrPublish, err)
	}

	p.logger.Debug().Int("points", len(points)).Msg("Telemetry written")

	return len(points), nil
}

// Timestamp returns now in UTC at the configured precision.
func (p *Publisher) Timestamp() time.Time {
	ts := p.now().UTC()
	if p.cfg.Precision == PrecisionSecond {
		ts = ts.Truncate(time.Second)
	}

	return ts
}

// Build lays out readings and extra as points stamped with ts. Non-finite
// values are dropped.
func (p *Publisher) Build(ts time.Time, readings []models.Reading, extra map[string]float64) []models.Point {
	fields := make(map[string]float64, len(readings)+len(extra))

	for _, r := range readings {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			p.logger.Warn().Str("field", r.Field).Msg("Dropping non-finite reading")

			continue
		}

		fields[r.Field] = r.Value
	}

	for k, v := range extra {
		fields[k] = v
	}

	if len(fields) == 0 {
		return nil
	}

	if p.cfg.Layout == LayoutFields {
		return []models.Point{{
			Measurement: p.cfg.Measurement,
			Tags:        p.tags(),
			Fields:      fields,
			Time:        ts,
		}}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	sort.Strings(names)

	points := make([]models.Point, 0, len(names))

	for _, name := range names {
		measurement := name
		if mapped, ok := p.cfg.Names[name]; ok {
			measurement = mapped
		}

		points = append(points, models.Point{
			Measurement: measurement,
			Tags:        p.tags(),
			Fields:      map[string]float64{valueField: fields[name]},
			Time:        ts,
		})
	}

	return points
}

func (p *Publisher) tags() map[string]string {
	if len(p.cfg.Tags) == 0 {
		return nil
	}

	tags := make(map[string]string, len(p.cfg.Tags))
	for k, v := range p.cfg.Tags {
		tags[k] = v
	}

	return tags
}
