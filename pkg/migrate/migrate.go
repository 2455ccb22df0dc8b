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

// Package migrate copies measurements from InfluxDB 1.x to 2.x in chunks.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/normalize"
)

// Progress describes one migrated chunk.
type Progress struct {
	Job         string
	Offset      int64
	Total       int64
	Points      int
	QueryTime   time.Duration
	PrepareTime time.Duration
	WriteTime   time.Duration
	Done        bool
}

// Migrator runs jobs one after another.
type Migrator struct {
	source   Source
	sink     Sink
	state    *State
	logger   logger.Logger
	pause    time.Duration
	observer func(Progress)
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	retry    func() backoff.BackOff
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithObserver receives progress after every chunk and when a job starts.
func WithObserver(fn func(Progress)) Option {
	return func(m *Migrator) {
		m.observer = fn
	}
}

// WithPause sets the wait between chunks.
func WithPause(d time.Duration) Option {
	return func(m *Migrator) {
		m.pause = d
	}
}

// New creates a migrator.
func New(source Source, sink Sink, state *State, log logger.Logger, opts ...Option) *Migrator {
	m := &Migrator{
		source: source,
		sink:   sink,
		state:  state,
		logger: log,
		pause:  DefaultPause,
		sleep:  sleepCtx,
		now:    time.Now,
		retry: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.state == nil {
		m.state, _ = LoadState("")
	}

	return m
}

// Run migrates every job. A cancelled ctx stops after the chunk in flight;
// the checkpoint keeps the last completed offset.
func (m *Migrator) Run(ctx context.Context, jobs []Job) error {
	for i := range jobs {
		if err := m.RunJob(ctx, &jobs[i]); err != nil {
			if errors.Is(err, context.Canceled) {
				m.logger.Info().Msg("Received keyboard interrupt. Exiting...")
			}

			return err
		}
	}

	return nil
}

// RunJob migrates one job from its checkpoint or configured offset.
func (m *Migrator) RunJob(ctx context.Context, job *Job) error {
	key := job.Key()

	offset := job.Offset
	if cp, ok := m.state.Get(key); ok {
		if cp.Done {
			m.logger.Info().Str("job", key).Msg("Job already complete, skipping")
			m.notify(Progress{Job: key, Offset: cp.Offset, Total: cp.Offset, Done: true})

			return nil
		}

		offset = max(offset, cp.Offset)
	}

	total, err := m.source.Count(ctx, job.SourceMeasurement)
	if err != nil {
		return err
	}

	m.logger.Info().
		Str("measurement", job.SourceMeasurement).
		Int64("points", total).
		Int64("offset", offset).
		Msg("Starting to migrate")

	m.notify(Progress{Job: key, Offset: offset, Total: total})

	for {
		qs := m.now()

		records, err := m.source.Page(ctx, job.SourceMeasurement, job.SourceField, job.Chunk, offset)
		if err != nil {
			return err
		}

		tq := m.now().Sub(qs)

		if len(records) == 0 {
			break
		}

		ps := m.now()
		points := Convert(job, records)
		tp := m.now().Sub(ps)

		ws := m.now()

		if len(points) > 0 {
			if err := m.write(ctx, points); err != nil {
				return err
			}
		}

		tw := m.now().Sub(ws)

		offset += int64(len(records))
		if err := m.state.Set(key, offset, false); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to save checkpoint")
		}

		m.logger.Info().
			Str("job", key).
			Msgf("%11d/%d migrated --- times %.2f/%.2f/%.2f",
				offset, total, tq.Seconds(), tp.Seconds(), tw.Seconds())

		m.notify(Progress{
			Job:         key,
			Offset:      offset,
			Total:       total,
			Points:      len(points),
			QueryTime:   tq,
			PrepareTime: tp,
			WriteTime:   tw,
		})

		if err := m.sleep(ctx, m.pause); err != nil {
			return err
		}
	}

	if err := m.state.Set(key, offset, true); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to save checkpoint")
	}

	m.notify(Progress{Job: key, Offset: offset, Total: total, Done: true})
	m.logger.Info().Str("job", key).Int64("offset", offset).Msg("Job complete")

	return nil
}

func (m *Migrator) write(ctx context.Context, points []models.Point) error {
	operation := func() (struct{}, error) {
		if err := m.sink.Write(ctx, points); err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(err)
			}

			m.logger.Warn().Err(err).Msg("Chunk write failed, retrying")

			return struct{}{}, err
		}

		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(m.retry()),
		backoff.WithMaxTries(writeRetries))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

func (m *Migrator) notify(p Progress) {
	if m.observer != nil {
		m.observer(p)
	}
}

// Convert maps records onto target points, skipping null rows. A temp_c
// target also gets temp_f.
func Convert(job *Job, records []Record) []models.Point {
	points := make([]models.Point, 0, len(records))

	for _, r := range records {
		if r.Null {
			continue
		}

		fields := map[string]float64{job.TargetField: r.Value}
		if job.TargetField == "temp_c" {
			fields["temp_f"] = normalize.CelsiusToFahrenheit(r.Value)
		}

		points = append(points, models.Point{
			Measurement: job.TargetMeasurement,
			Fields:      fields,
			Time:        r.Time,
		})
	}

	return points
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
