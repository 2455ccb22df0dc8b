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

// Package agent runs the poll, normalize, actuate and publish cycle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/homeradar/pkg/actuator"
	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/normalize"
	"github.com/carverauto/homeradar/pkg/sensorbus"
)

const (
	// DefaultSettleTime is how long probes get to take a reading.
	DefaultSettleTime = 10 * time.Second

	// OutletStateField carries the actuator state in each cycle's points.
	OutletStateField = "outlet_state"

	tracerName = "homeradar/agent"
)

// Phase is where the driver is within a cycle.
type Phase int32

const (
	// PhaseIdle is between cycles.
	PhaseIdle Phase = iota
	// PhaseRequesting sends the read command to each probe.
	PhaseRequesting
	// PhaseSettling waits for the probes to finish measuring.
	PhaseSettling
	// PhaseCollecting fetches answers and reads lines and samplers.
	PhaseCollecting
)

func (p Phase) String() string {
	switch p {
	case PhaseRequesting:
		return "requesting"
	case PhaseSettling:
		return "settling"
	case PhaseCollecting:
		return "collecting"
	case PhaseIdle:
		return "idle"
	default:
		return "idle"
	}
}

// ProbeSource is a probe with the rule that normalizes its answers.
type ProbeSource struct {
	Role  string
	Probe Probe
	Rule  normalize.Rule
}

// LineSource is a line with the rule that normalizes its values.
type LineSource struct {
	Line Line
	Rule normalize.Rule
}

// CycleReport is what one cycle produced.
type CycleReport struct {
	Readings []models.Reading
	Failures []*DeviceReadError
	Action   actuator.Action
	Points   int
	// Err is the publish or actuation error, if any. Neither stops the loop.
	Err error
}

// Driver owns the sources and the actuator state and runs cycles until stopped.
type Driver struct {
	name         string
	settle       time.Duration
	pollInterval time.Duration

	probes    []ProbeSource
	lines     []LineSource
	samplers  []Sampler
	actuator  Actuator
	publisher Publisher
	metrics   Recorder
	clock     Clock
	logger    logger.Logger
	tracer    trace.Tracer
	closers   []io.Closer

	state models.ActuatorState
	phase atomic.Int32

	done      chan struct{}
	stopped   chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
	stopOnce  sync.Once
}

// Option configures a Driver.
type Option func(*Driver)

// WithProbes adds request/collect probes, polled in the given order.
func WithProbes(probes ...ProbeSource) Option {
	return func(d *Driver) { d.probes = append(d.probes, probes...) }
}

// WithLines adds newline framed sources read after the probes.
func WithLines(lines ...LineSource) Option {
	return func(d *Driver) { d.lines = append(d.lines, lines...) }
}

// WithSamplers adds sources that return ready readings each cycle.
func WithSamplers(samplers ...Sampler) Option {
	return func(d *Driver) { d.samplers = append(d.samplers, samplers...) }
}

// WithActuator enables threshold actuation.
func WithActuator(a Actuator) Option {
	return func(d *Driver) { d.actuator = a }
}

// WithRecorder records cycle metrics.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.metrics = r }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithTracer replaces the global tracer used for cycle spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Driver) { d.tracer = t }
}

// WithPollInterval adds an idle wait between cycles.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) { d.pollInterval = interval }
}

// WithClosers registers handles released when the driver exits, in reverse order.
func WithClosers(closers ...io.Closer) Option {
	return func(d *Driver) { d.closers = append(d.closers, closers...) }
}

// NewDriver creates a driver publishing through publisher.
func NewDriver(name string, settle time.Duration, publisher Publisher, log logger.Logger, opts ...Option) *Driver {
	if settle <= 0 {
		settle = DefaultSettleTime
	}

	d := &Driver{
		name:      name,
		settle:    settle,
		publisher: publisher,
		metrics:   nopRecorder{},
		clock:     realClock{},
		logger:    log,
		tracer:    logger.GetTracer(tracerName),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Phase returns the current phase.
func (d *Driver) Phase() Phase {
	return Phase(d.phase.Load())
}

// State returns the last verified actuator state.
func (d *Driver) State() models.ActuatorState {
	return d.state
}

func (d *Driver) setPhase(p Phase) {
	d.phase.Store(int32(p))
}

// Start runs cycles until Stop is called, ctx is cancelled or a device
// disconnects. Stop is honored between cycles; a cancelled ctx ends the
// cycle after the read in flight. Every handle is released on return.
func (d *Driver) Start(ctx context.Context) error {
	d.started.Store(true)

	defer close(d.stopped)
	defer func() { _ = d.Close() }()

	d.logger.Info().
		Str("agent", d.name).
		Dur("settle_time", d.settle).
		Dur("poll_interval", d.pollInterval).
		Int("probes", len(d.probes)).
		Int("lines", len(d.lines)).
		Int("samplers", len(d.samplers)).
		Msg("Starting poll loop")

	for {
		select {
		case <-d.done:
			d.logger.Info().Msg("Stop requested, poll loop finished")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := d.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				d.logger.Info().Msg("Cycle aborted")

				return ctx.Err()
			}

			return err
		}

		if err := d.idle(ctx); err != nil {
			return err
		}
	}
}

func (d *Driver) idle(ctx context.Context) error {
	if d.pollInterval <= 0 {
		return nil
	}

	select {
	case <-d.clock.After(d.pollInterval):
		return nil
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the loop to exit at the next idle boundary and waits for it.
func (d *Driver) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.done)
	})

	if !d.started.Load() {
		return nil
	}

	select {
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases every registered handle once.
func (d *Driver) Close() error {
	var err error

	d.closeOnce.Do(func() {
		for i := len(d.closers) - 1; i >= 0; i-- {
			if cerr := d.closers[i].Close(); cerr != nil {
				d.logger.Warn().Err(cerr).Msg("Failed to release handle")
				err = errors.Join(err, cerr)
			}
		}
	})

	return err
}

// RunCycle runs one request, settle, collect, actuate and publish pass.
// Device failures are reported, not returned. The error is non-nil only
// when ctx ended the cycle or a device disconnected.
func (d *Driver) RunCycle(ctx context.Context) (*CycleReport, error) {
	ctx, span := d.tracer.Start(ctx, "poll_cycle", trace.WithAttributes(attribute.String("agent", d.name)))
	defer span.End()

	report, err := d.runCycle(ctx)

	span.SetAttributes(
		attribute.Int("readings", len(report.Readings)),
		attribute.Int("failures", len(report.Failures)),
		attribute.Int("points", report.Points),
		attribute.String("action", report.Action.String()),
	)

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case report.Err != nil:
		span.RecordError(report.Err)
	}

	return report, err
}

func (d *Driver) runCycle(ctx context.Context) (*CycleReport, error) {
	start := d.clock.Now()
	report := &CycleReport{}

	defer d.setPhase(PhaseIdle)

	pending, err := d.request(report)
	if err != nil {
		return report, err
	}

	if len(pending) > 0 {
		d.setPhase(PhaseSettling)

		select {
		case <-d.clock.After(d.settle):
		case <-ctx.Done():
			return report, ctx.Err()
		}
	}

	d.setPhase(PhaseCollecting)

	if err := d.collect(ctx, pending, report); err != nil {
		return report, err
	}

	// the state entering the cycle is what gets published
	extra := map[string]float64{}
	if v, ok := d.state.Field(); ok {
		extra[OutletStateField] = v
	}

	d.actuate(ctx, report)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	n, err := d.publisher.Publish(ctx, report.Readings, extra)
	if err != nil {
		d.metrics.PublishFailed()
		report.Err = errors.Join(report.Err, err)
	} else {
		d.metrics.PointsWritten(n)
		report.Points = n
	}

	elapsed := d.clock.Now().Sub(start)
	d.metrics.CycleCompleted(elapsed)

	d.logger.Debug().
		Int("readings", len(report.Readings)).
		Int("failures", len(report.Failures)).
		Int("points", report.Points).
		Dur("elapsed", elapsed).
		Msg("Cycle complete")

	return report, nil
}

func (d *Driver) request(report *CycleReport) ([]*ProbeSource, error) {
	d.setPhase(PhaseRequesting)

	pending := make([]*ProbeSource, 0, len(d.probes))

	for i := range d.probes {
		p := &d.probes[i]

		if err := p.Probe.Request(); err != nil {
			d.fail(report, &DeviceReadError{Role: p.Role, Err: err})

			if errors.Is(err, sensorbus.ErrDeviceDisconnected) {
				return nil, err
			}

			continue
		}

		pending = append(pending, p)
	}

	return pending, nil
}

func (d *Driver) collect(ctx context.Context, pending []*ProbeSource, report *CycleReport) error {
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := p.Probe.Collect()
		if err != nil {
			d.fail(report, &DeviceReadError{Role: p.Role, Err: err})

			if errors.Is(err, sensorbus.ErrDeviceDisconnected) {
				return err
			}

			continue
		}

		d.normalize(report, p.Role, raw, &p.Rule)
	}

	for i := range d.lines {
		if err := ctx.Err(); err != nil {
			return err
		}

		l := &d.lines[i]

		raw, err := l.Line.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			d.fail(report, &DeviceReadError{Role: l.Line.Name(), Err: err})

			if errors.Is(err, sensorbus.ErrDeviceDisconnected) {
				return err
			}

			continue
		}

		d.normalize(report, l.Line.Name(), raw, &l.Rule)
	}

	for _, s := range d.samplers {
		if err := ctx.Err(); err != nil {
			return err
		}

		readings, err := s.Sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			d.fail(report, &DeviceReadError{Role: s.Name(), Err: err})

			if errors.Is(err, sensorbus.ErrDeviceDisconnected) {
				return err
			}

			continue
		}

		report.Readings = append(report.Readings, readings...)
	}

	return nil
}

func (d *Driver) normalize(report *CycleReport, role, raw string, rule *normalize.Rule) {
	readings, err := rule.Apply(raw)
	if err != nil {
		d.fail(report, &DeviceReadError{Role: role, Raw: raw, Err: err})

		return
	}

	report.Readings = append(report.Readings, readings...)
}

func (d *Driver) fail(report *CycleReport, err *DeviceReadError) {
	report.Failures = append(report.Failures, err)
	d.metrics.ReadFailed(err.Role)

	d.logger.Warn().
		Err(err.Err).
		Str("role", err.Role).
		Str("raw", err.Raw).
		Msg("Device read failed, skipping reading")
}

func (d *Driver) actuate(ctx context.Context, report *CycleReport) {
	if d.actuator == nil {
		return
	}

	action, err := d.actuator.Step(ctx, report.Readings, &d.state)
	report.Action = action

	if err != nil {
		d.logger.Warn().Err(err).Str("action", action.String()).Msg("Actuation failed, will retry next cycle")
		d.metrics.Actuated(action.String(), false)
		report.Err = fmt.Errorf("actuate: %w", err)
	} else if action != actuator.ActionNone {
		d.metrics.Actuated(action.String(), true)
	}

	v, ok := d.state.Field()
	d.metrics.OutletState(v, ok)
}
