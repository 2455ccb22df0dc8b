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

package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/carverauto/homeradar/pkg/actuator"
	"github.com/carverauto/homeradar/pkg/auxline"
	"github.com/carverauto/homeradar/pkg/dht"
	"github.com/carverauto/homeradar/pkg/events"
	"github.com/carverauto/homeradar/pkg/hostmetrics"
	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/metrics"
	"github.com/carverauto/homeradar/pkg/outlet/kasa"
	"github.com/carverauto/homeradar/pkg/sen5x"
	"github.com/carverauto/homeradar/pkg/sensorbus"
	"github.com/carverauto/homeradar/pkg/telemetry"
	"github.com/carverauto/homeradar/pkg/tsdb"
)

// hardware and network hooks, replaced in tests
var (
	openBackend = tsdb.Open

	openProbeBus = func(busNr int) (sensorbus.Bus, error) {
		return sensorbus.NewRaspiBus(busNr)
	}

	openLine = func(cfg *auxline.Config) (Line, io.Closer, error) {
		l, err := auxline.Open(cfg)
		if err != nil {
			return nil, nil, err
		}

		return l, l, nil
	}

	openSEN5x = func(busNr int) (*sen5x.Device, io.Closer, error) {
		bus, err := sensorbus.NewRaspiBus(busNr)
		if err != nil {
			return nil, nil, err
		}

		dev, err := sen5x.Open(bus.Connector(), busNr)
		if err != nil {
			_ = bus.Close()

			return nil, nil, err
		}

		return dev, bus, nil
	}

	newOutlet = func(cfg *kasa.Config, log logger.Logger) actuator.Outlet {
		return kasa.NewClient(cfg, nil, log)
	}

	connectEvents = func(ctx context.Context, cfg *events.Config, source string, log logger.Logger) (actuator.Notifier, io.Closer, error) {
		pub, nc, err := events.Connect(ctx, cfg, source, log)
		if err != nil {
			return nil, nil, err
		}

		return pub, natsCloser{nc}, nil
	}
)

type natsCloser struct {
	nc *nats.Conn
}

func (c natsCloser) Close() error {
	return c.nc.Drain()
}

// builder collects handles so a failed build releases what it opened.
type builder struct {
	cfg     *Config
	log     logger.Logger
	closers []io.Closer
	opts    []Option
}

func (b *builder) own(c io.Closer) {
	b.closers = append(b.closers, c)
}

func (b *builder) release() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
}

// Build opens the backend, sensors and outlet named in cfg and returns a
// driver owning all of them. reg may be nil to skip metrics. cfg must have
// been validated.
func Build(ctx context.Context, cfg *Config, log logger.Logger, reg prometheus.Registerer) (*Driver, error) {
	b := &builder{cfg: cfg, log: log}

	driver, err := b.build(ctx, reg)
	if err != nil {
		b.release()

		return nil, err
	}

	return driver, nil
}

func (b *builder) build(ctx context.Context, reg prometheus.Registerer) (*Driver, error) {
	cfg := b.cfg

	backend, err := openBackend(ctx, &cfg.Backend, cfg.Name, b.log)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	b.own(backend)

	steps := []func(context.Context) error{
		b.probes,
		b.line,
		b.sen5x,
		b.dht,
		b.cpuTemp,
		b.actuator,
	}

	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}

	if reg != nil {
		b.opts = append(b.opts, WithRecorder(metrics.NewAgentMetrics(reg, cfg.Name)))
	}

	b.opts = append(b.opts,
		WithPollInterval(cfg.PollInterval.Std()),
		WithClosers(b.closers...),
	)

	publisher := telemetry.NewPublisher(&cfg.Telemetry, backend, b.log)

	return NewDriver(cfg.Name, cfg.SettleTime.Std(), publisher, b.log, b.opts...), nil
}

func (b *builder) probes(ctx context.Context) error {
	pc := b.cfg.Sensors.Probes
	if pc == nil {
		return nil
	}

	bus, err := openProbeBus(pc.BusNr)
	if err != nil {
		return fmt.Errorf("open probe bus: %w", err)
	}

	registry := sensorbus.NewRegistry(bus, *pc, b.log)

	if _, err := registry.Discover(ctx); err != nil {
		_ = registry.Close()

		return fmt.Errorf("discover probes: %w", err)
	}

	b.own(registry)

	sources := make([]ProbeSource, 0, len(registry.Probes()))
	for _, p := range registry.Probes() {
		sources = append(sources, ProbeSource{
			Role:  p.Device.Role,
			Probe: p,
			Rule:  b.cfg.Sensors.RuleFor(p.Device.Role),
		})
	}

	b.opts = append(b.opts, WithProbes(sources...))

	return nil
}

func (b *builder) line(_ context.Context) error {
	lc := b.cfg.Sensors.Line
	if lc == nil {
		return nil
	}

	if lc.Name == "" {
		lc.Name = DefaultLineField
	}

	l, closer, err := openLine(&lc.Config)
	if err != nil {
		return fmt.Errorf("open line: %w", err)
	}

	b.own(closer)
	b.opts = append(b.opts, WithLines(LineSource{Line: l, Rule: lc.Rule()}))

	return nil
}

func (b *builder) sen5x(ctx context.Context) error {
	sc := b.cfg.Sensors.SEN5x
	if sc == nil {
		return nil
	}

	dev, bus, err := openSEN5x(sc.BusNr)
	if err != nil {
		return fmt.Errorf("open sen5x: %w", err)
	}

	b.own(bus)

	sampler := sen5x.NewSampler(dev, sc, b.log)
	if err := sampler.Start(ctx); err != nil {
		_ = dev.Close()

		return fmt.Errorf("start sen5x: %w", err)
	}

	b.own(sampler)
	b.opts = append(b.opts, WithSamplers(sampler))

	return nil
}

func (b *builder) dht(_ context.Context) error {
	dc := b.cfg.Sensors.DHT
	if dc == nil {
		return nil
	}

	s, err := dht.Open(dc)
	if err != nil {
		return fmt.Errorf("open dht: %w", err)
	}

	b.log.Info().Str("device", s.Dir()).Msg("Using DHT sensor")
	b.opts = append(b.opts, WithSamplers(s))

	return nil
}

func (b *builder) cpuTemp(_ context.Context) error {
	cc := b.cfg.Sensors.CPUTemp
	if cc == nil {
		return nil
	}

	b.opts = append(b.opts, WithSamplers(hostmetrics.NewCPUTemperature(cc.Field)))

	return nil
}

func (b *builder) actuator(ctx context.Context) error {
	ac := b.cfg.Actuator
	if ac == nil {
		return nil
	}

	opts := []actuator.Option{actuator.WithAgent(b.cfg.Name)}

	if b.cfg.Events != nil {
		notifier, closer, err := connectEvents(ctx, b.cfg.Events, "homeradar/"+b.cfg.Name, b.log)
		if err != nil {
			b.log.Warn().Err(err).Msg("Actuation events disabled, NATS unavailable")
		} else {
			b.own(closer)
			opts = append(opts, actuator.WithNotifier(notifier))
		}
	}

	a := actuator.New(ac, newOutlet(b.cfg.Outlet, b.log), b.log, opts...)
	if err := a.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare actuator: %w", err)
	}

	b.opts = append(b.opts, WithActuator(a))

	return nil
}
