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
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/carverauto/homeradar/pkg/config"
	"github.com/carverauto/homeradar/pkg/lifecycle"
	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/version"
)

// RunOptions selects the binary being run.
type RunOptions struct {
	// Component names the logger and the lifecycle service, e.g. "pool-agent".
	Component  string
	ConfigPath string
	// Check, when set, rejects configurations the binary cannot run.
	Check func(*Config) error
}

// Run loads the configuration, builds the driver and runs it until a signal
// or a fatal device error ends it.
func Run(ctx context.Context, opts *RunOptions) error {
	var cfg Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if opts.Check != nil {
		if err := opts.Check(&cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: "stdout",
		}
	}

	agentLogger, err := lifecycle.CreateComponentLogger(ctx, opts.Component, logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if shutdownErr := lifecycle.ShutdownLogger(); shutdownErr != nil {
			log.Printf("Failed to shutdown logger: %v", shutdownErr)
		}
	}()

	if _, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName: opts.Component,
		Logger:      agentLogger,
		OTel:        &logConfig.OTel,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	agentLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("config", opts.ConfigPath).
		Msg("Starting agent")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	driver, err := Build(ctx, &cfg, agentLogger, reg)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: opts.Component,
		Service:     driver,
		Logger:      agentLogger,
		MetricsAddr: cfg.Metrics.ListenAddr,
		Gatherer:    reg,
	})
}
