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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carverauto/homeradar/pkg/config"
	"github.com/carverauto/homeradar/pkg/lifecycle"
	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/migrate"
	"github.com/carverauto/homeradar/pkg/tsdb/influx1"
	"github.com/carverauto/homeradar/pkg/tsdb/influx2"
	"github.com/carverauto/homeradar/pkg/version"
)

const defaultUILogFile = "influx-migrate.log"

func main() {
	// an interrupted migration is checkpointed and exits normally
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/homeradar/influx-migrate.yaml", "Path to migration config file")
	plain := flag.Bool("plain", false, "Log progress lines instead of showing the progress UI")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())

		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg migrate.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	migrateLogger, err := lifecycle.CreateComponentLogger(ctx, "influx-migrate", logConfig(cfg.Logging, !*plain))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	src, err := influx1.NewClient(&cfg.Source)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	sink := influx2.New(&cfg.Target)
	defer func() { _ = sink.Close() }()

	state, err := migrate.LoadState(cfg.StateFile)
	if err != nil {
		return err
	}

	opts := []migrate.Option{migrate.WithPause(cfg.Pause.Std())}

	if *plain {
		m := migrate.New(migrate.NewInfluxSource(src, cfg.Source.Database), sink, state, migrateLogger, opts...)

		return m.Run(ctx, cfg.Jobs)
	}

	return runWithUI(ctx, cancel, &cfg, func(observer func(migrate.Progress)) *migrate.Migrator {
		return migrate.New(migrate.NewInfluxSource(src, cfg.Source.Database), sink, state, migrateLogger,
			append(opts, migrate.WithObserver(observer))...)
	})
}

// runWithUI runs the migration behind the progress program. Quitting the
// program cancels the migration; the program exits when the migration does.
func runWithUI(
	ctx context.Context, cancel context.CancelFunc, cfg *migrate.Config,
	newMigrator func(func(migrate.Progress)) *migrate.Migrator,
) error {
	p := tea.NewProgram(newModel(cfg.Jobs, cancel), tea.WithContext(ctx), tea.WithoutSignalHandler())

	m := newMigrator(func(pr migrate.Progress) {
		p.Send(progressMsg(pr))
	})

	result := make(chan error, 1)

	go func() {
		err := m.Run(ctx, cfg.Jobs)
		result <- err

		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-result

		return fmt.Errorf("progress ui: %w", err)
	}

	return <-result
}

// logConfig keeps log lines off the terminal while the progress UI owns it.
func logConfig(cfg *logger.Config, ui bool) *logger.Config {
	if cfg == nil {
		cfg = &logger.Config{Level: "info", Output: logger.OutputStdout}
	}

	if ui && cfg.Output != logger.OutputFile {
		out := *cfg
		out.Output = logger.OutputFile
		out.Console = false

		if out.File == "" {
			out.File = defaultUILogFile
		}

		return &out
	}

	return cfg
}
