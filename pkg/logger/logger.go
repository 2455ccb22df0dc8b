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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	ErrLogFileRequired = errors.New("log file path is required when output is \"file\"")
	ErrUnknownOutput   = errors.New("unknown log output")
)

var (
	globalLogger zerolog.Logger

	sinksMu   sync.Mutex
	sinks     []io.Closer
	shutdowns []func(context.Context) error
)

const shutdownTimeout = 10 * time.Second

func init() {
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init replaces the package level logger.
func Init(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}

	output, err := NewWriter(config)
	if err != nil {
		return err
	}

	level, err := ParseLevel(config)
	if err != nil {
		return err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	globalLogger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = globalLogger

	return nil
}

// NewWriter returns the sink described by config. File output rotates by size.
func NewWriter(config *Config) (io.Writer, error) {
	var output io.Writer

	switch config.Output {
	case OutputStdout, "":
		output = os.Stdout
	case OutputStderr:
		output = os.Stderr
	case OutputFile:
		if config.File == "" {
			return nil, ErrLogFileRequired
		}

		maxSize := config.MaxSizeMB
		if maxSize <= 0 {
			maxSize = defaultMaxSizeMB
		}

		maxBackups := config.MaxBackups
		if maxBackups <= 0 {
			maxBackups = defaultMaxBackups
		}

		rotating := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}

		sinksMu.Lock()
		sinks = append(sinks, rotating)
		sinksMu.Unlock()

		output = rotating
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, config.Output)
	}

	if config.Console {
		output = zerolog.MultiLevelWriter(output, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	return output, nil
}

func registerShutdown(fn func(context.Context) error) {
	sinksMu.Lock()
	shutdowns = append(shutdowns, fn)
	sinksMu.Unlock()
}

// Shutdown flushes exporters and closes the file sinks opened by NewWriter.
func Shutdown() error {
	sinksMu.Lock()
	defer sinksMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	for _, fn := range shutdowns {
		err = errors.Join(err, fn(ctx))
	}

	for _, s := range sinks {
		err = errors.Join(err, s.Close())
	}

	sinks, shutdowns = nil, nil

	return err
}

// ParseLevel resolves the effective level, Debug wins over Level.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

func SetLevel(level zerolog.Level) {
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

func SetDebug(debug bool) {
	if debug {
		SetLevel(zerolog.DebugLevel)
	} else {
		SetLevel(zerolog.InfoLevel)
	}
}

func GetLogger() zerolog.Logger {
	return globalLogger
}

func Info() *zerolog.Event {
	return globalLogger.Info()
}

func Warn() *zerolog.Event {
	return globalLogger.Warn()
}

func Error() *zerolog.Event {
	return globalLogger.Error()
}

func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
