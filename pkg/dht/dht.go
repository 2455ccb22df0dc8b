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

// Package dht reads a DHT11/DHT22 sensor through the kernel IIO driver.
//
// The dht11 overlay exposes the sensor as an IIO device with
// in_temp_input (millidegrees Celsius) and in_humidityrelative_input
// (milli-percent). Reads fail often and are retried a few times.
package dht

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/normalize"
)

const (
	DefaultIIORoot    = "/sys/bus/iio/devices"
	DefaultRetries    = 3
	DefaultRetryDelay = 2 * time.Second

	driverName    = "dht11"
	temperatureIn = "in_temp_input"
	humidityIn    = "in_humidityrelative_input"
)

var (
	// ErrNotFound means no IIO device with the dht11 driver exists.
	ErrNotFound = errors.New("dht iio device not found")
	// ErrRead is a failed sensor read. It is frequent and not fatal.
	ErrRead = errors.New("dht read failed")
)

// Config selects the device.
type Config struct {
	// Device is the IIO device directory. Empty searches IIORoot.
	Device     string          `json:"device,omitempty" yaml:"device,omitempty"`
	IIORoot    string          `json:"iio_root,omitempty" yaml:"iio_root,omitempty"`
	Retries    int             `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelay models.Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
	// Prefix is prepended to the reading fields.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// Sensor samples temperature and humidity.
type Sensor struct {
	dir        string
	prefix     string
	retries    int
	retryDelay time.Duration
}

// Open locates the device.
func Open(cfg *Config) (*Sensor, error) {
	dir := cfg.Device
	if dir == "" {
		root := cfg.IIORoot
		if root == "" {
			root = DefaultIIORoot
		}

		found, err := find(root)
		if err != nil {
			return nil, err
		}

		dir = found
	}

	s := &Sensor{
		dir:        dir,
		prefix:     cfg.Prefix,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay.Std(),
	}

	if s.retries <= 0 {
		s.retries = DefaultRetries
	}

	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}

	return s, nil
}

func find(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "iio:device*"))
	if err != nil {
		return "", err
	}

	for _, dir := range matches {
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}

		if strings.TrimSpace(string(name)) == driverName {
			return dir, nil
		}
	}

	return "", fmt.Errorf("%w under %s", ErrNotFound, root)
}

// Name implements the agent sampler contract.
func (*Sensor) Name() string {
	return "dht22"
}

// Dir is the IIO device directory in use.
func (s *Sensor) Dir() string {
	return s.dir
}

// Sample reads temperature and humidity, retrying failed reads.
func (s *Sensor) Sample(ctx context.Context) ([]models.Reading, error) {
	operation := func() ([]models.Reading, error) {
		return s.read()
	}

	readings, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryDelay)),
		backoff.WithMaxTries(uint(s.retries)))
	if err != nil {
		return nil, err
	}

	return readings, nil
}

func (s *Sensor) read() ([]models.Reading, error) {
	tempC, err := s.readMilli(temperatureIn)
	if err != nil {
		return nil, err
	}

	rh, err := s.readMilli(humidityIn)
	if err != nil {
		return nil, err
	}

	return []models.Reading{
		{Field: s.prefix + "temp_c", Value: tempC, Unit: models.UnitCelsius},
		{Field: s.prefix + "temp_f", Value: normalize.CelsiusToFahrenheit(tempC), Unit: models.UnitFahrenheit},
		{Field: s.prefix + "humidity", Value: rh, Unit: models.UnitPercentRH},
	}, nil
}

func (s *Sensor) readMilli(file string) (float64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrRead, file, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrRead, file, err)
	}

	return v / 1000, nil
}
