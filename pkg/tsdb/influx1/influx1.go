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

// Package influx1 writes points to an InfluxDB 1.x database.
package influx1

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/carverauto/homeradar/pkg/models"
)

const (
	DefaultPort    = 8086
	defaultTimeout = 10 * time.Second
)

var errDatabaseRequired = errors.New("influx1 database is required")

// Config holds the legacy user/password/database connection.
type Config struct {
	Host      string          `json:"host" yaml:"host"`
	Port      int             `json:"port,omitempty" yaml:"port,omitempty"`
	Username  string          `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string          `json:"password,omitempty" yaml:"password,omitempty"`
	Database  string          `json:"database" yaml:"database"`
	Precision string          `json:"precision,omitempty" yaml:"precision,omitempty"`
	Timeout   models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate fills defaults.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errDatabaseRequired
	}

	if c.Host == "" {
		c.Host = "localhost"
	}

	if c.Port == 0 {
		c.Port = DefaultPort
	}

	if c.Precision == "" {
		c.Precision = "s"
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	return nil
}

// Addr is the HTTP address of the server. Host may already carry a scheme.
func (c *Config) Addr() string {
	if u, err := url.Parse(c.Host); err == nil && u.Scheme != "" && u.Host != "" {
		return c.Host
	}

	return "http://" + c.Host + ":" + strconv.Itoa(c.Port)
}

// NewClient opens an HTTP client for cfg.
func NewClient(cfg *Config) (client.Client, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.Addr(),
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("influx1 client: %w", err)
	}

	return c, nil
}

// Writer writes point sets as one batch.
type Writer struct {
	cfg    Config
	client client.Client
}

// New creates a writer. cfg must have been validated.
func New(cfg *Config) (*Writer, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Writer{cfg: *cfg, client: c}, nil
}

// Write sends points in a single batch request.
func (w *Writer) Write(_ context.Context, points []models.Point) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  w.cfg.Database,
		Precision: w.cfg.Precision,
	})
	if err != nil {
		return err
	}

	for i := range points {
		p := &points[i]

		fields := make(map[string]interface{}, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}

		pt, err := client.NewPoint(p.Measurement, p.Tags, fields, p.Time)
		if err != nil {
			return fmt.Errorf("influx1 point %s: %w", p.Measurement, err)
		}

		bp.AddPoint(pt)
	}

	if err := w.client.Write(bp); err != nil {
		return fmt.Errorf("influx1 write: %w", err)
	}

	return nil
}

// Ping checks the server is reachable.
func (w *Writer) Ping(_ context.Context) error {
	if _, _, err := w.client.Ping(w.cfg.Timeout.Std()); err != nil {
		return fmt.Errorf("influx1 ping: %w", err)
	}

	return nil
}

// Close releases the client.
func (w *Writer) Close() error {
	return w.client.Close()
}
