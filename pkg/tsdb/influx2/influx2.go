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

// Package influx2 writes points to an InfluxDB 2.x bucket.
package influx2

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/carverauto/homeradar/pkg/models"
)

const defaultTimeout = 10 * time.Second

var (
	errURLRequired    = errors.New("influx2 url is required")
	errBucketRequired = errors.New("influx2 org and bucket are required")
	errNotReady       = errors.New("influx2 server not ready")
)

// Config holds the token/org/bucket connection.
type Config struct {
	URL       string          `json:"url" yaml:"url"`
	Token     string          `json:"token" yaml:"token"`
	Org       string          `json:"org" yaml:"org"`
	Bucket    string          `json:"bucket" yaml:"bucket"`
	Precision string          `json:"precision,omitempty" yaml:"precision,omitempty"`
	Timeout   models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate fills defaults.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errURLRequired
	}

	if c.Org == "" || c.Bucket == "" {
		return errBucketRequired
	}

	if c.Precision == "" {
		c.Precision = "s"
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	return nil
}

// NewClient opens a client for cfg.
func NewClient(cfg *Config) influxdb2.Client {
	precision := time.Second
	if cfg.Precision == "ns" {
		precision = time.Nanosecond
	}

	opts := influxdb2.DefaultOptions().
		SetPrecision(precision).
		SetHTTPRequestTimeout(uint(cfg.Timeout.Std().Seconds()))

	return influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
}

// Writer writes point sets with the blocking write API.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// New creates a writer. cfg must have been validated.
func New(cfg *Config) *Writer {
	c := NewClient(cfg)

	return &Writer{
		client:   c,
		writeAPI: c.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Write sends points in one request.
func (w *Writer) Write(ctx context.Context, points []models.Point) error {
	if err := w.writeAPI.WritePoint(ctx, ToPoints(points)...); err != nil {
		return fmt.Errorf("influx2 write: %w", err)
	}

	return nil
}

// ToPoints converts points to client points.
func ToPoints(points []models.Point) []*write.Point {
	out := make([]*write.Point, 0, len(points))

	for i := range points {
		p := &points[i]

		fields := make(map[string]interface{}, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}

		out = append(out, influxdb2.NewPoint(p.Measurement, p.Tags, fields, p.Time))
	}

	return out
}

// Ping checks the server is reachable.
func (w *Writer) Ping(ctx context.Context) error {
	ok, err := w.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influx2 ping: %w", err)
	}

	if !ok {
		return errNotReady
	}

	return nil
}

// Close releases the client.
func (w *Writer) Close() error {
	w.client.Close()

	return nil
}
