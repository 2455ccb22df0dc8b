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

// Package timescale writes points to a narrow TimescaleDB table.
package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/carverauto/homeradar/pkg/models"
)

const (
	driverName   = "pgx"
	defaultTable = "sensor_readings"
	columnsPer   = 5
)

var (
	errDSNRequired  = errors.New("timescale dsn is required")
	errInvalidTable = errors.New("invalid timescale table name")

	tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Config holds the PostgreSQL connection and target table.
type Config struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// CreateSchema creates the table, and the hypertable when Hypertable is set.
	CreateSchema bool `json:"create_schema,omitempty" yaml:"create_schema,omitempty"`
	Hypertable   bool `json:"hypertable,omitempty" yaml:"hypertable,omitempty"`
	MaxOpenConns int  `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
}

// Validate fills defaults and checks the table name.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errDSNRequired
	}

	if c.Table == "" {
		c.Table = defaultTable
	}

	if !tableNameRe.MatchString(c.Table) {
		return fmt.Errorf("%w: %q", errInvalidTable, c.Table)
	}

	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 2
	}

	return nil
}

// Writer inserts one row per point field.
type Writer struct {
	db    *sql.DB
	table string
	agent string
}

// Open connects with the pgx driver. cfg must have been validated.
func Open(ctx context.Context, cfg *Config, agent string) (*Writer, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open timescale: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)

	w := NewWriter(db, cfg.Table, agent)

	if cfg.CreateSchema {
		if err := w.EnsureSchema(ctx, cfg.Hypertable); err != nil {
			_ = db.Close()

			return nil, err
		}
	}

	return w, nil
}

// NewWriter wraps an open database.
func NewWriter(db *sql.DB, table, agent string) *Writer {
	return &Writer{db: db, table: table, agent: agent}
}

// EnsureSchema creates the readings table when missing.
func (w *Writer) EnsureSchema(ctx context.Context, hypertable bool) error {
	ddl := "CREATE TABLE IF NOT EXISTS " + w.table + " (" +
		"time TIMESTAMPTZ NOT NULL, " +
		"agent TEXT NOT NULL, " +
		"measurement TEXT NOT NULL, " +
		"field TEXT NOT NULL, " +
		"value DOUBLE PRECISION NOT NULL)"

	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", w.table, err)
	}

	if !hypertable {
		return nil
	}

	if _, err := w.db.ExecContext(ctx,
		"SELECT create_hypertable($1, 'time', if_not_exists => TRUE)", w.table); err != nil {
		return fmt.Errorf("create hypertable %s: %w", w.table, err)
	}

	return nil
}

// Write inserts every field of every point in one statement.
func (w *Writer) Write(ctx context.Context, points []models.Point) error {
	var b strings.Builder

	b.WriteString("INSERT INTO ")
	b.WriteString(w.table)
	b.WriteString(" (time, agent, measurement, field, value) VALUES ")

	args := make([]any, 0, len(points)*columnsPer)

	for i := range points {
		p := &points[i]

		for _, field := range p.FieldNames() {
			if len(args) > 0 {
				b.WriteString(",")
			}

			n := len(args)
			fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5)

			args = append(args, p.Time, w.agent, p.Measurement, field, p.Fields[field])
		}
	}

	if len(args) == 0 {
		return nil
	}

	if _, err := w.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("timescale insert: %w", err)
	}

	return nil
}

// Ping checks the database is reachable.
func (w *Writer) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close closes the pool.
func (w *Writer) Close() error {
	return w.db.Close()
}
