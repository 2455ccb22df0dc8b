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

package timescale

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/models"
)

var errConnReset = errors.New("connection reset")

func TestWriteInsertsNarrowRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	w := NewWriter(db, "sensor_readings", "pool")
	ts := time.Date(2024, 6, 1, 19, 30, 15, 0, time.UTC)

	points := []models.Point{{
		Measurement: "pool",
		Fields:      map[string]float64{"ph": 7.2, "orp": 123.4},
		Time:        ts,
	}}

	expectedQuery := regexp.QuoteMeta("INSERT INTO sensor_readings (time, agent, measurement, field, value) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10)")
	mock.ExpectExec(expectedQuery).
		WithArgs(ts, "pool", "pool", "orp", 123.4, ts, "pool", "pool", "ph", 7.2).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, w.Write(context.Background(), points))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteNoPoints(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, NewWriter(db, "sensor_readings", "pool").Write(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("INSERT INTO sensor_readings").WillReturnError(errConnReset)

	err = NewWriter(db, "sensor_readings", "attic").Write(context.Background(), []models.Point{
		{Measurement: "Attic Temperature", Fields: map[string]float64{"value": 31}, Time: time.Now()},
	})
	require.ErrorIs(t, err, errConnReset)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS metrics.readings (")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT create_hypertable($1, 'time', if_not_exists => TRUE)")).
		WithArgs("metrics.readings").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewWriter(db, "metrics.readings", "pool").EnsureSchema(context.Background(), true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&Config{}).Validate(), errDSNRequired)
	require.ErrorIs(t, (&Config{DSN: "postgres://x", Table: "x; DROP TABLE y"}).Validate(), errInvalidTable)

	cfg := &Config{DSN: "postgres://x"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultTable, cfg.Table)
	assert.Equal(t, 2, cfg.MaxOpenConns)
}
