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

package tsdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/tsdb/influx1"
	"github.com/carverauto/homeradar/pkg/tsdb/influx2"
)

var errNotYet = errors.New("not yet")

type flakyBackend struct {
	failures int32
	pings    atomic.Int32
}

func (*flakyBackend) Write(context.Context, []models.Point) error { return nil }
func (*flakyBackend) Close() error                                { return nil }

func (f *flakyBackend) Ping(context.Context) error {
	if f.pings.Add(1) <= f.failures {
		return errNotYet
	}

	return nil
}

func TestWaitReadyRetries(t *testing.T) {
	t.Parallel()

	b := &flakyBackend{failures: 2}

	require.NoError(t, WaitReady(context.Background(), b, 10*time.Second))
	assert.Equal(t, int32(3), b.pings.Load())
}

func TestWaitReadyGivesUp(t *testing.T) {
	t.Parallel()

	b := &flakyBackend{failures: 1000}

	require.ErrorIs(t, WaitReady(context.Background(), b, 100*time.Millisecond), errNotYet)
}

type deadlineBackend struct {
	flakyBackend
}

func (d *deadlineBackend) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errNotYet
	}

	return d.flakyBackend.Ping(ctx)
}

func TestWaitReadyBoundsEachAttempt(t *testing.T) {
	t.Parallel()

	b := &deadlineBackend{}

	require.NoError(t, WaitReady(context.Background(), b, time.Second))
	assert.Equal(t, int32(1), b.pings.Load())
}

func TestOpenInflux2(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	cfg := &Config{
		Type:    TypeInflux2,
		Influx2: &influx2.Config{URL: srv.URL, Token: "t", Org: "home", Bucket: "air"},
	}
	require.NoError(t, cfg.Validate())
	cfg.SetPrecision("ns")
	assert.Equal(t, "ns", cfg.Influx2.Precision)

	b, err := Open(context.Background(), cfg, "airquality", logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestOpenUnreachableIsNotFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := &Config{
		Type:           TypeInflux1,
		ConnectTimeout: models.Duration(50 * time.Millisecond),
		Influx1:        &influx1.Config{Host: srv.URL, Database: "pool"},
	}
	require.NoError(t, cfg.Validate())

	b, err := Open(context.Background(), cfg, "pool", logger.NewTestLogger())
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NoError(t, b.Close())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&Config{Type: "graphite"}).Validate(), errUnknownBackend)

	for _, typ := range []string{TypeInflux1, TypeInflux2, TypeTimescale, TypeNATS} {
		require.ErrorIs(t, (&Config{Type: typ}).Validate(), errBackendSettings, typ)
	}
}
