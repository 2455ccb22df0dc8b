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

package influx1

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/models"
)

type capture struct {
	mu     sync.Mutex
	query  url.Values
	bodies []string
	status int
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/write":
		body, _ := io.ReadAll(r.Body)

		c.mu.Lock()
		c.query = r.URL.Query()
		c.bodies = append(c.bodies, string(body))
		status := c.status
		c.mu.Unlock()

		if status == 0 {
			status = http.StatusNoContent
		}

		w.WriteHeader(status)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newWriter(t *testing.T, c *capture) *Writer {
	t.Helper()

	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)

	cfg := &Config{Host: srv.URL, Database: "pool", Username: "agent", Password: "secret"}
	require.NoError(t, cfg.Validate())

	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	return w
}

func TestWriteLegacyMeasurements(t *testing.T) {
	t.Parallel()

	c := &capture{}
	w := newWriter(t, c)

	ts := time.Date(2024, 6, 1, 19, 30, 15, 0, time.UTC)
	points := []models.Point{
		{Measurement: "ORP", Fields: map[string]float64{"value": 123.4}, Time: ts},
		{Measurement: "Water Level", Fields: map[string]float64{"value": 13.79}, Time: ts},
	}

	require.NoError(t, w.Write(context.Background(), points))
	require.NoError(t, w.Ping(context.Background()))

	c.mu.Lock()
	defer c.mu.Unlock()

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "pool", c.query.Get("db"))
	assert.Equal(t, "s", c.query.Get("precision"))
	assert.Contains(t, c.bodies[0], "ORP value=123.4 1717270215")
	assert.Contains(t, c.bodies[0], `Water\ Level value=13.79 1717270215`)
}

func TestWriteServerError(t *testing.T) {
	t.Parallel()

	w := newWriter(t, &capture{status: http.StatusInternalServerError})

	err := w.Write(context.Background(), []models.Point{
		{Measurement: "pH", Fields: map[string]float64{"value": 7.2}, Time: time.Unix(0, 0)},
	})
	require.Error(t, err)
}

func TestConfig(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&Config{}).Validate(), errDatabaseRequired)

	cfg := &Config{Database: "pool", Host: "influx.lan"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://influx.lan:8086", cfg.Addr())

	cfg.Host = "https://influx.example.com"
	assert.Equal(t, "https://influx.example.com", cfg.Addr())
}
