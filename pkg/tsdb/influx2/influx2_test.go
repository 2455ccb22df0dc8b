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

package influx2

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
	auth   string
	bodies []string
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)

		c.mu.Lock()
		c.query = r.URL.Query()
		c.auth = r.Header.Get("Authorization")
		c.bodies = append(c.bodies, string(body))
		c.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestWriteFieldsLayout(t *testing.T) {
	t.Parallel()

	c := &capture{}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)

	cfg := &Config{URL: srv.URL, Token: "tok", Org: "home", Bucket: "air"}
	require.NoError(t, cfg.Validate())

	w := New(cfg)
	t.Cleanup(func() { _ = w.Close() })

	ts := time.Date(2024, 6, 1, 19, 30, 15, 0, time.UTC)
	points := []models.Point{{
		Measurement: "sen55",
		Tags:        map[string]string{"agent": "airquality"},
		Fields:      map[string]float64{"rh": 41.5, "temp_c": 22.25},
		Time:        ts,
	}}

	require.NoError(t, w.Write(context.Background(), points))
	require.NoError(t, w.Ping(context.Background()))

	c.mu.Lock()
	defer c.mu.Unlock()

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "home", c.query.Get("org"))
	assert.Equal(t, "air", c.query.Get("bucket"))
	assert.Equal(t, "s", c.query.Get("precision"))
	assert.Equal(t, "Token tok", c.auth)
	assert.Contains(t, c.bodies[0], "sen55,agent=airquality ")
	assert.Contains(t, c.bodies[0], "rh=41.5")
	assert.Contains(t, c.bodies[0], "temp_c=22.25")
	assert.Contains(t, c.bodies[0], " 1717270215")
}

func TestWriteRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"unauthorized access"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := &Config{URL: srv.URL, Token: "bad", Org: "home", Bucket: "air"}
	require.NoError(t, cfg.Validate())

	w := New(cfg)
	t.Cleanup(func() { _ = w.Close() })

	err := w.Write(context.Background(), []models.Point{
		{Measurement: "sen55", Fields: map[string]float64{"rh": 40}, Time: time.Unix(0, 0)},
	})
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&Config{}).Validate(), errURLRequired)
	require.ErrorIs(t, (&Config{URL: "http://x"}).Validate(), errBucketRequired)

	cfg := &Config{URL: "http://x", Org: "o", Bucket: "b"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "s", cfg.Precision)
	assert.Equal(t, defaultTimeout, cfg.Timeout.Std())
}
