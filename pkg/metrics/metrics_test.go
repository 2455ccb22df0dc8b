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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg, "pool")

	assert.InDelta(t, -1.0, testutil.ToFloat64(m.outletState), 0)

	m.CycleCompleted(10 * time.Second)
	m.CycleCompleted(11 * time.Second)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.cycles), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))

	m.ReadFailed("ph")
	m.ReadFailed("ph")
	m.ReadFailed("orp")
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.readFailures.WithLabelValues("ph")), 0)

	m.PublishFailed()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.publishErrors), 0)

	m.PointsWritten(5)
	assert.InDelta(t, 5.0, testutil.ToFloat64(m.pointsWritten), 0)

	m.Actuated("turn_on", true)
	m.Actuated("turn_on", false)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.actuations.WithLabelValues("turn_on")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.actuationFails), 0)

	m.OutletState(1, true)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.outletState), 0)

	m.OutletState(0, false)
	assert.InDelta(t, -1.0, testutil.ToFloat64(m.outletState), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestAgentMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewAgentMetrics(reg, "pool")

	assert.Panics(t, func() { NewAgentMetrics(reg, "pool") })
}
