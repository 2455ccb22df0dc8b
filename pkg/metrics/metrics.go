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

// Package metrics exposes Prometheus collectors for the poll loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "homeradar"

// AgentMetrics records what each poll cycle did.
type AgentMetrics struct {
	cycles         prometheus.Counter
	cycleDuration  prometheus.Histogram
	readFailures   *prometheus.CounterVec
	publishErrors  prometheus.Counter
	pointsWritten  prometheus.Counter
	actuations     *prometheus.CounterVec
	actuationFails prometheus.Counter
	outletState    prometheus.Gauge
}

// NewAgentMetrics creates the collectors with a constant agent label and
// registers them with reg.
func NewAgentMetrics(reg prometheus.Registerer, agent string) *AgentMetrics {
	labels := prometheus.Labels{"agent": agent}

	m := &AgentMetrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "poll_cycles_total",
			Help:        "Completed poll cycles.",
			ConstLabels: labels,
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "poll_cycle_duration_seconds",
			Help:        "Wall time of a poll cycle including the settle wait.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "device_read_failures_total",
			Help:        "Readings dropped because a device read or parse failed.",
			ConstLabels: labels,
		}, []string{"role"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "publish_failures_total",
			Help:        "Cycles whose points could not be written.",
			ConstLabels: labels,
		}),
		pointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "points_written_total",
			Help:        "Points accepted by the time-series backend.",
			ConstLabels: labels,
		}),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actuations_total",
			Help:        "Outlet commands accepted, by action.",
			ConstLabels: labels,
		}, []string{"action"}),
		actuationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actuation_failures_total",
			Help:        "Outlet commands that failed.",
			ConstLabels: labels,
		}),
		outletState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "outlet_state",
			Help:        "Last verified outlet state: 1 on, 0 off, -1 unknown.",
			ConstLabels: labels,
		}),
	}

	m.outletState.Set(-1)

	reg.MustRegister(
		m.cycles, m.cycleDuration, m.readFailures, m.publishErrors,
		m.pointsWritten, m.actuations, m.actuationFails, m.outletState,
	)

	return m
}

func (m *AgentMetrics) CycleCompleted(d time.Duration) {
	m.cycles.Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *AgentMetrics) ReadFailed(role string) {
	m.readFailures.WithLabelValues(role).Inc()
}

func (m *AgentMetrics) PublishFailed() {
	m.publishErrors.Inc()
}

func (m *AgentMetrics) PointsWritten(n int) {
	m.pointsWritten.Add(float64(n))
}

// Actuated records an outlet command. ok is false when the command failed.
func (m *AgentMetrics) Actuated(action string, ok bool) {
	if !ok {
		m.actuationFails.Inc()
		return
	}

	m.actuations.WithLabelValues(action).Inc()
}

// OutletState sets the state gauge. known is false while the state is unknown.
func (m *AgentMetrics) OutletState(value float64, known bool) {
	if !known {
		m.outletState.Set(-1)
		return
	}

	m.outletState.Set(value)
}
