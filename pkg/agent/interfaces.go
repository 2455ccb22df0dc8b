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

package agent

//go:generate mockgen -destination=mock_agent.go -package=agent github.com/carverauto/homeradar/pkg/agent Sampler,Line

import (
	"context"
	"time"

	"github.com/carverauto/homeradar/pkg/actuator"
	"github.com/carverauto/homeradar/pkg/models"
)

// Clock abstracts time for the cycle driver.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Probe is a command/response device: Request starts a reading, Collect
// returns the raw answer after the settle time.
type Probe interface {
	Request() error
	Collect() (string, error)
}

// Line is a passive source producing one raw value per read.
type Line interface {
	Name() string
	ReadLine(ctx context.Context) (string, error)
}

// Sampler produces ready-made readings, e.g. a digital sensor or host metric.
type Sampler interface {
	Name() string
	Sample(ctx context.Context) ([]models.Reading, error)
}

// Actuator switches an outlet from the cycle's readings.
type Actuator interface {
	Field() string
	Step(ctx context.Context, readings []models.Reading, state *models.ActuatorState) (actuator.Action, error)
}

// Publisher writes one point set per cycle.
type Publisher interface {
	Publish(ctx context.Context, readings []models.Reading, extra map[string]float64) (int, error)
}

// Recorder receives cycle metrics.
type Recorder interface {
	CycleCompleted(d time.Duration)
	ReadFailed(role string)
	PublishFailed()
	PointsWritten(n int)
	Actuated(action string, ok bool)
	OutletState(value float64, known bool)
}
