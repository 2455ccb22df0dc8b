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

package migrate

import (
	"fmt"
	"time"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/tsdb/influx1"
	"github.com/carverauto/homeradar/pkg/tsdb/influx2"
)

const (
	DefaultChunk = 1000
	DefaultPause = time.Second

	writeRetries = 3
)

// Job copies one field of one measurement.
type Job struct {
	SourceMeasurement string `json:"source_measurement" yaml:"source_measurement"`
	SourceField       string `json:"source_field" yaml:"source_field"`
	TargetMeasurement string `json:"target_measurement" yaml:"target_measurement"`
	TargetField       string `json:"target_field" yaml:"target_field"`
	Chunk             int    `json:"chunk,omitempty" yaml:"chunk,omitempty"`
	// Offset is where to start when no checkpoint exists.
	Offset int64 `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// Key identifies the job in the checkpoint file.
func (j *Job) Key() string {
	return fmt.Sprintf("%s.%s->%s.%s", j.SourceMeasurement, j.SourceField, j.TargetMeasurement, j.TargetField)
}

func (j *Job) validate() error {
	if j.SourceMeasurement == "" || j.TargetMeasurement == "" {
		return errJobMeasurement
	}

	if j.SourceField == "" || j.TargetField == "" {
		return fmt.Errorf("%w: %s", errJobField, j.SourceMeasurement)
	}

	if j.Chunk <= 0 {
		j.Chunk = DefaultChunk
	}

	return nil
}

// Config is the influx-migrate configuration.
type Config struct {
	Source influx1.Config `json:"source" yaml:"source"`
	Target influx2.Config `json:"target" yaml:"target"`
	Jobs   []Job          `json:"jobs" yaml:"jobs"`
	// StateFile stores the last completed offset of each job. Empty disables checkpoints.
	StateFile string          `json:"state_file,omitempty" yaml:"state_file,omitempty"`
	Pause     models.Duration `json:"pause,omitempty" yaml:"pause,omitempty"`
	Logging   *logger.Config  `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Validate checks both connections and every job.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}

	if len(c.Jobs) == 0 {
		return errNoJobs
	}

	for i := range c.Jobs {
		if err := c.Jobs[i].validate(); err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
	}

	if c.Pause <= 0 {
		c.Pause = models.Duration(DefaultPause)
	}

	return nil
}
