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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Checkpoint is the progress of one job.
type Checkpoint struct {
	Offset  int64     `json:"offset"`
	Done    bool      `json:"done"`
	Updated time.Time `json:"updated"`
}

// State persists checkpoints to a JSON file. A State with no path keeps
// them in memory only.
type State struct {
	mu    sync.Mutex
	path  string
	jobs  map[string]Checkpoint
	clock func() time.Time
}

// LoadState reads path if it exists.
func LoadState(path string) (*State, error) {
	s := &State{
		path:  path,
		jobs:  make(map[string]Checkpoint),
		clock: time.Now,
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := json.Unmarshal(data, &s.jobs); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}

	return s, nil
}

// Get returns the checkpoint for key.
func (s *State) Get(key string) (Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.jobs[key]

	return cp, ok
}

// Set records a checkpoint and saves the file.
func (s *State) Set(key string, offset int64, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[key] = Checkpoint{Offset: offset, Done: done, Updated: s.clock().UTC()}

	return s.save()
}

func (s *State) save() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".migrate-state-*")
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write state file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write state file: %w", err)
	}

	return os.Rename(tmp.Name(), s.path)
}
