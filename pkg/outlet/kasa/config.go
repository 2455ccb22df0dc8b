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

package kasa

import (
	"time"

	"github.com/carverauto/homeradar/pkg/models"
)

const (
	DefaultURL             = "https://wap.tplinkcloud.com"
	defaultTimeout         = 10 * time.Second
	defaultLoginMaxElapsed = 2 * time.Minute
)

// Config holds the cloud account used to switch outlets.
type Config struct {
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	// TerminalUUID identifies this client to the cloud. Generated when empty.
	TerminalUUID    string          `json:"terminal_uuid,omitempty" yaml:"terminal_uuid,omitempty"`
	Timeout         models.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	LoginMaxElapsed models.Duration `json:"login_max_elapsed,omitempty" yaml:"login_max_elapsed,omitempty"`
}

// Validate checks credentials and fills defaults.
func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return errCredentialsRequired
	}

	if c.URL == "" {
		c.URL = DefaultURL
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	if c.LoginMaxElapsed <= 0 {
		c.LoginMaxElapsed = models.Duration(defaultLoginMaxElapsed)
	}

	return nil
}
