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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/homeradar/pkg/agent"
	"github.com/carverauto/homeradar/pkg/version"
)

var errNoProbes = errors.New("pool agent requires a probes section")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/homeradar/pool-agent.yaml", "Path to agent config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())

		return nil
	}

	return agent.Run(context.Background(), &agent.RunOptions{
		Component:  "pool-agent",
		ConfigPath: *configPath,
		Check: func(cfg *agent.Config) error {
			if cfg.Sensors.Probes == nil {
				return errNoProbes
			}

			return nil
		},
	})
}
