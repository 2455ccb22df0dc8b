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

import (
	"errors"
	"fmt"
)

var (
	errNameRequired    = errors.New("agent name is required")
	errNoSources       = errors.New("no sensor source configured")
	errOutletRequired  = errors.New("actuator requires an outlet configuration")
	errNegativeSettle  = errors.New("settle_time must not be negative")
	errUnknownRuleRole = errors.New("rule role is required")
)

// DeviceReadError is a failed read or parse of one device. It drops only
// that device's readings for the cycle.
type DeviceReadError struct {
	Role string
	Raw  string
	Err  error
}

func (e *DeviceReadError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("read %s: %v", e.Role, e.Err)
	}

	return fmt.Sprintf("read %s: %v (raw %q)", e.Role, e.Err, e.Raw)
}

func (e *DeviceReadError) Unwrap() error {
	return e.Err
}
