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

package actuator

import "errors"

var (
	// ErrActuation is returned when the outlet did not accept a command.
	// The actuator state is left unchanged.
	ErrActuation = errors.New("actuation failed")
	// ErrInvalidThresholds means the on threshold is not above the off threshold.
	ErrInvalidThresholds = errors.New("turn_on_threshold must be greater than turn_off_threshold")
	// ErrOutletNotFound is returned when the configured outlet is not listed by the account.
	ErrOutletNotFound = errors.New("outlet not found")
	errFieldRequired  = errors.New("actuator field is required")
	errOutletRequired = errors.New("outlet device_id or alias is required")
)
