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

import "errors"

var (
	// ErrQuery is a failed source query.
	ErrQuery = errors.New("source query failed")
	// ErrWrite is a failed target write.
	ErrWrite = errors.New("target write failed")

	errNoJobs         = errors.New("at least one migration job is required")
	errJobMeasurement = errors.New("job source and target measurement are required")
	errJobField       = errors.New("job source and target field are required")
	errNoTimeColumn   = errors.New("result has no time column")
	errUnexpectedTime = errors.New("unexpected time value")
)
