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

package sen5x

import "errors"

var (
	// ErrCRC means a response word failed its checksum.
	ErrCRC = errors.New("sen5x crc mismatch")
	// ErrDataNotReady is returned when no measurement arrived before the wait deadline.
	ErrDataNotReady = errors.New("sen5x data not ready")

	errShortRead = errors.New("sen5x short read")
)
