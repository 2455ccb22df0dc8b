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

import "errors"

var (
	// ErrAuthFailed is returned when the cloud rejects the credentials.
	ErrAuthFailed = errors.New("kasa login rejected")
	// ErrAPI wraps a non-zero error_code from the cloud.
	ErrAPI = errors.New("kasa api error")
	// ErrDeviceCommand is returned when the device rejects a relay command.
	ErrDeviceCommand        = errors.New("kasa device rejected command")
	errUnexpectedStatusCode = errors.New("unexpected status code")
	errCredentialsRequired  = errors.New("kasa username and password are required")
	errNotLoggedIn          = errors.New("kasa client is not logged in")
)
