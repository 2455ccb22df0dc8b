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

package sensorbus

import "errors"

var (
	// ErrEnumeration is returned when no device answers during discovery.
	ErrEnumeration = errors.New("no sensor devices found on bus")
	// ErrDeviceDisconnected means the device or bus adapter went away.
	ErrDeviceDisconnected = errors.New("sensor device disconnected")
	// ErrSyntax is the device rejecting a command.
	ErrSyntax = errors.New("device rejected command")
	// ErrPending means the device has not finished processing.
	ErrPending = errors.New("device still processing")
	// ErrNoData means the device had nothing to send.
	ErrNoData = errors.New("device returned no data")

	errUnknownStatus = errors.New("unknown device status")
	errShortRead     = errors.New("short read from device")
)
