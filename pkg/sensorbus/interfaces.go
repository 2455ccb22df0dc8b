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

//go:generate mockgen -destination=mock_sensorbus.go -package=sensorbus github.com/carverauto/homeradar/pkg/sensorbus Bus,Transport

// Transport is the command/response link to one device on the bus.
type Transport interface {
	// Write sends an ASCII command in one transaction.
	Write(cmd string) error
	// Read returns the payload of the last answer.
	Read() (string, error)
	Close() error
}

// Bus opens transports by device address.
type Bus interface {
	Open(address int) (Transport, error)
	Close() error
}
