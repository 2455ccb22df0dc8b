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

//go:generate mockgen -destination=mock_actuator.go -package=actuator github.com/carverauto/homeradar/pkg/actuator Outlet,Notifier

import (
	"context"

	"github.com/carverauto/homeradar/pkg/models"
)

// Outlet is a remotely switched power outlet account.
type Outlet interface {
	Login(ctx context.Context) error
	ListDevices(ctx context.Context) ([]models.OutletDevice, error)
	SetOutletState(ctx context.Context, deviceID string, on bool) error
}

// Notifier is told about every successful transition.
type Notifier interface {
	NotifyTransition(ctx context.Context, t *models.Transition) error
}
