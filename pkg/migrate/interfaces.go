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

//go:generate mockgen -destination=mock_migrate.go -package=migrate github.com/carverauto/homeradar/pkg/migrate Source,Sink

import (
	"context"

	"github.com/carverauto/homeradar/pkg/models"
)

// Source pages through a legacy database.
type Source interface {
	Count(ctx context.Context, measurement string) (int64, error)
	Page(ctx context.Context, measurement, field string, limit int, offset int64) ([]Record, error)
}

// Sink receives converted points. influx2.Writer implements it.
type Sink interface {
	Write(ctx context.Context, points []models.Point) error
}
