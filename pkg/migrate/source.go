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

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
)

// Record is one stored row. Null is set when the row has no value for the
// requested field.
type Record struct {
	Time  time.Time
	Value float64
	Null  bool
}

// InfluxSource reads an InfluxDB 1.x database with InfluxQL.
type InfluxSource struct {
	client   client.Client
	database string
}

// NewInfluxSource queries database through c.
func NewInfluxSource(c client.Client, database string) *InfluxSource {
	return &InfluxSource{client: c, database: database}
}

// Count sums every counted column of SELECT COUNT(*).
func (s *InfluxSource) Count(ctx context.Context, measurement string) (int64, error) {
	resp, err := s.query(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(measurement)))
	if err != nil {
		return 0, err
	}

	var total int64

	for _, result := range resp.Results {
		for _, row := range result.Series {
			for _, values := range row.Values {
				for i, col := range row.Columns {
					if strings.EqualFold(col, "time") || i >= len(values) {
						continue
					}

					n, ok := toFloat(values[i])
					if ok {
						total += int64(n)
					}
				}
			}
		}
	}

	return total, nil
}

// Page returns up to limit rows starting at offset, one record per row.
// Rows where the field is null come back with Null set so callers can
// advance by the rows actually read.
func (s *InfluxSource) Page(
	ctx context.Context, measurement, field string, limit int, offset int64,
) ([]Record, error) {
	cmd := fmt.Sprintf(`SELECT * FROM %s LIMIT %d OFFSET %d`, quoteIdent(measurement), limit, offset)

	resp, err := s.query(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var records []Record

	for _, result := range resp.Results {
		for _, row := range result.Series {
			timeIdx, fieldIdx := -1, -1

			for i, col := range row.Columns {
				switch col {
				case "time":
					timeIdx = i
				case field:
					fieldIdx = i
				}
			}

			if timeIdx < 0 {
				return nil, errNoTimeColumn
			}

			for _, values := range row.Values {
				ts, err := parseTime(values[timeIdx])
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrQuery, err)
				}

				rec := Record{Time: ts, Null: true}

				if fieldIdx >= 0 && fieldIdx < len(values) {
					if v, ok := toFloat(values[fieldIdx]); ok {
						rec.Value, rec.Null = v, false
					}
				}

				records = append(records, rec)
			}
		}
	}

	return records, nil
}

func (s *InfluxSource) query(ctx context.Context, cmd string) (*client.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := s.client.Query(client.NewQuery(cmd, s.database, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, cmd, err)
	}

	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, cmd, err)
	}

	return resp, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case json.Number:
		ns, err := t.Int64()
		if err != nil {
			return time.Time{}, err
		}

		return time.Unix(0, ns).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %v", errUnexpectedTime, v)
	}
}
