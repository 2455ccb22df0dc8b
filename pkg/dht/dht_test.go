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

package dht

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/models"
)

func writeDevice(t *testing.T, root, dev, name string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(root, dev)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "name"), []byte(name+"\n"), 0o600))

	for f, v := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(v), 0o600))
	}

	return dir
}

func TestOpenFindsDriver(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeDevice(t, root, "iio:device0", "ads1015", nil)
	want := writeDevice(t, root, "iio:device1", "dht11", nil)

	s, err := Open(&Config{IIORoot: root})
	require.NoError(t, err)
	assert.Equal(t, want, s.Dir())
	assert.Equal(t, "dht22", s.Name())
}

func TestOpenNotFound(t *testing.T) {
	t.Parallel()

	_, err := Open(&Config{IIORoot: t.TempDir()})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSample(t *testing.T) {
	t.Parallel()

	dir := writeDevice(t, t.TempDir(), "iio:device0", "dht11", map[string]string{
		temperatureIn: "21500\n",
		humidityIn:    "48300\n",
	})

	s, err := Open(&Config{Device: dir, Prefix: "attic_"})
	require.NoError(t, err)

	readings, err := s.Sample(context.Background())
	require.NoError(t, err)

	require.Len(t, readings, 3)
	assert.Equal(t, models.Reading{Field: "attic_temp_c", Value: 21.5, Unit: models.UnitCelsius}, readings[0])
	assert.InDelta(t, 70.7, readings[1].Value, 1e-9)
	assert.InDelta(t, 48.3, readings[2].Value, 1e-9)
}

func TestSampleRetriesThenFails(t *testing.T) {
	t.Parallel()

	dir := writeDevice(t, t.TempDir(), "iio:device0", "dht11", map[string]string{
		temperatureIn: "21500\n",
	})

	s, err := Open(&Config{
		Device:     dir,
		Retries:    2,
		RetryDelay: models.Duration(time.Millisecond),
	})
	require.NoError(t, err)

	_, err = s.Sample(context.Background())
	require.ErrorIs(t, err, ErrRead)
}

func TestSampleRecoversOnRetry(t *testing.T) {
	t.Parallel()

	dir := writeDevice(t, t.TempDir(), "iio:device0", "dht11", map[string]string{
		temperatureIn: "garbage",
		humidityIn:    "50000",
	})

	s, err := Open(&Config{Device: dir, Retries: 50, RetryDelay: models.Duration(5 * time.Millisecond)})
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, temperatureIn), []byte("19000"), 0o600)
	}()

	readings, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 19.0, readings[0].Value, 1e-9)
}
