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

package lifecycle

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/homeradar/pkg/logger"
)

var errTestBroken = errors.New("broken")

type fakeService struct {
	stopCh    chan struct{}
	stopCalls atomic.Int32
	startErr  error
}

func newFakeService() *fakeService {
	return &fakeService{stopCh: make(chan struct{})}
}

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}

	select {
	case <-f.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeService) Stop(context.Context) error {
	if f.stopCalls.Add(1) == 1 {
		close(f.stopCh)
	}

	return nil
}

func runAsync(t *testing.T, opts *ServerOptions) <-chan error {
	t.Helper()

	errCh := make(chan error, 1)

	go func() {
		errCh <- RunServer(context.Background(), opts)
	}()

	return errCh
}

func waitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("RunServer did not return")
		return nil
	}
}

func TestRunServerSIGTERMStopsService(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	sigCh := make(chan os.Signal, 1)

	errCh := runAsync(t, &ServerOptions{
		ServiceName: "test",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
		Signals:     sigCh,
	})

	sigCh <- syscall.SIGTERM

	require.NoError(t, waitResult(t, errCh))
	assert.Equal(t, int32(1), svc.stopCalls.Load())
}

func TestRunServerInterruptCancelsContext(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	sigCh := make(chan os.Signal, 1)

	errCh := runAsync(t, &ServerOptions{
		ServiceName: "test",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
		Signals:     sigCh,
	})

	sigCh <- os.Interrupt

	require.NoError(t, waitResult(t, errCh))
	assert.Equal(t, int32(0), svc.stopCalls.Load())
}

// cycleService finishes its cycle only after a long delay unless the context ends.
// Stop waits for Start to return, like the poll driver.
type cycleService struct {
	stopping chan struct{}
	stopped  chan struct{}
	cycle    time.Duration
}

func (c *cycleService) Start(ctx context.Context) error {
	defer close(c.stopped)

	select {
	case <-time.After(c.cycle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *cycleService) Stop(ctx context.Context) error {
	close(c.stopping)

	select {
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRunServerInterruptDuringGracefulStop(t *testing.T) {
	t.Parallel()

	svc := &cycleService{
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
		cycle:    time.Minute,
	}
	sigCh := make(chan os.Signal, 2)

	errCh := runAsync(t, &ServerOptions{
		ServiceName:     "test",
		Service:         svc,
		Logger:          logger.NewTestLogger(),
		Signals:         sigCh,
		ShutdownTimeout: time.Minute,
	})

	sigCh <- syscall.SIGTERM

	select {
	case <-svc.stopping:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop was not called")
	}

	start := time.Now()
	sigCh <- os.Interrupt

	require.NoError(t, waitResult(t, errCh))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunServerSecondSIGTERMAborts(t *testing.T) {
	t.Parallel()

	svc := &cycleService{
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
		cycle:    time.Minute,
	}
	sigCh := make(chan os.Signal, 2)

	errCh := runAsync(t, &ServerOptions{
		ServiceName:     "test",
		Service:         svc,
		Logger:          logger.NewTestLogger(),
		Signals:         sigCh,
		ShutdownTimeout: time.Minute,
	})

	sigCh <- syscall.SIGTERM
	<-svc.stopping
	sigCh <- syscall.SIGTERM

	require.NoError(t, waitResult(t, errCh))
}

func TestRunServerReturnsServiceError(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	svc.startErr = errTestBroken

	err := RunServer(context.Background(), &ServerOptions{
		ServiceName: "test",
		Service:     svc,
		Signals:     make(chan os.Signal),
		MetricsAddr: "127.0.0.1:0",
	})

	require.ErrorIs(t, err, errTestBroken)
}

func TestRunServerRequiresService(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, RunServer(context.Background(), &ServerOptions{}), errServiceRequired)
}

func TestCreateComponentLogger(t *testing.T) {
	t.Parallel()

	log, err := CreateComponentLogger(context.Background(), "agent", &logger.Config{Level: "info", Output: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, log)

	_, err = CreateComponentLogger(context.Background(), "agent", &logger.Config{Level: "nope"})
	require.Error(t, err)
}
