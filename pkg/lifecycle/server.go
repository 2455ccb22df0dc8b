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
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	httpx "github.com/carverauto/homeradar/pkg/http"
	"github.com/carverauto/homeradar/pkg/logger"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

var errServiceRequired = errors.New("lifecycle: service is required")

// Service is a long running component. Start blocks until the service exits.
// Stop asks the service to finish its current unit of work and return from Start.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	ServiceName     string
	Service         Service
	Logger          logger.Logger
	MetricsAddr     string
	Gatherer        prometheus.Gatherer
	ShutdownTimeout time.Duration
	// Signals overrides the process signal channel, used by tests.
	Signals <-chan os.Signal
}

// RunServer runs the service until it returns on its own or a signal ends it.
//
// The first SIGTERM calls Service.Stop so the service can finish the work in
// flight. SIGINT, or a second SIGTERM, cancels the context passed to Start.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	if opts == nil || opts.Service == nil {
		return errServiceRequired
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, syscall.SIGTERM, os.Interrupt)
		defer signal.Stop(ch)

		sigCh = ch
	}

	ctx, abort := context.WithCancel(ctx)
	defer abort()

	g, gctx := errgroup.WithContext(ctx)
	serviceDone := make(chan struct{})

	g.Go(func() error {
		defer close(serviceDone)

		log.Info().Str("service", opts.ServiceName).Msg("Starting service")

		err := opts.Service.Start(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", opts.ServiceName, err)
		}

		log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

		return nil
	})

	g.Go(func() error {
		watchSignals(gctx, sigCh, serviceDone, opts, log, abort, g)
		return nil
	})

	if opts.MetricsAddr != "" {
		startMetricsServer(gctx, g, serviceDone, opts, log)
	}

	return g.Wait()
}

func watchSignals(
	ctx context.Context,
	sigCh <-chan os.Signal,
	serviceDone <-chan struct{},
	opts *ServerOptions,
	log logger.Logger,
	abort context.CancelFunc,
	g *errgroup.Group,
) {
	stopping := false

	for {
		select {
		case <-serviceDone:
			return
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			if sig == syscall.SIGTERM && !stopping {
				stopping = true

				log.Info().Str("signal", sig.String()).Msg("Received termination signal, finishing current cycle")

				// Stop blocks until the cycle ends; keep reading signals meanwhile.
				g.Go(func() error {
					stopService(opts, log)
					return nil
				})

				continue
			}

			log.Info().Str("signal", sig.String()).Msg("Received keyboard interrupt. Exiting...")
			abort()

			return
		}
	}
}

func stopService(opts *ServerOptions, log logger.Logger) {
	stopCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()

	if err := opts.Service.Stop(stopCtx); err != nil {
		log.Warn().Err(err).Msg("Service stop returned an error")
	}
}

func startMetricsServer(
	ctx context.Context,
	g *errgroup.Group,
	serviceDone <-chan struct{},
	opts *ServerOptions,
	log logger.Logger,
) {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", httpx.HealthHandler(func() bool {
		select {
		case <-serviceDone:
			return false
		default:
			return true
		}
	}))

	srv := &http.Server{
		Addr:              opts.MetricsAddr,
		Handler:           httpx.CommonMiddleware(mux, log),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g.Go(func() error {
		log.Info().Str("addr", opts.MetricsAddr).Msg("Serving metrics")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		select {
		case <-serviceDone:
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})
}
