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

// Package natsutil connects to NATS and prepares JetStream streams.
package natsutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/homeradar/pkg/logger"
)

// Config describes a NATS connection and the stream messages land in.
type Config struct {
	URL      string     `json:"url" yaml:"url"`
	Stream   string     `json:"stream" yaml:"stream"`
	Subjects []string   `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	Domain   string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	Name     string     `json:"name,omitempty" yaml:"name,omitempty"`
	TLS      *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// Connect opens a NATS connection with logging handlers and TLS when configured.
func Connect(cfg *Config, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	var opts []nats.Option

	if cfg.TLS != nil {
		tlsConf, err := cfg.TLS.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	opts = append(opts,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// JetStream returns a JetStream context whose stream covers subject,
// creating or widening the stream as needed.
func JetStream(ctx context.Context, nc *nats.Conn, cfg *Config, subject string) (jetstream.JetStream, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := EnsureStream(ctx, js, cfg.Stream, cfg.Subjects, subject); err != nil {
		return nil, err
	}

	return js, nil
}

// EnsureStream makes sure stream exists and captures subject.
func EnsureStream(ctx context.Context, js jetstream.JetStream, stream string, subjects []string, subject string) error {
	s, err := js.Stream(ctx, stream)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to get stream %s: %w", stream, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: ensureSubjectList(subjects, subject),
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", stream, err)
		}

		return nil
	}

	current := s.CachedInfo().Config
	wanted := ensureSubjectList(append([]string(nil), current.Subjects...), subject)

	if len(wanted) == len(current.Subjects) {
		return nil
	}

	current.Subjects = wanted

	if _, err := js.UpdateStream(ctx, current); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", subject, stream, err)
	}

	return nil
}

func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern, which may hold * and > wildcards,
// matches subject.
func matchesSubject(pattern, subject string) bool {
	p := strings.Split(pattern, ".")
	s := strings.Split(subject, ".")

	for i, token := range p {
		if token == ">" {
			return len(s) > i
		}

		if i >= len(s) {
			return false
		}

		if token != "*" && token != s[i] {
			return false
		}
	}

	return len(p) == len(s)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
