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

// Package natsjs publishes point sets to a NATS JetStream subject.
package natsjs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/natsutil"
)

// SubjectPrefix is followed by the agent name when no subject is configured.
const SubjectPrefix = "homeradar.telemetry."

const pingTimeout = 5 * time.Second

// Config selects the connection and subject.
type Config struct {
	natsutil.Config `yaml:",inline"`
	Subject         string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// Message is the JSON body of one published point set.
type Message struct {
	Agent  string         `json:"agent"`
	Points []models.Point `json:"points"`
}

// Writer publishes each point set as one message.
type Writer struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
	agent   string
}

// Open connects and makes sure the stream captures the subject.
func Open(ctx context.Context, cfg *Config, agent string, log logger.Logger) (*Writer, error) {
	nc, err := natsutil.Connect(&cfg.Config, log)
	if err != nil {
		return nil, err
	}

	subject := cfg.Subject
	if subject == "" {
		subject = SubjectPrefix + agent
	}

	js, err := natsutil.JetStream(ctx, nc, &cfg.Config, subject)
	if err != nil {
		nc.Close()

		return nil, err
	}

	return &Writer{nc: nc, js: js, subject: subject, agent: agent}, nil
}

// Write publishes points and waits for the stream acknowledgement.
func (w *Writer) Write(ctx context.Context, points []models.Point) error {
	data, err := json.Marshal(Message{Agent: w.agent, Points: points})
	if err != nil {
		return fmt.Errorf("marshal point set: %w", err)
	}

	if _, err := w.js.Publish(ctx, w.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", w.subject, err)
	}

	return nil
}

// Ping flushes the connection. A context without a deadline gets pingTimeout.
func (w *Writer) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}

	if err := w.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats ping: %w", err)
	}

	return nil
}

// Close drains the connection.
func (w *Writer) Close() error {
	return w.nc.Drain()
}
