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

// Package events publishes actuation transitions as CloudEvents on JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
	"github.com/carverauto/homeradar/pkg/natsutil"
)

const (
	// DefaultSubject carries actuation events.
	DefaultSubject = "homeradar.events.actuation"

	actuationEventType = "com.carverauto.homeradar.actuation"
)

// Config selects where events go.
type Config struct {
	natsutil.Config `yaml:",inline"`
	Subject         string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js      jetstream.JetStream
	subject string
	source  string
	logger  logger.Logger
}

// NewEventPublisher creates a publisher for subject. source names the agent.
func NewEventPublisher(js jetstream.JetStream, subject, source string, log logger.Logger) *EventPublisher {
	if subject == "" {
		subject = DefaultSubject
	}

	return &EventPublisher{
		js:      js,
		subject: subject,
		source:  source,
		logger:  log,
	}
}

// Connect dials NATS, prepares the stream and returns a publisher. The
// caller closes the connection.
func Connect(ctx context.Context, cfg *Config, source string, log logger.Logger) (*EventPublisher, *nats.Conn, error) {
	nc, err := natsutil.Connect(&cfg.Config, log)
	if err != nil {
		return nil, nil, err
	}

	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	js, err := natsutil.JetStream(ctx, nc, &cfg.Config, subject)
	if err != nil {
		nc.Close()

		return nil, nil, err
	}

	return NewEventPublisher(js, subject, source, log), nc, nil
}

// NotifyTransition publishes one actuation event.
func (p *EventPublisher) NotifyTransition(ctx context.Context, t *models.Transition) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          "homeradar/" + p.source,
		Type:            actuationEventType,
		DataContentType: "application/json",
		Subject:         p.subject,
		Time:            &t.Timestamp,
		Data:            t,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal actuation event: %w", err)
	}

	ack, err := p.js.Publish(ctx, p.subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish actuation event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", p.subject).
		Uint64("seq", ack.Sequence).
		Msg("Published actuation event")

	return nil
}
