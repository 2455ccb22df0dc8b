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

// Package kasa switches TP-Link Kasa smart plugs through the Kasa cloud API.
package kasa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/carverauto/homeradar/pkg/logger"
	"github.com/carverauto/homeradar/pkg/models"
)

const (
	loginInitialBackoff = time.Second
	loginMaxBackoff     = 30 * time.Second
)

// HTTPClient defines the interface for HTTP operations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Kasa cloud account. It satisfies actuator.Outlet.
type Client struct {
	cfg        Config
	httpClient HTTPClient
	logger     logger.Logger

	initialBackoff time.Duration

	mu      sync.Mutex
	token   string
	servers map[string]string
}

// NewClient creates a client. cfg must have been validated.
func NewClient(cfg *Config, httpClient HTTPClient, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	c := &Client{
		cfg:            *cfg,
		httpClient:     httpClient,
		logger:         log,
		initialBackoff: loginInitialBackoff,
		servers:        make(map[string]string),
	}

	if c.cfg.TerminalUUID == "" {
		c.cfg.TerminalUUID = uuid.New().String()
	}

	return c
}

// Login obtains a token, retrying transient failures with exponential backoff.
// Rejected credentials are not retried.
func (c *Client) Login(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxInterval = loginMaxBackoff

	operation := func() (string, error) {
		token, err := c.login(ctx)
		if err != nil {
			if errors.Is(err, ErrAuthFailed) {
				return "", backoff.Permanent(err)
			}

			c.logger.Warn().Err(err).Msg("Kasa login failed, retrying")

			return "", err
		}

		return token, nil
	}

	token, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(c.cfg.LoginMaxElapsed.Std()))
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.logger.Info().Str("url", c.cfg.URL).Msg("Logged in to Kasa cloud")

	return nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	var result loginResult

	err := c.call(ctx, c.cfg.URL, "", &request{
		Method: methodLogin,
		Params: loginParams{
			AppType:       appType,
			CloudUserName: c.cfg.Username,
			CloudPassword: c.cfg.Password,
			TerminalUUID:  c.cfg.TerminalUUID,
		},
	}, &result)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeBadCredentials {
			return "", fmt.Errorf("%w: %s", ErrAuthFailed, apiErr.Message)
		}

		return "", err
	}

	if result.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuthFailed)
	}

	return result.Token, nil
}

// ListDevices returns the devices bound to the account.
func (c *Client) ListDevices(ctx context.Context) ([]models.OutletDevice, error) {
	var result deviceListResult

	if err := c.authorized(ctx, c.cfg.URL, &request{Method: methodGetDeviceList}, &result); err != nil {
		return nil, err
	}

	devices := make([]models.OutletDevice, 0, len(result.DeviceList))

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range result.DeviceList {
		if d.AppServerURL != "" {
			c.servers[d.DeviceID] = d.AppServerURL
		}

		devices = append(devices, models.OutletDevice{
			ID:     d.DeviceID,
			Alias:  d.Alias,
			Model:  d.DeviceModel,
			Online: d.Status == statusOnline,
		})
	}

	return devices, nil
}

// SetOutletState switches the relay of deviceID.
func (c *Client) SetOutletState(ctx context.Context, deviceID string, on bool) error {
	var relay relayRequest
	if on {
		relay.System.SetRelayState.State = 1
	}

	data, err := json.Marshal(relay)
	if err != nil {
		return err
	}

	c.mu.Lock()
	server, ok := c.servers[deviceID]
	c.mu.Unlock()

	if !ok {
		server = c.cfg.URL
	}

	var result passthroughResult

	err = c.authorized(ctx, server, &request{
		Method: methodPassthrough,
		Params: passthroughParams{DeviceID: deviceID, RequestData: string(data)},
	}, &result)
	if err != nil {
		return err
	}

	if result.ResponseData == "" {
		return nil
	}

	var resp relayResponse
	if err := json.Unmarshal([]byte(result.ResponseData), &resp); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}

	if code := resp.System.SetRelayState.ErrCode; code != 0 {
		return fmt.Errorf("%w: err_code %d %s", ErrDeviceCommand, code, resp.System.SetRelayState.ErrMsg)
	}

	return nil
}

// authorized calls the API with the current token and logs in again once
// when the token has expired.
func (c *Client) authorized(ctx context.Context, server string, req *request, out interface{}) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return errNotLoggedIn
	}

	err := c.call(ctx, server, token, req, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != codeTokenExpired {
		return err
	}

	c.logger.Info().Msg("Kasa token expired, logging in again")

	token, err = c.login(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return c.call(ctx, server, token, req, out)
}

func (c *Client) call(ctx context.Context, server, token string, req *request, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	endpoint := server
	if token != "" {
		endpoint = server + "?" + url.Values{"token": {token}}.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("kasa %s: %w", req.Method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("%w: %d, response: %s", errUnexpectedStatusCode, resp.StatusCode, string(bodyBytes))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode kasa %s response: %w", req.Method, err)
	}

	if r.ErrorCode != 0 {
		return &APIError{Method: req.Method, Code: r.ErrorCode, Message: r.Message}
	}

	if out == nil || len(r.Result) == 0 {
		return nil
	}

	return json.Unmarshal(r.Result, out)
}

// APIError is a non-zero error_code answer.
type APIError struct {
	Method  string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s error_code %d: %s", ErrAPI, e.Method, e.Code, e.Message)
}

func (*APIError) Unwrap() error {
	return ErrAPI
}
