// SPDX-License-Identifier: Apache-2.0

// Package api implements the HTTP client for the remote GAME planning
// service. It handles authentication, retries on transient failures, and
// maps HTTP responses onto the SDK error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gerrors "github.com/virtuals-io/game-go/pkg/errors"
	"github.com/virtuals-io/game-go/pkg/game"
	"github.com/virtuals-io/game-go/pkg/resilience"
	"github.com/virtuals-io/game-go/pkg/telemetry"
)

const (
	// DefaultBaseURL is the production GAME API endpoint.
	DefaultBaseURL = "https://api.virtuals.io"

	defaultTimeout = 30 * time.Second
)

// Client talks to the GAME HTTP API. It implements game.Planner.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	tracer     trace.Tracer
	metrics    *telemetry.StepMetrics
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets a custom API endpoint (for sandboxes or proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRetryConfig overrides the retry behavior.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithCircuitBreaker guards requests with the given circuit breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithMetrics records request latency and error counts on the given tracker.
func WithMetrics(m *telemetry.StepMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a GAME API client. The API key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, gerrors.New(gerrors.CodeConfiguration, "API key not set", nil)
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retry:      resilience.DefaultRetryConfig(),
		tracer:     otel.Tracer("game-go/api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateAgent registers an agent and returns its id.
func (c *Client) CreateAgent(ctx context.Context, name, description, goal string) (string, error) {
	if name == "" {
		return "", gerrors.New(gerrors.CodeValidation, "agent name cannot be empty", nil)
	}

	var resp struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/v2/agents", map[string]interface{}{
		"name":        name,
		"description": description,
		"goal":        goal,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", gerrors.New(gerrors.CodeServer, "agent creation response missing id", nil)
	}
	return resp.ID, nil
}

// CreateWorkers registers the workers and returns the map id.
func (c *Client) CreateWorkers(ctx context.Context, workers []game.WorkerDef) (string, error) {
	if len(workers) == 0 {
		return "", gerrors.New(gerrors.CodeValidation, "at least one worker is required", nil)
	}

	var resp struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/v2/workers", map[string]interface{}{
		"workers": workers,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", gerrors.New(gerrors.CodeServer, "worker creation response missing id", nil)
	}
	return resp.ID, nil
}

// GetAction asks the planner for the agent's next action.
func (c *Client) GetAction(ctx context.Context, agentID string, req game.ActionRequest) (*game.ActionResponse, error) {
	var resp game.ActionResponse
	endpoint := fmt.Sprintf("/v2/agents/%s/actions", url.PathEscape(agentID))
	if err := c.post(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetTask submits a task for a standalone worker.
func (c *Client) SetTask(ctx context.Context, agentID, task string) (string, error) {
	if task == "" {
		return "", gerrors.New(gerrors.CodeValidation, "task cannot be empty", nil)
	}

	var resp struct {
		SubmissionID string `json:"submission_id"`
	}
	endpoint := fmt.Sprintf("/v2/agents/%s/tasks", url.PathEscape(agentID))
	if err := c.post(ctx, endpoint, map[string]interface{}{"task": task}, &resp); err != nil {
		return "", err
	}
	if resp.SubmissionID == "" {
		return "", gerrors.New(gerrors.CodeServer, "task submission response missing submission_id", nil)
	}
	return resp.SubmissionID, nil
}

// GetTaskAction asks the planner for the next action on a task.
func (c *Client) GetTaskAction(ctx context.Context, agentID, submissionID string, req game.TaskActionRequest) (*game.ActionResponse, error) {
	var resp game.ActionResponse
	endpoint := fmt.Sprintf("/v2/agents/%s/tasks/%s/next",
		url.PathEscape(agentID), url.PathEscape(submissionID))
	if err := c.post(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// envelope is the standard GAME API response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// post sends one JSON request with retry applied to transient failures.
// Non-recoverable errors (auth, validation) abort immediately.
func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return gerrors.New(gerrors.CodeValidation, "failed to encode request payload", err).
			WithContext("endpoint", endpoint)
	}

	return c.retry.Do(ctx, func() error {
		if c.breaker != nil {
			return c.breaker.Call(ctx, func() error {
				return c.doPost(ctx, endpoint, body, out)
			})
		}
		return c.doPost(ctx, endpoint, body, out)
	})
}

func (c *Client) doPost(ctx context.Context, endpoint string, body []byte, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "game.api.post",
		trace.WithAttributes(telemetry.APIAttributes(endpoint, 0)...))
	defer span.End()

	start := time.Now()
	err := c.doPostInner(ctx, endpoint, body, out)
	c.metrics.RecordAPIRequest(ctx, endpoint, time.Since(start))

	if err != nil {
		c.metrics.RecordError(ctx, err, "api")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) doPostInner(ctx context.Context, endpoint string, body []byte, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return gerrors.New(gerrors.CodeInternal, "failed to create http request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ue, ok := err.(*url.Error); ok && ue.Timeout() {
			return gerrors.New(gerrors.CodeTimeout, "request timed out", err).
				WithContext("endpoint", endpoint)
		}
		return gerrors.New(gerrors.CodeNetwork, "connection failed", err).
			WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gerrors.New(gerrors.CodeNetwork, "failed to read response body", err).
			WithContext("endpoint", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, endpoint, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return gerrors.New(gerrors.CodeServer, "invalid JSON response", err).
			WithContext("endpoint", endpoint)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return gerrors.New(gerrors.CodeServer, "unexpected response shape", err).
			WithContext("endpoint", endpoint)
	}
	return nil
}

// statusError maps a non-2xx response to the error taxonomy, preferring the
// server-provided message for validation failures.
func (c *Client) statusError(status int, endpoint string, body []byte) error {
	msg := http.StatusText(status)

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		msg = env.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		msg = "invalid API key"
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded"
	}

	return gerrors.FromStatusCode(status, msg, nil).
		WithContext("endpoint", endpoint)
}

var _ game.Planner = (*Client)(nil)
