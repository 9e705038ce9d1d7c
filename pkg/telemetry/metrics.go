// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/virtuals-io/game-go/pkg/errors"
)

// StepMetrics tracks agent loop activity for production monitoring.
type StepMetrics struct {
	// stepCounter tracks steps by agent and action type
	stepCounter metric.Int64Counter

	// functionCounter tracks local function executions by status
	functionCounter metric.Int64Counter

	// apiDuration tracks GAME API request latency by endpoint
	apiDuration metric.Float64Histogram

	// errorCounter tracks errors by code and component
	errorCounter metric.Int64Counter
}

// NewStepMetrics creates a step metrics tracker with OTEL meters.
func NewStepMetrics() (*StepMetrics, error) {
	meter := otel.Meter("game-go/agent")

	stepCounter, err := meter.Int64Counter(
		"game.agent.steps",
		metric.WithDescription("Agent steps by action type"),
	)
	if err != nil {
		return nil, err
	}

	functionCounter, err := meter.Int64Counter(
		"game.functions.executed",
		metric.WithDescription("Local function executions by status"),
	)
	if err != nil {
		return nil, err
	}

	apiDuration, err := meter.Float64Histogram(
		"game.api.request_duration_ms",
		metric.WithDescription("GAME API request duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"game.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &StepMetrics{
		stepCounter:     stepCounter,
		functionCounter: functionCounter,
		apiDuration:     apiDuration,
		errorCounter:    errorCounter,
	}, nil
}

// RecordStep counts one agent step.
func (m *StepMetrics) RecordStep(ctx context.Context, agentID, actionType string) {
	if m == nil {
		return
	}
	m.stepCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrAgentID, agentID),
			attribute.String(AttrActionType, actionType),
		),
	)
}

// RecordFunction counts one local function execution.
func (m *StepMetrics) RecordFunction(ctx context.Context, fnName, status string) {
	if m == nil {
		return
	}
	m.functionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrFunctionName, fnName),
			attribute.String(AttrResultStatus, status),
		),
	)
}

// RecordAPIRequest records the latency of a GAME API request.
func (m *StepMetrics) RecordAPIRequest(ctx context.Context, endpoint string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiDuration.Record(ctx, float64(elapsed.Milliseconds()),
		metric.WithAttributes(
			attribute.String(AttrEndpoint, endpoint),
		),
	)
}

// RecordError counts one error by its taxonomy code.
func (m *StepMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	ge := errors.AsError(err)
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", string(ge.Code)),
			attribute.String("component", component),
			attribute.String("recoverable", ge.RecoverableString()),
		),
	)
}
