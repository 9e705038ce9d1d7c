// Copyright 2026 © The GAME SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration for GAME agents:
// tracing, metrics, and trace-aware structured logging.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for GAME SDK telemetry.
const (
	// Agent attributes
	AttrAgentID   = "game.agent.id"
	AttrAgentName = "game.agent.name"
	AttrAgentGoal = "game.agent.goal"

	// Session attributes
	AttrSessionID = "game.session.id"
	AttrStep      = "game.session.step"

	// Worker attributes
	AttrWorkerID     = "game.worker.id"
	AttrWorkerCount  = "game.workers.count"
	AttrTaskID       = "game.task.submission_id"
	AttrCurrentTask  = "game.task.current"
	AttrActionSpace  = "game.worker.action_space"

	// Action attributes
	AttrActionType   = "game.action.type"
	AttrActionID     = "game.action.id"
	AttrFunctionName = "game.function.name"
	AttrResultStatus = "game.function.status"

	// API attributes
	AttrEndpoint   = "game.api.endpoint"
	AttrStatusCode = "game.api.status_code"
	AttrAttempt    = "game.api.attempt"
)

// AgentAttributes returns common attributes for agent spans.
func AgentAttributes(agentID, name, sessionID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAgentID, agentID),
	}
	if name != "" {
		attrs = append(attrs, attribute.String(AttrAgentName, name))
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	return attrs
}

// StepAttributes returns attributes for a single agent step span.
func StepAttributes(workerID string, step int, actionType string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrStep, step),
	}
	if workerID != "" {
		attrs = append(attrs, attribute.String(AttrWorkerID, workerID))
	}
	if actionType != "" {
		attrs = append(attrs, attribute.String(AttrActionType, actionType))
	}
	return attrs
}

// FunctionAttributes returns attributes for a local function execution span.
func FunctionAttributes(name, actionID, status string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrFunctionName, name),
	}
	if actionID != "" {
		attrs = append(attrs, attribute.String(AttrActionID, actionID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(AttrResultStatus, status))
	}
	return attrs
}

// APIAttributes returns attributes for a GAME API request span.
func APIAttributes(endpoint string, statusCode int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrEndpoint, endpoint),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(AttrStatusCode, statusCode))
	}
	return attrs
}

// TaskAttributes returns attributes for standalone worker task spans.
func TaskAttributes(submissionID, currentTask string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if submissionID != "" {
		attrs = append(attrs, attribute.String(AttrTaskID, submissionID))
	}
	if currentTask != "" {
		if len(currentTask) > 200 {
			currentTask = currentTask[:200] + "..."
		}
		attrs = append(attrs, attribute.String(AttrCurrentTask, currentTask))
	}
	return attrs
}
