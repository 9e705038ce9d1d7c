// Copyright 2026 © The GAME SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package gametest provides a scripted planner and response builders for
// testing agents without the remote GAME API.
package gametest

import (
	"context"
	"sync"

	"github.com/virtuals-io/game-go/pkg/game"
)

// ScenarioPlanner is a scripted game.Planner for testing. It supports
// queued responses, conditional matching, and request capture.
type ScenarioPlanner struct {
	mu           sync.Mutex
	responses    []ScriptedResponse
	currentIndex int
	requests     []game.ActionRequest
	taskRequests []game.TaskActionRequest

	agentID      string
	mapID        string
	submissionID string
	workers      []game.WorkerDef

	defaultError error
}

// ScriptedResponse defines one planner decision in a scenario.
type ScriptedResponse struct {
	Response *game.ActionResponse
	Error    error
	// Condition allows conditional responses based on the request.
	Condition func(req game.ActionRequest) bool
}

// NewScenarioPlanner creates a scenario planner with sensible test ids.
func NewScenarioPlanner() *ScenarioPlanner {
	return &ScenarioPlanner{
		agentID:      "test-agent",
		mapID:        "test-map",
		submissionID: "test-submission",
	}
}

// WithAgentID overrides the agent id returned by CreateAgent.
func (p *ScenarioPlanner) WithAgentID(id string) *ScenarioPlanner {
	p.agentID = id
	return p
}

// WithSubmissionID overrides the submission id returned by SetTask.
func (p *ScenarioPlanner) WithSubmissionID(id string) *ScenarioPlanner {
	p.submissionID = id
	return p
}

// WithDefaultError sets the error returned when no responses remain.
func (p *ScenarioPlanner) WithDefaultError(err error) *ScenarioPlanner {
	p.defaultError = err
	return p
}

// AddResponse queues an action response.
func (p *ScenarioPlanner) AddResponse(resp *game.ActionResponse) *ScenarioPlanner {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{Response: resp})
	return p
}

// AddErrorResponse queues an error.
func (p *ScenarioPlanner) AddErrorResponse(err error) *ScenarioPlanner {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{Error: err})
	return p
}

// AddScriptedResponse queues a fully configured response.
func (p *ScenarioPlanner) AddScriptedResponse(resp ScriptedResponse) *ScenarioPlanner {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, resp)
	return p
}

// CreateAgent returns the configured agent id.
func (p *ScenarioPlanner) CreateAgent(_ context.Context, name, _, _ string) (string, error) {
	if name == "" {
		return "", errEmpty("agent name")
	}
	return p.agentID, nil
}

// CreateWorkers captures the worker definitions and returns the map id.
func (p *ScenarioPlanner) CreateWorkers(_ context.Context, workers []game.WorkerDef) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = append([]game.WorkerDef(nil), workers...)
	return p.mapID, nil
}

// GetAction captures the request and returns the next scripted response.
func (p *ScenarioPlanner) GetAction(_ context.Context, _ string, req game.ActionRequest) (*game.ActionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.next(req)
}

// SetTask returns the configured submission id.
func (p *ScenarioPlanner) SetTask(_ context.Context, _, task string) (string, error) {
	if task == "" {
		return "", errEmpty("task")
	}
	return p.submissionID, nil
}

// GetTaskAction captures the task request and returns the next scripted response.
func (p *ScenarioPlanner) GetTaskAction(_ context.Context, _, _ string, req game.TaskActionRequest) (*game.ActionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskRequests = append(p.taskRequests, req)
	return p.next(game.ActionRequest{Environment: req.Environment, Functions: req.Functions})
}

func (p *ScenarioPlanner) next(req game.ActionRequest) (*game.ActionResponse, error) {
	for p.currentIndex < len(p.responses) {
		resp := p.responses[p.currentIndex]
		p.currentIndex++
		if resp.Condition != nil && !resp.Condition(req) {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Response, nil
	}
	if p.defaultError != nil {
		return nil, p.defaultError
	}
	// Out of script: tell the agent to stand down.
	return NewWait(), nil
}

// Requests returns all captured action requests.
func (p *ScenarioPlanner) Requests() []game.ActionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]game.ActionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// LastRequest returns the most recent action request, or nil.
func (p *ScenarioPlanner) LastRequest() *game.ActionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// TaskRequests returns all captured task action requests.
func (p *ScenarioPlanner) TaskRequests() []game.TaskActionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]game.TaskActionRequest, len(p.taskRequests))
	copy(out, p.taskRequests)
	return out
}

// Workers returns the worker definitions captured by CreateWorkers.
func (p *ScenarioPlanner) Workers() []game.WorkerDef {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]game.WorkerDef, len(p.workers))
	copy(out, p.workers)
	return out
}

// CallCount returns the number of planning calls made.
func (p *ScenarioPlanner) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests) + len(p.taskRequests)
}

// Reset rewinds the script and clears captured requests.
func (p *ScenarioPlanner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentIndex = 0
	p.requests = p.requests[:0]
	p.taskRequests = p.taskRequests[:0]
}

var _ game.Planner = (*ScenarioPlanner)(nil)
