// Copyright 2026 © The GAME SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the high-level agent loop: workers and their
// action spaces are registered with the remote GAME planner, and each step
// reports the last result, receives the next action, and executes it
// locally.
package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/virtuals-io/game-go/pkg/audit"
	"github.com/virtuals-io/game-go/pkg/errors"
	"github.com/virtuals-io/game-go/pkg/game"
	"github.com/virtuals-io/game-go/pkg/telemetry"
)

const protocolVersion = "v2"

// Agent drives the plan/act loop for a set of workers. Planning is remote;
// function execution and state upkeep are local.
type Agent struct {
	planner     game.Planner
	name        string
	description string
	goal        string
	stateFn     game.StateFn

	workers []*WorkerConfig
	byID    map[string]*WorkerConfig

	agentID string
	mapID   string
	session *Session

	currentWorkerID string
	agentState      map[string]interface{}
	workerStates    map[string]map[string]interface{}

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.StepMetrics
	store   audit.Store
	step    int
}

// Option configures an Agent instance.
type Option func(*Agent) error

// WithWorker adds a worker to the agent. Workers keep registration order;
// the first one becomes the initial location.
func WithWorker(wc WorkerConfig) Option {
	return func(a *Agent) error {
		return a.addWorker(wc)
	}
}

// WithWorkers adds several workers in order.
func WithWorkers(wcs ...WorkerConfig) Option {
	return func(a *Agent) error {
		for _, wc := range wcs {
			if err := a.addWorker(wc); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithLogger sets the structured logger used by the loop.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// WithMetrics attaches a step metrics tracker.
func WithMetrics(m *telemetry.StepMetrics) Option {
	return func(a *Agent) error {
		a.metrics = m
		return nil
	}
}

// WithAuditStore records every step into the given store.
func WithAuditStore(store audit.Store) Option {
	return func(a *Agent) error {
		a.store = store
		return nil
	}
}

// New validates the configuration and registers the agent with the
// planner. Workers are registered later by Compile.
func New(ctx context.Context, planner game.Planner, name, description, goal string, stateFn game.StateFn, opts ...Option) (*Agent, error) {
	if planner == nil {
		return nil, errors.New(errors.CodeConfiguration, "planner is required", nil)
	}
	if name == "" {
		return nil, errors.New(errors.CodeValidation, "agent name is required", nil)
	}

	initialState, err := game.ValidateStateFn(stateFn)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		planner:      planner,
		name:         name,
		description:  description,
		goal:         goal,
		stateFn:      stateFn,
		byID:         make(map[string]*WorkerConfig),
		agentState:   initialState,
		workerStates: make(map[string]map[string]interface{}),
		logger:       slog.Default(),
		tracer:       otel.Tracer("game-go/agent"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	agentID, err := planner.CreateAgent(ctx, name, description, goal)
	if err != nil {
		return nil, err
	}
	a.agentID = agentID

	a.logger.InfoContext(ctx, "agent registered",
		slog.String("agent_id", agentID),
		slog.String("agent_name", name),
	)
	return a, nil
}

func (a *Agent) addWorker(wc WorkerConfig) error {
	if err := wc.Validate(); err != nil {
		return err
	}
	if _, exists := a.byID[wc.ID]; exists {
		return errors.New(errors.CodeValidation, "duplicate worker id", nil).
			WithContext("worker_id", wc.ID)
	}
	cfg := wc
	a.workers = append(a.workers, &cfg)
	a.byID[cfg.ID] = &cfg
	return nil
}

// AddWorker registers an additional worker. It must be called before
// Compile.
func (a *Agent) AddWorker(wc WorkerConfig) error {
	if a.mapID != "" {
		return errors.New(errors.CodeState, "cannot add workers after compile", nil)
	}
	return a.addWorker(wc)
}

// ID returns the remote agent id.
func (a *Agent) ID() string { return a.agentID }

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// CurrentWorkerID returns the worker the agent is currently located at.
func (a *Agent) CurrentWorkerID() string { return a.currentWorkerID }

// State returns the agent's current opaque state.
func (a *Agent) State() map[string]interface{} { return a.agentState }

// Worker returns the configuration of the named worker.
func (a *Agent) Worker(id string) (*WorkerConfig, bool) {
	wc, ok := a.byID[id]
	return wc, ok
}

// Compile registers the workers with the planner and initializes the loop:
// the first worker becomes the current location and every worker's state
// function produces its initial state.
func (a *Agent) Compile(ctx context.Context) error {
	if len(a.workers) == 0 {
		return errors.New(errors.CodeValidation, "agent has no workers", nil)
	}

	defs := make([]game.WorkerDef, 0, len(a.workers))
	for _, wc := range a.workers {
		defs = append(defs, wc.Def())
	}
	mapID, err := a.planner.CreateWorkers(ctx, defs)
	if err != nil {
		return err
	}
	a.mapID = mapID
	a.currentWorkerID = a.workers[0].ID

	for _, wc := range a.workers {
		state, err := wc.InitialState()
		if err != nil {
			return err
		}
		a.workerStates[wc.ID] = state
	}

	a.session = NewSession()
	a.step = 0

	a.logger.InfoContext(ctx, "agent compiled",
		slog.String("agent_id", a.agentID),
		slog.String("map_id", mapID),
		slog.Int("workers", len(a.workers)),
		slog.String("session_id", a.session.ID),
	)
	return nil
}

// Reset starts a fresh session: new session id, blank last result, agent
// and worker states recomputed from scratch, location back to the first
// worker.
func (a *Agent) Reset() error {
	if a.session == nil {
		return errors.New(errors.CodeState, "agent is not compiled", nil)
	}
	a.session.Reset()
	a.step = 0

	initial, err := game.ValidateStateFn(a.stateFn)
	if err != nil {
		return err
	}
	a.agentState = initial

	for _, wc := range a.workers {
		state, err := wc.InitialState()
		if err != nil {
			return err
		}
		a.workerStates[wc.ID] = state
	}
	a.currentWorkerID = a.workers[0].ID
	return nil
}

// Step reports the previous result to the planner, receives the next
// action, and executes it. It returns the planner's response.
func (a *Agent) Step(ctx context.Context) (*game.ActionResponse, error) {
	if a.session == nil {
		return nil, errors.New(errors.CodeState, "agent is not compiled", nil)
	}

	a.step++
	started := time.Now().UTC()

	ctx, span := a.tracer.Start(ctx, "game.agent.step",
		trace.WithAttributes(telemetry.AgentAttributes(a.agentID, a.name, a.session.ID)...))
	span.SetAttributes(telemetry.StepAttributes(a.currentWorkerID, a.step, "")...)
	defer span.End()

	current := a.byID[a.currentWorkerID]
	req := game.ActionRequest{
		Location:      a.currentWorkerID,
		MapID:         a.mapID,
		Environment:   a.workerStates[a.currentWorkerID],
		Functions:     current.Def().ActionSpace,
		AgentState:    a.agentState,
		CurrentAction: a.session.FunctionResult,
		Version:       protocolVersion,
	}

	resp, err := a.planner.GetAction(ctx, a.agentID, req)
	if err != nil {
		a.metrics.RecordError(ctx, err, "agent")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(telemetry.StepAttributes(a.currentWorkerID, a.step, string(resp.ActionType))...)
	a.metrics.RecordStep(ctx, a.agentID, string(resp.ActionType))

	event := audit.StepEvent{
		SessionID:  a.session.ID,
		AgentID:    a.agentID,
		WorkerID:   a.currentWorkerID,
		Step:       a.step,
		ActionType: string(resp.ActionType),
		StartedAt:  started,
	}

	dispatchErr := a.dispatch(ctx, resp, &event)

	// Agent state only advances on a clean dispatch. A failed step leaves
	// the previous state in place so the next step starts from it.
	if dispatchErr == nil {
		if next := a.stateFn(a.session.FunctionResult, a.agentState); next != nil {
			a.agentState = next
		} else {
			dispatchErr = errors.New(errors.CodeState, "agent state function returned nil", nil)
		}
	}

	event.State = a.agentState
	event.FinishedAt = time.Now().UTC()
	if dispatchErr != nil {
		event.Error = dispatchErr.Error()
	}
	a.recordEvent(ctx, event)

	a.logger.InfoContext(ctx, "agent step",
		slog.String("agent_id", a.agentID),
		slog.String("session_id", a.session.ID),
		slog.Int("step", a.step),
		slog.String("worker_id", a.currentWorkerID),
		slog.String("action_type", string(resp.ActionType)),
	)

	if dispatchErr != nil {
		a.metrics.RecordError(ctx, dispatchErr, "agent")
		span.RecordError(dispatchErr)
		span.SetStatus(codes.Error, dispatchErr.Error())
		return resp, dispatchErr
	}
	return resp, nil
}

// dispatch executes the planner-selected action locally.
func (a *Agent) dispatch(ctx context.Context, resp *game.ActionResponse, event *audit.StepEvent) error {
	switch resp.ActionType {
	case game.ActionCallFunction, game.ActionContinueFunction:
		return a.executeFunction(ctx, resp, event)

	case game.ActionGoTo:
		if resp.ActionArgs == nil || resp.ActionArgs.LocationID == "" {
			return errors.New(errors.CodeValidation, "go_to action missing location_id", nil)
		}
		target := resp.ActionArgs.LocationID
		if _, ok := a.byID[target]; !ok {
			return errors.New(errors.CodeValidation, "unknown worker location", nil).
				WithContext("location_id", target)
		}
		a.currentWorkerID = target
		return nil

	case game.ActionWait:
		return nil

	default:
		return errors.New(errors.CodeServer, "unknown action type", nil).
			WithContext("action_type", string(resp.ActionType))
	}
}

func (a *Agent) executeFunction(ctx context.Context, resp *game.ActionResponse, event *audit.StepEvent) error {
	if resp.ActionArgs == nil || resp.ActionArgs.FnName == "" {
		return errors.New(errors.CodeValidation, "function action missing fn_name", nil)
	}

	current := a.byID[a.currentWorkerID]
	fn, ok := current.Function(resp.ActionArgs.FnName)
	if !ok {
		return errors.New(errors.CodeValidation, "function not in action space", nil).
			WithContext("fn_name", resp.ActionArgs.FnName).
			WithContext("worker_id", a.currentWorkerID)
	}

	fnCtx, fnSpan := a.tracer.Start(ctx, "game.function.execute",
		trace.WithAttributes(telemetry.FunctionAttributes(fn.Name, resp.ActionArgs.ID, "")...))
	result := fn.ExecuteFromAction(fnCtx, resp.ActionArgs.ID, resp.ActionArgs.Args)
	fnSpan.SetAttributes(telemetry.FunctionAttributes(fn.Name, result.ActionID, string(result.Status))...)
	fnSpan.End()

	a.metrics.RecordFunction(ctx, fn.Name, string(result.Status))
	a.session.FunctionResult = result

	event.ActionID = result.ActionID
	event.FunctionName = fn.Name
	event.Status = string(result.Status)
	event.FeedbackMessage = result.FeedbackMessage

	next, err := current.NextState(result, a.workerStates[current.ID])
	if err != nil {
		return err
	}
	a.workerStates[current.ID] = next
	return nil
}

func (a *Agent) recordEvent(ctx context.Context, event audit.StepEvent) {
	if a.store == nil {
		return
	}
	if err := a.store.Record(ctx, event); err != nil {
		a.logger.WarnContext(ctx, "failed to record step event",
			slog.String("session_id", event.SessionID),
			slog.Int("step", event.Step),
			slog.String("error", err.Error()),
		)
	}
}

// Run drives the loop in a fresh session until the context is canceled,
// maxSteps is reached (0 means unbounded), or a step fails with a
// non-recoverable error. Recoverable errors are logged and retried on the
// next iteration.
func (a *Agent) Run(ctx context.Context, maxSteps int) error {
	if a.session == nil {
		return errors.New(errors.CodeState, "agent is not compiled", nil)
	}
	if err := a.Reset(); err != nil {
		return err
	}

	for step := 0; maxSteps == 0 || step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			return errors.New(errors.CodeTimeout, "run canceled", ctx.Err())
		default:
		}

		if _, err := a.Step(ctx); err != nil {
			if !errors.IsRecoverable(err) {
				return err
			}
			a.logger.WarnContext(ctx, "recoverable step failure",
				slog.Int("step", a.step),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
