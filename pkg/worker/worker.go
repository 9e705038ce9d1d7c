// Copyright 2026 © The GAME SDK Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker runs a single worker without the full agent loop. The
// worker is registered as its own remote agent and driven task by task
// through the planner's task endpoints.
package worker

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/virtuals-io/game-go/pkg/agent"
	"github.com/virtuals-io/game-go/pkg/audit"
	"github.com/virtuals-io/game-go/pkg/errors"
	"github.com/virtuals-io/game-go/pkg/game"
	"github.com/virtuals-io/game-go/pkg/telemetry"
)

// Worker executes tasks against a single action space. Each task is
// submitted to the planner, then stepped until the planner returns wait.
type Worker struct {
	planner game.Planner
	cfg     agent.WorkerConfig

	agentID      string
	submissionID string
	state        map[string]interface{}
	lastResult   *game.FunctionResult
	step         int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.StepMetrics
	store   audit.Store
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics attaches a step metrics tracker.
func WithMetrics(m *telemetry.StepMetrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithAuditStore records every task step into the given store.
func WithAuditStore(store audit.Store) Option {
	return func(w *Worker) {
		w.store = store
	}
}

// New validates the configuration and registers the worker as a remote
// agent.
func New(ctx context.Context, planner game.Planner, cfg agent.WorkerConfig, opts ...Option) (*Worker, error) {
	if planner == nil {
		return nil, errors.New(errors.CodeConfiguration, "planner is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	state, err := cfg.InitialState()
	if err != nil {
		return nil, err
	}

	w := &Worker{
		planner: planner,
		cfg:     cfg,
		state:   state,
		logger:  slog.Default(),
		tracer:  otel.Tracer("game-go/worker"),
	}
	for _, opt := range opts {
		opt(w)
	}

	agentID, err := planner.CreateAgent(ctx, cfg.ID, cfg.Description, cfg.Instruction)
	if err != nil {
		return nil, err
	}
	w.agentID = agentID

	w.logger.InfoContext(ctx, "standalone worker registered",
		slog.String("agent_id", agentID),
		slog.String("worker_id", cfg.ID),
	)
	return w, nil
}

// ID returns the remote agent id backing the worker.
func (w *Worker) ID() string { return w.agentID }

// State returns the worker's current environment state.
func (w *Worker) State() map[string]interface{} { return w.state }

// SetTask submits a task and prepares the worker to step through it.
func (w *Worker) SetTask(ctx context.Context, task string) (string, error) {
	if task == "" {
		return "", errors.New(errors.CodeValidation, "task cannot be empty", nil)
	}
	submissionID, err := w.planner.SetTask(ctx, w.agentID, task)
	if err != nil {
		return "", err
	}
	w.submissionID = submissionID
	w.lastResult = nil
	w.step = 0

	w.logger.InfoContext(ctx, "task submitted",
		slog.String("worker_id", w.cfg.ID),
		slog.String("submission_id", submissionID),
	)
	return submissionID, nil
}

// Step asks the planner for the next action on the current task and
// executes it. It returns the planner's response; a wait response means
// the task is finished.
func (w *Worker) Step(ctx context.Context) (*game.ActionResponse, error) {
	if w.submissionID == "" {
		return nil, errors.New(errors.CodeState, "no task submitted", nil)
	}

	w.step++
	started := time.Now().UTC()

	ctx, span := w.tracer.Start(ctx, "game.worker.step",
		trace.WithAttributes(telemetry.TaskAttributes(w.submissionID, "")...))
	span.SetAttributes(telemetry.StepAttributes(w.cfg.ID, w.step, "")...)
	defer span.End()

	req := game.TaskActionRequest{
		Environment:  w.state,
		Functions:    w.cfg.Def().ActionSpace,
		ActionResult: w.lastResult,
	}
	resp, err := w.planner.GetTaskAction(ctx, w.agentID, w.submissionID, req)
	if err != nil {
		w.metrics.RecordError(ctx, err, "worker")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(telemetry.StepAttributes(w.cfg.ID, w.step, string(resp.ActionType))...)
	w.metrics.RecordStep(ctx, w.agentID, string(resp.ActionType))

	event := audit.StepEvent{
		SessionID:  w.submissionID,
		AgentID:    w.agentID,
		WorkerID:   w.cfg.ID,
		Step:       w.step,
		ActionType: string(resp.ActionType),
		StartedAt:  started,
	}

	dispatchErr := w.dispatch(ctx, resp, &event)

	event.State = w.state
	event.FinishedAt = time.Now().UTC()
	if dispatchErr != nil {
		event.Error = dispatchErr.Error()
	}
	w.recordEvent(ctx, event)

	w.logger.InfoContext(ctx, "task step",
		slog.String("worker_id", w.cfg.ID),
		slog.String("submission_id", w.submissionID),
		slog.Int("step", w.step),
		slog.String("action_type", string(resp.ActionType)),
	)

	if dispatchErr != nil {
		w.metrics.RecordError(ctx, dispatchErr, "worker")
		span.RecordError(dispatchErr)
		span.SetStatus(codes.Error, dispatchErr.Error())
		return resp, dispatchErr
	}
	return resp, nil
}

func (w *Worker) dispatch(ctx context.Context, resp *game.ActionResponse, event *audit.StepEvent) error {
	switch resp.ActionType {
	case game.ActionCallFunction, game.ActionContinueFunction:
		return w.executeFunction(ctx, resp, event)

	case game.ActionWait:
		return nil

	default:
		// go_to has no meaning without other locations.
		return errors.New(errors.CodeServer, "unexpected action type for task", nil).
			WithContext("action_type", string(resp.ActionType))
	}
}

func (w *Worker) executeFunction(ctx context.Context, resp *game.ActionResponse, event *audit.StepEvent) error {
	if resp.ActionArgs == nil || resp.ActionArgs.FnName == "" {
		return errors.New(errors.CodeValidation, "function action missing fn_name", nil)
	}
	fn, ok := w.cfg.Function(resp.ActionArgs.FnName)
	if !ok {
		return errors.New(errors.CodeValidation, "function not in action space", nil).
			WithContext("fn_name", resp.ActionArgs.FnName).
			WithContext("worker_id", w.cfg.ID)
	}

	fnCtx, fnSpan := w.tracer.Start(ctx, "game.function.execute",
		trace.WithAttributes(telemetry.FunctionAttributes(fn.Name, resp.ActionArgs.ID, "")...))
	result := fn.ExecuteFromAction(fnCtx, resp.ActionArgs.ID, resp.ActionArgs.Args)
	fnSpan.SetAttributes(telemetry.FunctionAttributes(fn.Name, result.ActionID, string(result.Status))...)
	fnSpan.End()

	w.metrics.RecordFunction(ctx, fn.Name, string(result.Status))
	w.lastResult = result

	event.ActionID = result.ActionID
	event.FunctionName = fn.Name
	event.Status = string(result.Status)
	event.FeedbackMessage = result.FeedbackMessage

	next, err := w.cfg.NextState(result, w.state)
	if err != nil {
		return err
	}
	w.state = next
	return nil
}

func (w *Worker) recordEvent(ctx context.Context, event audit.StepEvent) {
	if w.store == nil {
		return
	}
	if err := w.store.Record(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to record task step event",
			slog.String("submission_id", event.SessionID),
			slog.Int("step", event.Step),
			slog.String("error", err.Error()),
		)
	}
}

// Run submits the task and steps until the planner returns wait, the
// context is canceled, or a non-recoverable error occurs.
func (w *Worker) Run(ctx context.Context, task string) error {
	if _, err := w.SetTask(ctx, task); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return errors.New(errors.CodeTimeout, "task canceled", ctx.Err())
		default:
		}

		resp, err := w.Step(ctx)
		if err != nil {
			if !errors.IsRecoverable(err) {
				return err
			}
			w.logger.WarnContext(ctx, "recoverable task step failure",
				slog.Int("step", w.step),
				slog.String("error", err.Error()),
			)
			continue
		}
		if resp.ActionType == game.ActionWait {
			return nil
		}
	}
}
