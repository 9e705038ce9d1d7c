// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"testing"

	"github.com/virtuals-io/game-go/pkg/audit"
	gerrors "github.com/virtuals-io/game-go/pkg/errors"
	"github.com/virtuals-io/game-go/pkg/game"
	"github.com/virtuals-io/game-go/pkg/gametest"
)

func echoFunction() game.Function {
	return game.Function{
		Name:        "echo",
		Description: "echo a message back",
		Args: []game.Argument{
			{Name: "message", Description: "text to echo"},
		},
		Executable: func(_ context.Context, args map[string]interface{}) (game.FunctionResultStatus, string, map[string]interface{}) {
			msg, _ := args["message"].(string)
			return game.ResultDone, "echoed: " + msg, map[string]interface{}{"last_message": msg}
		},
	}
}

func countingStateFn() game.StateFn {
	return func(result *game.FunctionResult, current map[string]interface{}) map[string]interface{} {
		count := 0
		if current != nil {
			if c, ok := current["executions"].(int); ok {
				count = c
			}
		}
		if result != nil && result.ActionID != "" {
			count++
		}
		return map[string]interface{}{"executions": count}
	}
}

func testWorker(id string) WorkerConfig {
	return WorkerConfig{
		ID:          id,
		Description: "test worker",
		Instruction: "echo what you are told",
		StateFn:     countingStateFn(),
		ActionSpace: []game.Function{echoFunction()},
	}
}

func newTestAgent(t *testing.T, planner game.Planner, opts ...Option) *Agent {
	t.Helper()
	opts = append([]Option{WithWorker(testWorker("worker-1"))}, opts...)
	a, err := New(context.Background(), planner, "Test Agent", "a test agent", "echo things", countingStateFn(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Compile(context.Background()); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return a
}

func TestNewValidation(t *testing.T) {
	planner := gametest.NewScenarioPlanner()

	if _, err := New(context.Background(), nil, "a", "d", "g", countingStateFn()); err == nil {
		t.Errorf("expected error for nil planner")
	}
	if _, err := New(context.Background(), planner, "", "d", "g", countingStateFn()); err == nil {
		t.Errorf("expected error for empty name")
	}
	if _, err := New(context.Background(), planner, "a", "d", "g", nil); err == nil {
		t.Errorf("expected error for nil state function")
	}
	badStateFn := func(*game.FunctionResult, map[string]interface{}) map[string]interface{} { return nil }
	if _, err := New(context.Background(), planner, "a", "d", "g", badStateFn); err == nil {
		t.Errorf("expected error for state function returning nil")
	}
}

func TestCompileInitializesWorkers(t *testing.T) {
	planner := gametest.NewScenarioPlanner()
	a := newTestAgent(t, planner)

	if a.CurrentWorkerID() != "worker-1" {
		t.Errorf("expected first worker as location, got %s", a.CurrentWorkerID())
	}
	state := a.workerStates["worker-1"]
	if state["instructions"] != "echo what you are told" {
		t.Errorf("expected instructions merged into worker state, got %v", state)
	}
	workers := planner.Workers()
	if len(workers) != 1 || workers[0].ID != "worker-1" {
		t.Fatalf("workers not registered: %+v", workers)
	}
	if len(workers[0].ActionSpace) != 1 || workers[0].ActionSpace[0].Name != "echo" {
		t.Errorf("action space not serialized: %+v", workers[0].ActionSpace)
	}
}

func TestWorkerStateInstructionsPrecedence(t *testing.T) {
	wc := testWorker("worker-1")
	wc.StateFn = func(*game.FunctionResult, map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"instructions": "integrator override"}
	}

	state, err := wc.InitialState()
	if err != nil {
		t.Fatalf("InitialState failed: %v", err)
	}
	if state["instructions"] != "integrator override" {
		t.Errorf("integrator-provided instructions should win, got %v", state["instructions"])
	}

	// Without a collision the worker instruction is used.
	plain, err := testWorker("worker-2").InitialState()
	if err != nil {
		t.Fatalf("InitialState failed: %v", err)
	}
	if plain["instructions"] != "echo what you are told" {
		t.Errorf("expected worker instruction, got %v", plain["instructions"])
	}
}

func TestCompileRequiresWorkers(t *testing.T) {
	planner := gametest.NewScenarioPlanner()
	a, err := New(context.Background(), planner, "a", "d", "g", countingStateFn())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Compile(context.Background()); err == nil {
		t.Errorf("expected error compiling agent with no workers")
	}
}

func TestStepCallFunction(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("echo", map[string]interface{}{"message": "hello"}))
	a := newTestAgent(t, planner)

	resp, err := a.Step(context.Background())
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if resp.ActionType != game.ActionCallFunction {
		t.Errorf("unexpected action type: %v", resp.ActionType)
	}
	if a.session.FunctionResult.FeedbackMessage != "echoed: hello" {
		t.Errorf("function result not stored: %+v", a.session.FunctionResult)
	}
	if a.session.FunctionResult.Status != game.ResultDone {
		t.Errorf("expected done status, got %v", a.session.FunctionResult.Status)
	}
	if a.workerStates["worker-1"]["executions"] != 1 {
		t.Errorf("worker state not recomputed: %v", a.workerStates["worker-1"])
	}
	if a.State()["executions"] != 1 {
		t.Errorf("agent state not recomputed: %v", a.State())
	}
}

func TestStepReportsPreviousResult(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("echo", map[string]interface{}{"message": "one"})).
		AddResponse(gametest.NewWait())
	a := newTestAgent(t, planner)

	if _, err := a.Step(context.Background()); err != nil {
		t.Fatalf("first step failed: %v", err)
	}
	if _, err := a.Step(context.Background()); err != nil {
		t.Fatalf("second step failed: %v", err)
	}

	reqs := planner.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	// First step reports the blank placeholder result.
	if reqs[0].CurrentAction.ActionID != "" || reqs[0].CurrentAction.Status != game.ResultDone {
		t.Errorf("first step should report a blank result: %+v", reqs[0].CurrentAction)
	}
	if reqs[1].CurrentAction.FeedbackMessage != "echoed: one" {
		t.Errorf("second step should report the echo result: %+v", reqs[1].CurrentAction)
	}
	if reqs[0].Version != "v2" {
		t.Errorf("expected protocol version v2, got %q", reqs[0].Version)
	}
	if reqs[0].Environment["instructions"] != "echo what you are told" {
		t.Errorf("environment missing instructions: %v", reqs[0].Environment)
	}
}

func TestStepUnknownFunction(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("missing", nil))
	a := newTestAgent(t, planner)

	_, err := a.Step(context.Background())
	if err == nil {
		t.Fatalf("expected error for unknown function")
	}
	if ge := gerrors.AsError(err); ge.Code != gerrors.CodeValidation {
		t.Errorf("expected CodeValidation, got %v", ge.Code)
	}
}

func TestStepFailedDispatchKeepsAgentState(t *testing.T) {
	calls := 0
	stateFn := func(*game.FunctionResult, map[string]interface{}) map[string]interface{} {
		calls++
		return map[string]interface{}{"calls": calls}
	}
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("missing", nil))
	a, err := New(context.Background(), planner, "a", "d", "g", stateFn, WithWorker(testWorker("worker-1")))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Compile(context.Background()); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	before := a.State()["calls"]
	if _, err := a.Step(context.Background()); err == nil {
		t.Fatalf("expected error for unknown function")
	}
	if a.State()["calls"] != before {
		t.Errorf("agent state should not advance on a failed step: %v", a.State())
	}
}

func TestStepGoTo(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewGoTo("worker-2"))
	a := newTestAgent(t, planner, WithWorker(testWorker("worker-2")))

	if _, err := a.Step(context.Background()); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if a.CurrentWorkerID() != "worker-2" {
		t.Errorf("expected location worker-2, got %s", a.CurrentWorkerID())
	}
}

func TestStepGoToUnknownLocation(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewGoTo("nowhere"))
	a := newTestAgent(t, planner)

	_, err := a.Step(context.Background())
	if err == nil {
		t.Fatalf("expected error for unknown location")
	}
	if ge := gerrors.AsError(err); ge.Code != gerrors.CodeValidation {
		t.Errorf("expected CodeValidation, got %v", ge.Code)
	}
	if a.CurrentWorkerID() != "worker-1" {
		t.Errorf("location should not change on error, got %s", a.CurrentWorkerID())
	}
}

func TestStepWaitIsNoOp(t *testing.T) {
	planner := gametest.NewScenarioPlanner().AddResponse(gametest.NewWait())
	a := newTestAgent(t, planner)

	before := a.session.FunctionResult
	resp, err := a.Step(context.Background())
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if resp.ActionType != game.ActionWait {
		t.Errorf("expected wait, got %v", resp.ActionType)
	}
	if a.session.FunctionResult != before {
		t.Errorf("wait should not change the session result")
	}
}

func TestStepUnknownActionType(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(&game.ActionResponse{ActionType: game.ActionType("dance")})
	a := newTestAgent(t, planner)

	_, err := a.Step(context.Background())
	if err == nil {
		t.Fatalf("expected error for unknown action type")
	}
}

func TestStepFailedFunctionStillReported(t *testing.T) {
	failing := game.Function{
		Name:        "explode",
		Description: "always panics",
		Executable: func(context.Context, map[string]interface{}) (game.FunctionResultStatus, string, map[string]interface{}) {
			panic("boom")
		},
	}
	wc := WorkerConfig{
		ID:          "worker-1",
		Instruction: "try things",
		StateFn:     countingStateFn(),
		ActionSpace: []game.Function{failing},
	}
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("explode", nil))
	a, err := New(context.Background(), planner, "a", "d", "g", countingStateFn(), WithWorker(wc))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Compile(context.Background()); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if _, err := a.Step(context.Background()); err != nil {
		t.Fatalf("panic should become a failed result, not an error: %v", err)
	}
	if a.session.FunctionResult.Status != game.ResultFailed {
		t.Errorf("expected failed status, got %v", a.session.FunctionResult.Status)
	}
}

func TestRunStopsAtMaxSteps(t *testing.T) {
	planner := gametest.NewScenarioPlanner()
	a := newTestAgent(t, planner)

	if err := a.Run(context.Background(), 3); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if planner.CallCount() != 3 {
		t.Errorf("expected 3 planning calls, got %d", planner.CallCount())
	}
}

func TestRunStopsOnNonRecoverableError(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		WithDefaultError(gerrors.New(gerrors.CodeAuthentication, "invalid API key", nil))
	a := newTestAgent(t, planner)

	err := a.Run(context.Background(), 10)
	if err == nil {
		t.Fatalf("expected run to stop on auth error")
	}
	if planner.CallCount() != 1 {
		t.Errorf("expected 1 call before stopping, got %d", planner.CallCount())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	planner := gametest.NewScenarioPlanner()
	a := newTestAgent(t, planner)

	if err := a.Run(ctx, 0); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestResetStartsFreshSession(t *testing.T) {
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("echo", map[string]interface{}{"message": "x"}))
	a := newTestAgent(t, planner)

	if _, err := a.Step(context.Background()); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	oldID := a.session.ID
	if err := a.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if a.session.ID == oldID {
		t.Errorf("expected new session id after reset")
	}
	if a.session.FunctionResult.ActionID != "" {
		t.Errorf("expected blank result after reset")
	}
	if a.workerStates["worker-1"]["executions"] != 0 {
		t.Errorf("worker state not reinitialized: %v", a.workerStates["worker-1"])
	}
}

func TestAddWorkerAfterCompileFails(t *testing.T) {
	planner := gametest.NewScenarioPlanner()
	a := newTestAgent(t, planner)

	if err := a.AddWorker(testWorker("worker-2")); err == nil {
		t.Errorf("expected error adding worker after compile")
	}
}

func TestStepRecordsAuditEvents(t *testing.T) {
	store := audit.NewMemoryStore()
	planner := gametest.NewScenarioPlanner().
		AddResponse(gametest.NewCallFunction("echo", map[string]interface{}{"message": "hi"}))
	a := newTestAgent(t, planner, WithAuditStore(store))

	if _, err := a.Step(context.Background()); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	events, err := store.List(context.Background(), audit.Filter{AgentID: a.ID()})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
	ev := events[0]
	if ev.ActionType != "call_function" || ev.FunctionName != "echo" || ev.Status != "done" {
		t.Errorf("unexpected audit event: %+v", ev)
	}
	if ev.Step != 1 {
		t.Errorf("expected step 1, got %d", ev.Step)
	}
}

func TestWorkerConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		wc   WorkerConfig
		ok   bool
	}{
		{"valid", testWorker("w"), true},
		{"missing id", WorkerConfig{StateFn: countingStateFn(), ActionSpace: []game.Function{echoFunction()}}, false},
		{"missing state fn", WorkerConfig{ID: "w", ActionSpace: []game.Function{echoFunction()}}, false},
		{"empty action space", WorkerConfig{ID: "w", StateFn: countingStateFn()}, false},
		{"duplicate function", WorkerConfig{
			ID:          "w",
			StateFn:     countingStateFn(),
			ActionSpace: []game.Function{echoFunction(), echoFunction()},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wc.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
