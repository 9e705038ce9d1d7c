// SPDX-License-Identifier: Apache-2.0

// Package game defines the data model shared between the SDK and the
// remote GAME planning service: functions, their results, and the action
// responses the planner sends back.
package game

import (
	"context"
	"fmt"

	"github.com/virtuals-io/game-go/pkg/errors"
)

// ActionType is the kind of step the remote planner selected.
type ActionType string

const (
	// ActionCallFunction instructs the SDK to execute a function locally.
	ActionCallFunction ActionType = "call_function"

	// ActionContinueFunction instructs the SDK to keep executing the
	// previously selected function.
	ActionContinueFunction ActionType = "continue_function"

	// ActionWait means the planner has nothing to do this step.
	ActionWait ActionType = "wait"

	// ActionGoTo moves the agent to a different worker location.
	ActionGoTo ActionType = "go_to"
)

// FunctionResultStatus reports the outcome of a local function execution.
type FunctionResultStatus string

const (
	ResultDone   FunctionResultStatus = "done"
	ResultFailed FunctionResultStatus = "failed"
)

// Argument describes one parameter of a function exposed to the planner.
type Argument struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Executable is the integrator-supplied body of a function. It receives the
// arguments chosen by the planner and returns the execution outcome. The
// info map is kept locally for state callbacks and never reported upstream.
type Executable func(ctx context.Context, args map[string]interface{}) (FunctionResultStatus, string, map[string]interface{})

// Function is a local callable exposed to the remote planner as part of a
// worker's action space.
type Function struct {
	Name        string     `json:"fn_name"`
	Description string     `json:"fn_description"`
	Args        []Argument `json:"args"`
	Hint        string     `json:"hint,omitempty"`

	// Executable runs the function locally. It is never serialized.
	Executable Executable `json:"-"`
}

// Definition returns the wire form of the function, without the executable.
type Definition struct {
	Name        string     `json:"fn_name"`
	Description string     `json:"fn_description"`
	Args        []Argument `json:"args"`
	Hint        string     `json:"hint,omitempty"`
}

// Definition returns the serializable definition of the function.
func (f Function) Definition() Definition {
	return Definition{
		Name:        f.Name,
		Description: f.Description,
		Args:        f.Args,
		Hint:        f.Hint,
	}
}

// Validate checks that the function can be registered with the planner.
func (f Function) Validate() error {
	if f.Name == "" {
		return errors.New(errors.CodeValidation, "function name is required", nil)
	}
	if f.Executable == nil {
		return errors.New(errors.CodeValidation, "function executable is required", nil).
			WithContext("fn_name", f.Name)
	}
	seen := make(map[string]struct{}, len(f.Args))
	for _, arg := range f.Args {
		if arg.Name == "" {
			return errors.New(errors.CodeValidation, "function argument name is required", nil).
				WithContext("fn_name", f.Name)
		}
		if _, dup := seen[arg.Name]; dup {
			return errors.New(errors.CodeValidation, "duplicate function argument", nil).
				WithContext("fn_name", f.Name).
				WithContext("arg", arg.Name)
		}
		seen[arg.Name] = struct{}{}
	}
	return nil
}

// ExecuteFromAction runs the executable with the planner-chosen arguments.
// Panics in the executable are recovered into a failed result so one bad
// function cannot take down the agent loop.
func (f Function) ExecuteFromAction(ctx context.Context, actionID string, args map[string]interface{}) (result *FunctionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &FunctionResult{
				ActionID:        actionID,
				Status:          ResultFailed,
				FeedbackMessage: fmt.Sprintf("error executing function: %v", r),
				Info:            map[string]interface{}{},
			}
		}
	}()

	if f.Executable == nil {
		return &FunctionResult{
			ActionID:        actionID,
			Status:          ResultFailed,
			FeedbackMessage: fmt.Sprintf("function %q has no executable", f.Name),
			Info:            map[string]interface{}{},
		}
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	status, feedback, info := f.Executable(ctx, args)
	if info == nil {
		info = map[string]interface{}{}
	}
	return &FunctionResult{
		ActionID:        actionID,
		Status:          status,
		FeedbackMessage: feedback,
		Info:            info,
	}
}

// FunctionResult is the outcome of a local function execution. Info is
// local bookkeeping for state callbacks and is excluded from the payload
// reported back to the planner.
type FunctionResult struct {
	ActionID        string                 `json:"action_id"`
	Status          FunctionResultStatus   `json:"action_status"`
	FeedbackMessage string                 `json:"feedback_message"`
	Info            map[string]interface{} `json:"-"`
}

// BlankResult returns the placeholder result reported on the first step of
// a session, before any function has run.
func BlankResult() *FunctionResult {
	return &FunctionResult{
		ActionID:        "",
		Status:          ResultDone,
		FeedbackMessage: "",
		Info:            map[string]interface{}{},
	}
}

// ActionArgs carries the planner-chosen parameters of an action.
type ActionArgs struct {
	ID         string                 `json:"id,omitempty"`
	FnName     string                 `json:"fn_name,omitempty"`
	Args       map[string]interface{} `json:"args,omitempty"`
	LocationID string                 `json:"location_id,omitempty"`
	Thinking   string                 `json:"thinking,omitempty"`
}

// HLPResult is the planner's high-level plan state.
type HLPResult struct {
	PlanID                  string   `json:"plan_id,omitempty"`
	ObservationReflection   string   `json:"observation_reflection,omitempty"`
	Plan                    []string `json:"plan,omitempty"`
	PlanReasoning           string   `json:"plan_reasoning,omitempty"`
	CurrentStateOfExecution string   `json:"current_state_of_execution,omitempty"`
	ChangeIndicator         string   `json:"change_indicator,omitempty"`
	Log                     []string `json:"log,omitempty"`
}

// AgentStateReport is the planner's view of the agent after a step.
type AgentStateReport struct {
	HLP         *HLPResult `json:"hlp,omitempty"`
	CurrentTask string     `json:"current_task,omitempty"`
}

// ActionResponse is the planner's answer to "what should happen next".
type ActionResponse struct {
	ActionType ActionType       `json:"action_type"`
	AgentState AgentStateReport `json:"agent_state"`
	ActionArgs *ActionArgs      `json:"action_args,omitempty"`
}

// NewTaskGenerated reports whether the planner produced a new task on this
// step.
func (r *ActionResponse) NewTaskGenerated() bool {
	return r.AgentState.HLP != nil && r.AgentState.HLP.ChangeIndicator != ""
}

// StateFn computes the next opaque state from the last function result and
// the previous state. It must return a non-nil map; the SDK enforces no
// further schema.
type StateFn func(result *FunctionResult, currentState map[string]interface{}) map[string]interface{}

// ValidateStateFn invokes fn with no prior result or state and checks the
// initial state it produces.
func ValidateStateFn(fn StateFn) (map[string]interface{}, error) {
	if fn == nil {
		return nil, errors.New(errors.CodeState, "state function is required", nil)
	}
	initial := fn(nil, nil)
	if initial == nil {
		return nil, errors.New(errors.CodeState, "state function must return a map", nil)
	}
	return initial, nil
}
