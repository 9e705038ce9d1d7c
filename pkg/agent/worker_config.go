// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"github.com/virtuals-io/game-go/pkg/errors"
	"github.com/virtuals-io/game-go/pkg/game"
)

// WorkerConfig describes one worker location: what it is for, the
// functions the planner may call there, and the callback that maintains
// the worker's environment state between steps.
type WorkerConfig struct {
	ID          string
	Description string
	Instruction string

	// StateFn computes the worker's environment state after each function
	// result. The effective state always carries an "instructions" key.
	StateFn game.StateFn

	// ActionSpace is the ordered list of functions exposed to the planner.
	ActionSpace []game.Function
}

// Validate checks the worker can be registered with the planner.
func (wc WorkerConfig) Validate() error {
	if wc.ID == "" {
		return errors.New(errors.CodeValidation, "worker id is required", nil)
	}
	if wc.StateFn == nil {
		return errors.New(errors.CodeState, "worker state function is required", nil).
			WithContext("worker_id", wc.ID)
	}
	if len(wc.ActionSpace) == 0 {
		return errors.New(errors.CodeValidation, "worker action space is empty", nil).
			WithContext("worker_id", wc.ID)
	}
	seen := make(map[string]struct{}, len(wc.ActionSpace))
	for _, fn := range wc.ActionSpace {
		if err := fn.Validate(); err != nil {
			return err
		}
		if _, dup := seen[fn.Name]; dup {
			return errors.New(errors.CodeValidation, "duplicate function in action space", nil).
				WithContext("worker_id", wc.ID).
				WithContext("fn_name", fn.Name)
		}
		seen[fn.Name] = struct{}{}
	}
	return nil
}

// Def returns the wire form of the worker for registration.
func (wc WorkerConfig) Def() game.WorkerDef {
	defs := make([]game.Definition, 0, len(wc.ActionSpace))
	for _, fn := range wc.ActionSpace {
		defs = append(defs, fn.Definition())
	}
	return game.WorkerDef{
		ID:          wc.ID,
		Description: wc.Description,
		Instruction: wc.Instruction,
		ActionSpace: defs,
	}
}

// Function looks up a function in the action space by name.
func (wc WorkerConfig) Function(name string) (game.Function, bool) {
	for _, fn := range wc.ActionSpace {
		if fn.Name == name {
			return fn, true
		}
	}
	return game.Function{}, false
}

// InitialState validates the state function and returns the state it
// produces before anything has run, with instructions merged in.
func (wc WorkerConfig) InitialState() (map[string]interface{}, error) {
	initial, err := game.ValidateStateFn(wc.StateFn)
	if err != nil {
		return nil, errors.AsError(err).WithContext("worker_id", wc.ID)
	}
	return wc.mergeInstructions(initial), nil
}

// NextState advances the worker state from a function result.
func (wc WorkerConfig) NextState(result *game.FunctionResult, current map[string]interface{}) (map[string]interface{}, error) {
	next := wc.StateFn(result, current)
	if next == nil {
		return nil, errors.New(errors.CodeState, "worker state function returned nil", nil).
			WithContext("worker_id", wc.ID)
	}
	return wc.mergeInstructions(next), nil
}

// mergeInstructions seeds the state with the worker instruction without
// mutating the original map. An integrator-provided "instructions" key
// wins on collision.
func (wc WorkerConfig) mergeInstructions(state map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(state)+1)
	merged["instructions"] = wc.Instruction
	for k, v := range state {
		merged[k] = v
	}
	return merged
}
