// Copyright 2026 © The GAME SDK Authors
// SPDX-License-Identifier: Apache-2.0

package gametest

import (
	"errors"
	"fmt"

	"github.com/virtuals-io/game-go/pkg/game"
)

// NewCallFunction builds a call_function response for the named function.
func NewCallFunction(fnName string, args map[string]interface{}) *game.ActionResponse {
	return &game.ActionResponse{
		ActionType: game.ActionCallFunction,
		ActionArgs: &game.ActionArgs{
			ID:     "action-" + fnName,
			FnName: fnName,
			Args:   args,
		},
	}
}

// NewCallFunctionAt builds a call_function response routed to a location.
func NewCallFunctionAt(location, fnName string, args map[string]interface{}) *game.ActionResponse {
	resp := NewCallFunction(fnName, args)
	resp.ActionArgs.LocationID = location
	return resp
}

// NewContinueFunction builds a continue_function response.
func NewContinueFunction() *game.ActionResponse {
	return &game.ActionResponse{ActionType: game.ActionContinueFunction}
}

// NewWait builds a wait response.
func NewWait() *game.ActionResponse {
	return &game.ActionResponse{ActionType: game.ActionWait}
}

// NewGoTo builds a go_to response targeting a location.
func NewGoTo(location string) *game.ActionResponse {
	return &game.ActionResponse{
		ActionType: game.ActionGoTo,
		ActionArgs: &game.ActionArgs{LocationID: location},
	}
}

// WithTask attaches a current task to the response's agent state.
func WithTask(resp *game.ActionResponse, task string) *game.ActionResponse {
	resp.AgentState.CurrentTask = task
	return resp
}

func errEmpty(field string) error {
	return fmt.Errorf("%s cannot be empty: %w", field, errInvalid)
}

var errInvalid = errors.New("invalid scenario input")
