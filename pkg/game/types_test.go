// SPDX-License-Identifier: Apache-2.0

package game

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	gerrors "github.com/virtuals-io/game-go/pkg/errors"
)

func echoFn() Function {
	return Function{
		Name:        "echo",
		Description: "Echo a message back",
		Args: []Argument{
			{Name: "message", Description: "Message to echo", Type: "string"},
		},
		Executable: func(ctx context.Context, args map[string]interface{}) (FunctionResultStatus, string, map[string]interface{}) {
			msg, _ := args["message"].(string)
			return ResultDone, "echoed " + msg, map[string]interface{}{"message": msg}
		},
	}
}

func TestFunctionDefinitionExcludesExecutable(t *testing.T) {
	fn := echoFn()
	data, err := json.Marshal(fn.Definition())
	if err != nil {
		t.Fatalf("marshal definition: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal definition: %v", err)
	}
	if decoded["fn_name"] != "echo" {
		t.Errorf("expected fn_name 'echo', got %v", decoded["fn_name"])
	}
	if _, ok := decoded["executable"]; ok {
		t.Errorf("executable must not be serialized")
	}
	args, ok := decoded["args"].([]interface{})
	if !ok || len(args) != 1 {
		t.Fatalf("expected 1 serialized arg, got %v", decoded["args"])
	}
}

func TestFunctionValidate(t *testing.T) {
	tests := []struct {
		name    string
		fn      Function
		wantErr bool
	}{
		{name: "valid", fn: echoFn(), wantErr: false},
		{name: "missing name", fn: Function{Executable: echoFn().Executable}, wantErr: true},
		{name: "missing executable", fn: Function{Name: "noop"}, wantErr: true},
		{
			name: "duplicate arg",
			fn: Function{
				Name:       "dup",
				Args:       []Argument{{Name: "a"}, {Name: "a"}},
				Executable: echoFn().Executable,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err != nil {
				if ge := gerrors.AsError(err); ge.Code != gerrors.CodeValidation {
					t.Errorf("expected CodeValidation, got %v", ge.Code)
				}
			}
		})
	}
}

func TestExecuteFromAction(t *testing.T) {
	fn := echoFn()
	result := fn.ExecuteFromAction(context.Background(), "act-1", map[string]interface{}{"message": "hello"})

	if result.Status != ResultDone {
		t.Errorf("expected done, got %v", result.Status)
	}
	if result.ActionID != "act-1" {
		t.Errorf("expected action id preserved, got %q", result.ActionID)
	}
	if result.FeedbackMessage != "echoed hello" {
		t.Errorf("unexpected feedback: %q", result.FeedbackMessage)
	}
	if result.Info["message"] != "hello" {
		t.Errorf("expected info to carry message")
	}
}

func TestExecuteFromActionRecoversPanic(t *testing.T) {
	fn := Function{
		Name: "boom",
		Executable: func(ctx context.Context, args map[string]interface{}) (FunctionResultStatus, string, map[string]interface{}) {
			panic("kaboom")
		},
	}

	result := fn.ExecuteFromAction(context.Background(), "act-2", nil)
	if result.Status != ResultFailed {
		t.Fatalf("expected failed result, got %v", result.Status)
	}
	if !strings.Contains(result.FeedbackMessage, "kaboom") {
		t.Errorf("expected panic message in feedback, got %q", result.FeedbackMessage)
	}
}

func TestExecuteFromActionNilExecutable(t *testing.T) {
	fn := Function{Name: "empty"}
	result := fn.ExecuteFromAction(context.Background(), "", nil)
	if result.Status != ResultFailed {
		t.Errorf("expected failed result for nil executable")
	}
}

func TestFunctionResultInfoNotSerialized(t *testing.T) {
	result := &FunctionResult{
		ActionID:        "act-3",
		Status:          ResultDone,
		FeedbackMessage: "ok",
		Info:            map[string]interface{}{"secret": "local-only"},
	}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if strings.Contains(string(data), "local-only") {
		t.Errorf("info must not be reported to the planner: %s", data)
	}
	if !strings.Contains(string(data), `"action_status":"done"`) {
		t.Errorf("expected action_status in payload: %s", data)
	}
}

func TestActionResponseDecoding(t *testing.T) {
	raw := `{
		"action_type": "call_function",
		"agent_state": {
			"current_task": "report the weather",
			"hlp": {"plan_id": "p1", "change_indicator": "new_task"}
		},
		"action_args": {
			"id": "act-9",
			"fn_name": "get_weather",
			"args": {"city": "Boston"}
		}
	}`

	var resp ActionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal action response: %v", err)
	}
	if resp.ActionType != ActionCallFunction {
		t.Errorf("expected call_function, got %v", resp.ActionType)
	}
	if resp.ActionArgs == nil || resp.ActionArgs.FnName != "get_weather" {
		t.Fatalf("expected fn_name get_weather, got %+v", resp.ActionArgs)
	}
	if resp.ActionArgs.Args["city"] != "Boston" {
		t.Errorf("expected city arg, got %v", resp.ActionArgs.Args)
	}
	if !resp.NewTaskGenerated() {
		t.Errorf("expected new task indicator")
	}
}

func TestValidateStateFn(t *testing.T) {
	if _, err := ValidateStateFn(nil); err == nil {
		t.Errorf("expected error for nil state fn")
	}

	if _, err := ValidateStateFn(func(result *FunctionResult, state map[string]interface{}) map[string]interface{} {
		return nil
	}); err == nil {
		t.Errorf("expected error for state fn returning nil")
	}

	initial, err := ValidateStateFn(func(result *FunctionResult, state map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"status": "ready"}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if initial["status"] != "ready" {
		t.Errorf("expected initial state, got %v", initial)
	}
}
