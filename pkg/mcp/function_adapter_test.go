// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/virtuals-io/game-go/pkg/game"
)

type stubCaller struct {
	lastName string
	lastArgs map[string]interface{}
	result   *mcp.CallToolResult
	err      error
}

func (s *stubCaller) CallTool(_ context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

func echoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "echo",
		Description: "echo a message back",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "text to echo",
				},
				"uppercase": map[string]interface{}{
					"type": "boolean",
				},
			},
			Required: []string{"message"},
		},
	}
}

func TestFunctionFromTool(t *testing.T) {
	caller := &stubCaller{
		result: &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "echoed: hi"}},
		},
	}

	fn, err := FunctionFromTool(echoTool(), caller)
	if err != nil {
		t.Fatalf("FunctionFromTool error: %v", err)
	}
	if fn.Name != "echo" {
		t.Errorf("expected name echo, got %s", fn.Name)
	}
	if err := fn.Validate(); err != nil {
		t.Errorf("converted function should validate: %v", err)
	}

	// Arguments are sorted by name; required ones are not optional.
	if len(fn.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(fn.Args))
	}
	if fn.Args[0].Name != "message" || fn.Args[0].Optional {
		t.Errorf("expected required message arg first, got %+v", fn.Args[0])
	}
	if fn.Args[0].Type != "string" || fn.Args[0].Description != "text to echo" {
		t.Errorf("schema metadata not mapped: %+v", fn.Args[0])
	}
	if fn.Args[1].Name != "uppercase" || !fn.Args[1].Optional {
		t.Errorf("expected optional uppercase arg, got %+v", fn.Args[1])
	}

	status, feedback, _ := fn.Executable(context.Background(), map[string]interface{}{"message": "hi"})
	if status != game.ResultDone {
		t.Errorf("expected done, got %v", status)
	}
	if feedback != "echoed: hi" {
		t.Errorf("unexpected feedback: %q", feedback)
	}
	if caller.lastName != "echo" || caller.lastArgs["message"] != "hi" {
		t.Errorf("tool not called with args: %s %v", caller.lastName, caller.lastArgs)
	}
}

func TestFunctionFromToolValidation(t *testing.T) {
	if _, err := FunctionFromTool(mcp.Tool{}, &stubCaller{}); err == nil {
		t.Errorf("expected error for unnamed tool")
	}
	if _, err := FunctionFromTool(echoTool(), nil); err == nil {
		t.Errorf("expected error for nil caller")
	}
}

func TestExecutableMissingRequiredArg(t *testing.T) {
	fn, err := FunctionFromTool(echoTool(), &stubCaller{})
	if err != nil {
		t.Fatalf("FunctionFromTool error: %v", err)
	}

	status, feedback, _ := fn.Executable(context.Background(), map[string]interface{}{})
	if status != game.ResultFailed {
		t.Errorf("expected failed, got %v", status)
	}
	if !strings.Contains(feedback, "message") {
		t.Errorf("expected feedback to name the missing arg, got %q", feedback)
	}
}

func TestExecutableToolError(t *testing.T) {
	caller := &stubCaller{err: errors.New("server unavailable")}
	fn, err := FunctionFromTool(echoTool(), caller)
	if err != nil {
		t.Fatalf("FunctionFromTool error: %v", err)
	}

	status, feedback, _ := fn.Executable(context.Background(), map[string]interface{}{"message": "hi"})
	if status != game.ResultFailed {
		t.Errorf("expected failed, got %v", status)
	}
	if !strings.Contains(feedback, "server unavailable") {
		t.Errorf("expected feedback to carry the error, got %q", feedback)
	}
}

func TestExecutableToolIsError(t *testing.T) {
	caller := &stubCaller{
		result: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "bad input"}},
		},
	}
	fn, err := FunctionFromTool(echoTool(), caller)
	if err != nil {
		t.Fatalf("FunctionFromTool error: %v", err)
	}

	status, feedback, _ := fn.Executable(context.Background(), map[string]interface{}{"message": "hi"})
	if status != game.ResultFailed {
		t.Errorf("expected failed, got %v", status)
	}
	if feedback != "bad input" {
		t.Errorf("unexpected feedback: %q", feedback)
	}
}

func TestExecutableStructuredContent(t *testing.T) {
	caller := &stubCaller{
		result: &mcp.CallToolResult{
			StructuredContent: map[string]interface{}{"ok": true},
		},
	}
	fn, err := FunctionFromTool(echoTool(), caller)
	if err != nil {
		t.Fatalf("FunctionFromTool error: %v", err)
	}

	status, _, info := fn.Executable(context.Background(), map[string]interface{}{"message": "hi"})
	if status != game.ResultDone {
		t.Errorf("expected done, got %v", status)
	}
	structured, ok := info["structured"].(map[string]interface{})
	if !ok || structured["ok"] != true {
		t.Errorf("expected structured content in info, got %v", info)
	}
}
