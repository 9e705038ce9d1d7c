// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/virtuals-io/game-go/pkg/game"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// FunctionFromTool converts an MCP tool into a GAME function whose
// executable calls the tool. The tool's input schema becomes the function's
// argument list.
func FunctionFromTool(tool mcp.Tool, caller ToolCaller) (game.Function, error) {
	if tool.Name == "" {
		return game.Function{}, errors.New("mcp tool name is required")
	}
	if caller == nil {
		return game.Function{}, errors.New("tool caller is required")
	}

	return game.Function{
		Name:        tool.Name,
		Description: tool.Description,
		Args:        argumentsFromSchema(tool.InputSchema),
		Executable:  executableFor(tool, caller),
	}, nil
}

// ActionSpace lists the server's tools and converts them all into GAME
// functions, suitable as a worker's action space.
func ActionSpace(ctx context.Context, client *Client) ([]game.Function, error) {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	fns := make([]game.Function, 0, len(tools))
	for _, tool := range tools {
		fn, err := FunctionFromTool(tool, client)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// argumentsFromSchema flattens an object input schema into an ordered
// argument list. Non-object schemas produce no arguments.
func argumentsFromSchema(schema mcp.ToolInputSchema) []game.Argument {
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]game.Argument, 0, len(names))
	for _, name := range names {
		arg := game.Argument{Name: name, Optional: !required[name]}
		if prop, ok := schema.Properties[name].(map[string]interface{}); ok {
			if desc, ok := prop["description"].(string); ok {
				arg.Description = desc
			}
			if typ, ok := prop["type"].(string); ok {
				arg.Type = typ
			}
		}
		args = append(args, arg)
	}
	return args
}

func executableFor(tool mcp.Tool, caller ToolCaller) game.Executable {
	return func(ctx context.Context, args map[string]interface{}) (game.FunctionResultStatus, string, map[string]interface{}) {
		if err := validateRequiredArgs(tool, args); err != nil {
			return game.ResultFailed, err.Error(), nil
		}

		result, err := caller.CallTool(ctx, tool.Name, args)
		if err != nil {
			return game.ResultFailed, fmt.Sprintf("tool call failed: %v", err), nil
		}
		if result == nil {
			return game.ResultFailed, "tool returned no result", nil
		}
		if result.IsError {
			return game.ResultFailed, extractTextContent(result.Content), nil
		}

		feedback := extractTextContent(result.Content)
		var info map[string]interface{}
		if result.StructuredContent != nil {
			info = map[string]interface{}{"structured": result.StructuredContent}
		}
		return game.ResultDone, feedback, info
	}
}

func validateRequiredArgs(tool mcp.Tool, args map[string]interface{}) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("missing required argument %q", key)
		}
	}
	return nil
}

func extractTextContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ ToolCaller = (*Client)(nil)
