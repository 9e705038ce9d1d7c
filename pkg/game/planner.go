// SPDX-License-Identifier: Apache-2.0

package game

import "context"

// WorkerDef is the wire form of a worker registered with the planner.
type WorkerDef struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Instruction string       `json:"instruction"`
	ActionSpace []Definition `json:"action_space"`
}

// ActionRequest is the payload sent when asking the planner for the next
// action in the agent loop.
type ActionRequest struct {
	Location      string                 `json:"location"`
	MapID         string                 `json:"map_id"`
	Environment   map[string]interface{} `json:"environment"`
	Functions     []Definition           `json:"functions"`
	Events        map[string]interface{} `json:"events"`
	AgentState    map[string]interface{} `json:"agent_state"`
	CurrentAction *FunctionResult        `json:"current_action"`
	Version       string                 `json:"version"`
}

// TaskActionRequest is the payload sent when driving a standalone worker
// task.
type TaskActionRequest struct {
	Environment  map[string]interface{} `json:"environment"`
	Functions    []Definition           `json:"functions"`
	ActionResult *FunctionResult        `json:"action_result"`
}

// Planner is the remote GAME planning service as seen by the SDK. The HTTP
// client in pkg/api implements it; tests script it with pkg/gametest.
type Planner interface {
	// CreateAgent registers an agent and returns its id.
	CreateAgent(ctx context.Context, name, description, goal string) (string, error)

	// CreateWorkers registers the agent's workers and returns the map id.
	CreateWorkers(ctx context.Context, workers []WorkerDef) (string, error)

	// GetAction asks the planner for the next action.
	GetAction(ctx context.Context, agentID string, req ActionRequest) (*ActionResponse, error)

	// SetTask submits a task for a standalone worker and returns the
	// submission id.
	SetTask(ctx context.Context, agentID, task string) (string, error)

	// GetTaskAction asks the planner for the next action on a task.
	GetTaskAction(ctx context.Context, agentID, submissionID string, req TaskActionRequest) (*ActionResponse, error)
}
