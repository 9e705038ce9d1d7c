// SPDX-License-Identifier: Apache-2.0

// Package audit records agent step history so that runs can be inspected
// and replayed after the fact.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// StepEvent captures one step of an agent run: the action the planner
// chose and the outcome of executing it locally.
type StepEvent struct {
	SessionID       string                 `json:"session_id"`
	AgentID         string                 `json:"agent_id"`
	WorkerID        string                 `json:"worker_id,omitempty"`
	Step            int                    `json:"step"`
	ActionType      string                 `json:"action_type"`
	ActionID        string                 `json:"action_id,omitempty"`
	FunctionName    string                 `json:"function_name,omitempty"`
	Status          string                 `json:"status,omitempty"`
	FeedbackMessage string                 `json:"feedback_message,omitempty"`
	State           map[string]interface{} `json:"state,omitempty"`
	Error           string                 `json:"error,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
}

// Store persists step events.
type Store interface {
	Record(ctx context.Context, event StepEvent) error
	List(ctx context.Context, filter Filter) ([]StepEvent, error)
}

// Filter limits step event queries.
type Filter struct {
	SessionID  string
	AgentID    string
	WorkerID   string
	ActionType string
	Limit      int
}

// MemoryStore keeps step events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []StepEvent
}

// NewMemoryStore returns an in-memory step event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends a step event.
func (s *MemoryStore) Record(_ context.Context, event StepEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered step events in recording order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]StepEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepEvent, 0, len(s.events))
	for _, ev := range s.events {
		if filter.SessionID != "" && ev.SessionID != filter.SessionID {
			continue
		}
		if filter.AgentID != "" && ev.AgentID != filter.AgentID {
			continue
		}
		if filter.WorkerID != "" && ev.WorkerID != filter.WorkerID {
			continue
		}
		if filter.ActionType != "" && ev.ActionType != filter.ActionType {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// encodeState marshals the state snapshot into JSON.
func encodeState(state map[string]interface{}) ([]byte, error) {
	if state == nil {
		return []byte("null"), nil
	}
	return json.Marshal(state)
}

// decodeState parses a JSON state snapshot.
func decodeState(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeTime ensures timestamps are stored in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
