// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists step events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed step event store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureStepEventSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Record stores a single step event.
func (s *SQLiteStore) Record(ctx context.Context, event StepEvent) error {
	state, err := encodeState(event.State)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_step_events (
			session_id, agent_id, worker_id, step, action_type, action_id,
			function_name, status, feedback_message, state_json, error_text,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.SessionID,
		event.AgentID,
		event.WorkerID,
		event.Step,
		event.ActionType,
		event.ActionID,
		event.FunctionName,
		event.Status,
		event.FeedbackMessage,
		string(state),
		event.Error,
		normalizeTime(event.StartedAt),
		normalizeTime(event.FinishedAt),
	)
	return err
}

// List returns step events matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]StepEvent, error) {
	query := `
		SELECT session_id, agent_id, worker_id, step, action_type, action_id,
			function_name, status, feedback_message, state_json, error_text,
			started_at, finished_at
		FROM agent_step_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.SessionID != "" {
		addFilter("session_id = ?", filter.SessionID)
	}
	if filter.AgentID != "" {
		addFilter("agent_id = ?", filter.AgentID)
	}
	if filter.WorkerID != "" {
		addFilter("worker_id = ?", filter.WorkerID)
	}
	if filter.ActionType != "" {
		addFilter("action_type = ?", filter.ActionType)
	}
	query += where + " ORDER BY step ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StepEvent
	for rows.Next() {
		var (
			event     StepEvent
			stateJSON string
			started   sql.NullTime
			finished  sql.NullTime
		)
		if err := rows.Scan(
			&event.SessionID,
			&event.AgentID,
			&event.WorkerID,
			&event.Step,
			&event.ActionType,
			&event.ActionID,
			&event.FunctionName,
			&event.Status,
			&event.FeedbackMessage,
			&stateJSON,
			&event.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if stateJSON != "" && stateJSON != "null" {
			if state, err := decodeState([]byte(stateJSON)); err == nil {
				event.State = state
			}
		}
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureStepEventSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS agent_step_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			worker_id TEXT,
			step INTEGER NOT NULL,
			action_type TEXT NOT NULL,
			action_id TEXT,
			function_name TEXT,
			status TEXT,
			feedback_message TEXT,
			state_json TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_step_events_session ON agent_step_events(session_id);
		CREATE INDEX IF NOT EXISTS idx_step_events_agent ON agent_step_events(agent_id);
		CREATE INDEX IF NOT EXISTS idx_step_events_action ON agent_step_events(action_type);
	`)
	return err
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)
