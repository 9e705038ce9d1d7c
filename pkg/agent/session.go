// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"github.com/google/uuid"

	"github.com/virtuals-io/game-go/pkg/game"
)

// Session tracks one run of the agent loop: a unique id reported to the
// planner and the result of the most recently executed function.
type Session struct {
	ID             string
	FunctionResult *game.FunctionResult
}

// NewSession creates a session with a fresh id and a blank result, so the
// first step reports "nothing has run yet".
func NewSession() *Session {
	return &Session{
		ID:             uuid.NewString(),
		FunctionResult: game.BlankResult(),
	}
}

// Reset regenerates the session id and clears the last result.
func (s *Session) Reset() {
	s.ID = uuid.NewString()
	s.FunctionResult = game.BlankResult()
}
