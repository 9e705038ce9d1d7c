// SPDX-License-Identifier: Apache-2.0

// Package manifest loads declarative agent definitions from YAML or JSON.
// A manifest declares the agent and its workers with function signatures;
// Bind attaches the integrator's executables to produce agent options.
package manifest

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/virtuals-io/game-go/pkg/agent"
	"github.com/virtuals-io/game-go/pkg/game"
)

// Manifest declares an agent and its workers.
type Manifest struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Goal        string   `json:"goal" yaml:"goal"`
	Workers     []Worker `json:"workers" yaml:"workers"`
}

// Worker declares one worker location and its function signatures.
type Worker struct {
	ID          string         `json:"id" yaml:"id"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Instruction string         `json:"instruction,omitempty" yaml:"instruction,omitempty"`
	Functions   []FunctionDecl `json:"functions" yaml:"functions"`
}

// FunctionDecl declares a function signature without its executable.
type FunctionDecl struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Hint        string          `json:"hint,omitempty" yaml:"hint,omitempty"`
	Args        []game.Argument `json:"args,omitempty" yaml:"args,omitempty"`
}

// ParseJSON loads a manifest from JSON and validates it.
func ParseJSON(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON payload")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse json manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseYAML loads a manifest from YAML and validates it.
func ParseYAML(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty YAML payload")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest is structurally complete.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: agent name is required")
	}
	if m.Goal == "" {
		return fmt.Errorf("manifest: agent goal is required")
	}
	if len(m.Workers) == 0 {
		return fmt.Errorf("manifest: at least one worker is required")
	}
	workerIDs := make(map[string]struct{}, len(m.Workers))
	for _, w := range m.Workers {
		if w.ID == "" {
			return fmt.Errorf("manifest: worker id is required")
		}
		if _, dup := workerIDs[w.ID]; dup {
			return fmt.Errorf("manifest: duplicate worker id %q", w.ID)
		}
		workerIDs[w.ID] = struct{}{}

		if len(w.Functions) == 0 {
			return fmt.Errorf("manifest: worker %q declares no functions", w.ID)
		}
		fnNames := make(map[string]struct{}, len(w.Functions))
		for _, fn := range w.Functions {
			if fn.Name == "" {
				return fmt.Errorf("manifest: worker %q has a function without a name", w.ID)
			}
			if _, dup := fnNames[fn.Name]; dup {
				return fmt.Errorf("manifest: worker %q declares function %q twice", w.ID, fn.Name)
			}
			fnNames[fn.Name] = struct{}{}
		}
	}
	return nil
}

// Executables maps function names to their implementations. Names shared
// by several workers bind the same executable everywhere.
type Executables map[string]game.Executable

// Bind attaches executables to the declared functions and returns the
// worker configurations plus the state functions each worker should use.
// Every declared function must have an executable; extra executables are
// ignored.
func (m *Manifest) Bind(executables Executables, stateFn game.StateFn) ([]agent.WorkerConfig, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if stateFn == nil {
		return nil, fmt.Errorf("manifest: state function is required")
	}

	configs := make([]agent.WorkerConfig, 0, len(m.Workers))
	for _, w := range m.Workers {
		actionSpace := make([]game.Function, 0, len(w.Functions))
		for _, decl := range w.Functions {
			exec, ok := executables[decl.Name]
			if !ok {
				return nil, fmt.Errorf("manifest: no executable bound for function %q (worker %q)", decl.Name, w.ID)
			}
			actionSpace = append(actionSpace, game.Function{
				Name:        decl.Name,
				Description: decl.Description,
				Hint:        decl.Hint,
				Args:        decl.Args,
				Executable:  exec,
			})
		}
		configs = append(configs, agent.WorkerConfig{
			ID:          w.ID,
			Description: w.Description,
			Instruction: w.Instruction,
			StateFn:     stateFn,
			ActionSpace: actionSpace,
		})
	}
	return configs, nil
}

// Options builds agent options from the bound workers.
func (m *Manifest) Options(executables Executables, stateFn game.StateFn) ([]agent.Option, error) {
	configs, err := m.Bind(executables, stateFn)
	if err != nil {
		return nil, err
	}
	return []agent.Option{agent.WithWorkers(configs...)}, nil
}
