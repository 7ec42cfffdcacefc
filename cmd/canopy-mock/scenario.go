// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/tree"
)

// Scenario describes the mock application: the initial tree plus a
// sequence of timed updates. Scenarios are authored as JSONC files
// (JSON extended with // comments and trailing commas).
type Scenario struct {
	// Name appears in logs and in the tree's application info when
	// the initial update carries none.
	Name string `json:"name"`

	// Initial is the full starting state: tree-level info, the root
	// node, and its descendants.
	Initial schema.TreeUpdate `json:"initial"`

	// Steps are applied one per tick, in order.
	Steps []Step `json:"steps,omitempty"`

	// Loop restarts the step sequence after the last step.
	Loop bool `json:"loop,omitempty"`
}

// Step is one timed mutation of the mock application's tree.
type Step struct {
	// Label names the step in debug logs.
	Label string `json:"label,omitempty"`

	// Update is the incremental update the step applies.
	Update schema.TreeUpdate `json:"update"`

	// IfActive delivers the step through the adapter's conditional
	// path: the update is applied to the mock's own model either way,
	// but is only serialized and sent when clients are connected.
	IfActive bool `json:"ifActive,omitempty"`
}

// ParseScenario strips JSONC comments and trailing commas from data,
// then unmarshals and validates the scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	stripped := jsonc.ToJSON(data)

	var scenario Scenario
	if err := json.Unmarshal(stripped, &scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := scenario.validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// ReadScenarioFile reads and parses a JSONC scenario file.
func ReadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

func (s *Scenario) validate() error {
	// The initial update must describe a complete tree.
	if _, err := tree.New(s.Initial); err != nil {
		return fmt.Errorf("scenario %q initial state: %w", s.Name, err)
	}
	for i, step := range s.Steps {
		if err := step.Update.Validate(); err != nil {
			return fmt.Errorf("scenario %q step %d (%s): %w", s.Name, i, step.Label, err)
		}
	}
	return nil
}

// DefaultScenario is the built-in demo: a small settings form whose
// status line cycles while a checkbox and a text input answer
// actions.
func DefaultScenario() *Scenario {
	toggledFalse := schema.ToggledFalse
	return &Scenario{
		Name: "settings-form",
		Loop: true,
		Initial: schema.TreeUpdate{
			Tree: &schema.TreeInfo{
				Root:    1,
				AppName: "canopy-mock",
				Toolkit: "canopy",
			},
			Nodes: []schema.Node{
				{ID: 1, Role: schema.RoleWindow, Label: "Settings", Children: []schema.NodeID{2, 3, 4, 5}},
				{ID: 2, Role: schema.RoleTextInput, Label: "Display name", Value: "ada",
					Actions: []schema.Action{schema.ActionFocus, schema.ActionSetValue}},
				{ID: 3, Role: schema.RoleCheckBox, Label: "Enable notifications", Toggled: &toggledFalse,
					Actions: []schema.Action{schema.ActionClick, schema.ActionFocus}},
				{ID: 4, Role: schema.RoleButton, Label: "Apply",
					Actions: []schema.Action{schema.ActionClick, schema.ActionFocus}},
				{ID: 5, Role: schema.RoleLabel, Label: "Ready"},
			},
			Focus: 2,
		},
		Steps: []Step{
			{
				Label: "status-syncing",
				Update: schema.TreeUpdate{
					Nodes: []schema.Node{{ID: 5, Role: schema.RoleLabel, Label: "Syncing…"}},
				},
			},
			{
				Label:    "status-synced",
				IfActive: true,
				Update: schema.TreeUpdate{
					Nodes: []schema.Node{{ID: 5, Role: schema.RoleLabel, Label: "Synced"}},
				},
			},
			{
				Label:    "status-idle",
				IfActive: true,
				Update: schema.TreeUpdate{
					Nodes: []schema.Node{{ID: 5, Role: schema.RoleLabel, Label: "Ready"}},
				},
			},
		},
	}
}
