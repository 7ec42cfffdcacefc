// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/canopy-a11y/canopy/lib/codec"
)

func TestTreeUpdateValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		update  TreeUpdate
		wantErr string
	}{
		{
			name:    "empty update rejected",
			update:  TreeUpdate{},
			wantErr: "no nodes",
		},
		{
			name: "zero node ID rejected",
			update: TreeUpdate{
				Nodes: []Node{{ID: 0, Role: RoleButton}},
			},
			wantErr: "zero ID",
		},
		{
			name: "duplicate node ID rejected",
			update: TreeUpdate{
				Nodes: []Node{
					{ID: 7, Role: RoleButton},
					{ID: 7, Role: RoleLabel},
				},
			},
			wantErr: "duplicate node ID 7",
		},
		{
			name: "tree info without root rejected",
			update: TreeUpdate{
				Tree: &TreeInfo{AppName: "demo"},
			},
			wantErr: "zero root",
		},
		{
			name: "focus-only update accepted",
			update: TreeUpdate{
				Focus: 3,
			},
		},
		{
			name: "snapshot shape accepted",
			update: TreeUpdate{
				Nodes: []Node{
					{ID: 1, Role: RoleWindow, Children: []NodeID{2}},
					{ID: 2, Role: RoleButton, Label: "OK"},
				},
				Tree:  &TreeInfo{Root: 1, AppName: "demo"},
				Focus: 2,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.update.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate succeeded, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestActionRequestValidate(t *testing.T) {
	t.Parallel()

	valid := ActionRequest{Action: ActionClick, Target: 42}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	noAction := ActionRequest{Target: 42}
	if err := noAction.Validate(); err == nil {
		t.Error("request with empty action accepted")
	}

	noTarget := ActionRequest{Action: ActionClick}
	if err := noTarget.Validate(); err != ErrNoTarget {
		t.Errorf("request without target: got %v, want ErrNoTarget", err)
	}
}

func TestRectGeometry(t *testing.T) {
	t.Parallel()

	r := Rect{X0: 10, Y0: 20, X1: 110, Y1: 70}
	if r.Empty() {
		t.Error("non-degenerate rect reported empty")
	}
	if got, want := r.Width(), 100.0; got != want {
		t.Errorf("Width = %v, want %v", got, want)
	}
	if got, want := r.Height(), 50.0; got != want {
		t.Errorf("Height = %v, want %v", got, want)
	}

	if !r.Contains(Point{X: 10, Y: 20}) {
		t.Error("top-left corner should be inside")
	}
	if r.Contains(Point{X: 110, Y: 70}) {
		t.Error("bottom-right corner should be outside")
	}

	inverted := Rect{X0: 5, Y0: 5, X1: 5, Y1: 5}
	if !inverted.Empty() {
		t.Error("zero-area rect not reported empty")
	}
	if got := inverted.Width(); got != 0 {
		t.Errorf("empty rect Width = %v, want 0", got)
	}

	union := r.Union(Rect{X0: 0, Y0: 30, X1: 50, Y1: 200})
	want := Rect{X0: 0, Y0: 20, X1: 110, Y1: 200}
	if union != want {
		t.Errorf("Union = %+v, want %+v", union, want)
	}
	if got := r.Union(Rect{}); got != r {
		t.Errorf("union with empty rect = %+v, want %+v", got, r)
	}
}

func TestNodeSupports(t *testing.T) {
	t.Parallel()

	node := Node{
		ID:      1,
		Role:    RoleCheckBox,
		Actions: []Action{ActionClick, ActionFocus},
	}
	if !node.Supports(ActionClick) {
		t.Error("advertised action not reported")
	}
	if node.Supports(ActionSetValue) {
		t.Error("unadvertised action reported as supported")
	}
}

// TestDualFormatEncoding verifies the json-tag contract: the same
// struct serves both JSON (scenario files, dumps) and CBOR (wire),
// with identical field naming and omitempty behavior.
func TestDualFormatEncoding(t *testing.T) {
	t.Parallel()

	toggled := ToggledMixed
	original := TreeUpdate{
		Nodes: []Node{
			{
				ID:       1,
				Role:     RoleWindow,
				Children: []NodeID{2},
				Label:    "Demo",
				Bounds:   &Rect{X0: 0, Y0: 0, X1: 800, Y1: 600},
			},
			{
				ID:      2,
				Role:    RoleCheckBox,
				Label:   "Enable",
				Toggled: &toggled,
				Actions: []Action{ActionClick},
			},
		},
		Tree:  &TreeInfo{Root: 1, AppName: "demo", Toolkit: "canopy-mock"},
		Focus: 2,
	}

	jsonData, err := json.Marshal(&original)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	for _, key := range []string{`"appName"`, `"toggled":"mixed"`, `"x1":800`} {
		if !strings.Contains(string(jsonData), key) {
			t.Errorf("JSON %s missing %s", jsonData, key)
		}
	}
	// Omitempty: node 1 has no value, no actions, not disabled.
	for _, absent := range []string{`"value"`, `"disabled"`, `"hidden"`} {
		if strings.Contains(string(jsonData), absent) {
			t.Errorf("JSON unexpectedly contains %s", absent)
		}
	}

	cborData, err := codec.Marshal(&original)
	if err != nil {
		t.Fatalf("codec.Marshal: %v", err)
	}
	var decoded TreeUpdate
	if err := codec.Unmarshal(cborData, &decoded); err != nil {
		t.Fatalf("codec.Unmarshal: %v", err)
	}
	if len(decoded.Nodes) != 2 {
		t.Fatalf("decoded %d nodes, want 2", len(decoded.Nodes))
	}
	if decoded.Nodes[1].Toggled == nil || *decoded.Nodes[1].Toggled != ToggledMixed {
		t.Errorf("toggled state lost: %+v", decoded.Nodes[1].Toggled)
	}
	if decoded.Tree == nil || decoded.Tree.Root != 1 {
		t.Errorf("tree info lost: %+v", decoded.Tree)
	}
	if decoded.Focus != 2 {
		t.Errorf("focus = %d, want 2", decoded.Focus)
	}
}
