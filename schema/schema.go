// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
)

// NodeID identifies a node within one accessibility tree. Zero is
// never a valid node ID; it serves as the "no node" sentinel in
// optional references such as [TreeUpdate.Focus].
type NodeID uint64

// Role classifies what a node is, following the common vocabulary of
// platform accessibility APIs. The set here is the subset Canopy's
// tooling renders specially; producers may send roles outside this
// list and consumers must pass them through unchanged.
type Role string

const (
	RoleUnknown          Role = "unknown"
	RoleWindow           Role = "window"
	RoleButton           Role = "button"
	RoleLabel            Role = "label"
	RoleCheckBox         Role = "checkBox"
	RoleRadioButton      Role = "radioButton"
	RoleTextInput        Role = "textInput"
	RoleList             Role = "list"
	RoleListItem         Role = "listItem"
	RoleMenu             Role = "menu"
	RoleMenuItem         Role = "menuItem"
	RoleDialog           Role = "dialog"
	RoleImage            Role = "image"
	RoleLink             Role = "link"
	RoleSlider           Role = "slider"
	RoleTab              Role = "tab"
	RoleTabList          Role = "tabList"
	RolePane             Role = "pane"
	RoleScrollBar        Role = "scrollBar"
	RoleGenericContainer Role = "genericContainer"
)

// Toggled is the tri-state value of checkable nodes (check boxes,
// radio buttons, switches).
type Toggled string

const (
	ToggledFalse Toggled = "false"
	ToggledTrue  Toggled = "true"
	ToggledMixed Toggled = "mixed"
)

// Point is a position in the tree's coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned bounding rectangle. X0/Y0 is the top-left
// corner, X1/Y1 the bottom-right. An empty rectangle has X1 <= X0 or
// Y1 <= Y0.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Empty reports whether the rectangle encloses no area.
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Width returns the horizontal extent, zero for empty rectangles.
func (r Rect) Width() float64 {
	if r.X1 <= r.X0 {
		return 0
	}
	return r.X1 - r.X0
}

// Height returns the vertical extent, zero for empty rectangles.
func (r Rect) Height() float64 {
	if r.Y1 <= r.Y0 {
		return 0
	}
	return r.Y1 - r.Y0
}

// Contains reports whether p lies inside the rectangle. Points on the
// top or left edge are inside; points on the bottom or right edge are
// not, so adjacent rectangles partition the plane without overlap.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X < r.X1 && p.Y >= r.Y0 && p.Y < r.Y1
}

// Union returns the smallest rectangle covering both r and other.
// An empty rectangle is the identity element.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	return Rect{
		X0: min(r.X0, other.X0),
		Y0: min(r.Y0, other.Y0),
		X1: max(r.X1, other.X1),
		Y1: max(r.Y1, other.Y1),
	}
}

// Node is one element of the accessibility tree. Only ID and Role are
// required; everything else is optional and omitted from the encoding
// when empty.
//
// Children are ordered. A node referenced as a child but never
// delivered in any update is simply absent from the tree until it
// arrives; consumers must tolerate dangling child references.
type Node struct {
	ID       NodeID   `json:"id"`
	Role     Role     `json:"role"`
	Children []NodeID `json:"children,omitempty"`

	// Label is the node's accessible name (button caption, input
	// label). Value is its current value (text content, slider
	// position rendered as text).
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`

	Bounds  *Rect    `json:"bounds,omitempty"`
	Toggled *Toggled `json:"toggled,omitempty"`

	Disabled bool `json:"disabled,omitempty"`
	Hidden   bool `json:"hidden,omitempty"`

	// Actions lists what the node supports; a conforming client only
	// requests actions from this list, but the service relays any
	// well-formed request regardless.
	Actions []Action `json:"actions,omitempty"`
}

// Supports reports whether the node advertises the given action.
func (n *Node) Supports(action Action) bool {
	for _, a := range n.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// TreeInfo is tree-level metadata, present in every snapshot and in
// any update that changes it.
type TreeInfo struct {
	// Root is the ID of the tree's root node. Never zero in a valid
	// tree.
	Root NodeID `json:"root"`

	AppName        string `json:"appName,omitempty"`
	Toolkit        string `json:"toolkit,omitempty"`
	ToolkitVersion string `json:"toolkitVersion,omitempty"`
}

// TreeUpdate is the unit of change to an accessibility tree.
//
// Nodes upserts by ID: a node already in the tree is replaced
// wholesale, a new one is inserted. Tree, when non-nil, replaces the
// tree-level info (including the root reference). Focus, when
// non-zero, moves focus to that node.
//
// A full snapshot is a TreeUpdate carrying every live node plus Tree
// info; applying it to an empty tree reproduces the state exactly, and
// applying it to a stale tree converges it (nodes no longer reachable
// from the root are pruned by the consumer).
type TreeUpdate struct {
	Nodes []Node    `json:"nodes,omitempty"`
	Tree  *TreeInfo `json:"tree,omitempty"`
	Focus NodeID    `json:"focus,omitempty"`
}

// ErrEmptyUpdate is returned by Validate for an update that carries
// nothing at all.
var ErrEmptyUpdate = errors.New("schema: tree update carries no nodes, no tree info, and no focus")

// Validate checks structural validity: at least one of Nodes, Tree,
// Focus present; no zero node IDs; no duplicate node IDs within this
// update; a non-nil Tree must name a root.
func (u *TreeUpdate) Validate() error {
	if len(u.Nodes) == 0 && u.Tree == nil && u.Focus == 0 {
		return ErrEmptyUpdate
	}
	seen := make(map[NodeID]struct{}, len(u.Nodes))
	for i := range u.Nodes {
		id := u.Nodes[i].ID
		if id == 0 {
			return fmt.Errorf("schema: node at index %d has zero ID", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("schema: duplicate node ID %d in update", id)
		}
		seen[id] = struct{}{}
	}
	if u.Tree != nil && u.Tree.Root == 0 {
		return errors.New("schema: tree info has zero root ID")
	}
	return nil
}
