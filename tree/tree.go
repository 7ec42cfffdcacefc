// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package tree maintains an applied accessibility tree: the result of
// folding a sequence of schema.TreeUpdate values, queryable by node
// and serializable back into a full snapshot at any point.
//
// A Tree is not safe for concurrent use. The adapter confines its
// authoritative Tree to the worker goroutine; client-side replicas
// confine theirs to whatever goroutine drains the connection.
package tree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/canopy-a11y/canopy/schema"
)

// ErrNoTreeInfo is returned by New when the initial update does not
// carry tree-level info (and therefore names no root).
var ErrNoTreeInfo = errors.New("tree: initial update carries no tree info")

// Tree is an applied accessibility tree.
type Tree struct {
	nodes map[schema.NodeID]schema.Node
	info  schema.TreeInfo
	focus schema.NodeID
}

// New builds a tree from an initial update, which must carry tree
// info and include the root node itself. Ownership of the update's
// contents passes to the tree; the caller must not mutate them
// afterwards.
func New(initial schema.TreeUpdate) (*Tree, error) {
	if initial.Tree == nil {
		return nil, ErrNoTreeInfo
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	t := &Tree{
		nodes: make(map[schema.NodeID]schema.Node, len(initial.Nodes)),
	}
	t.Apply(initial)
	if _, ok := t.nodes[t.info.Root]; !ok {
		return nil, fmt.Errorf("tree: initial update does not include root node %d", t.info.Root)
	}
	return t, nil
}

// Apply folds an update into the tree: upserts every node in the
// update, replaces tree info when present, moves focus when set, and
// prunes nodes no longer reachable from the root.
//
// Apply tolerates dangling references. A child ID with no delivered
// node is skipped during traversal; a focus ID with no node is kept
// verbatim (the node may arrive in a later update). If the root node
// itself is missing, pruning is skipped entirely rather than emptying
// the tree.
func (t *Tree) Apply(update schema.TreeUpdate) {
	for _, node := range update.Nodes {
		if node.ID == 0 {
			continue
		}
		t.nodes[node.ID] = node
	}
	if update.Tree != nil {
		t.info = *update.Tree
	}
	if update.Focus != 0 {
		t.focus = update.Focus
	}
	t.prune()
}

// prune drops nodes unreachable from the root. No-op when the root
// node has not been delivered yet.
func (t *Tree) prune() {
	if _, ok := t.nodes[t.info.Root]; !ok {
		return
	}

	reachable := make(map[schema.NodeID]struct{}, len(t.nodes))
	frontier := []schema.NodeID{t.info.Root}
	for len(frontier) > 0 {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if _, seen := reachable[id]; seen {
			continue
		}
		node, ok := t.nodes[id]
		if !ok {
			continue
		}
		reachable[id] = struct{}{}
		frontier = append(frontier, node.Children...)
	}

	for id := range t.nodes {
		if _, keep := reachable[id]; !keep {
			delete(t.nodes, id)
		}
	}
}

// Snapshot produces a full-state update: every live node (sorted by
// ID so identical trees serialize identically), complete tree info,
// and current focus. Applying the result to an empty tree reproduces
// this tree's state.
func (t *Tree) Snapshot() schema.TreeUpdate {
	nodes := make([]schema.Node, 0, len(t.nodes))
	for _, node := range t.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	info := t.info
	return schema.TreeUpdate{
		Nodes: nodes,
		Tree:  &info,
		Focus: t.focus,
	}
}

// Node returns the node with the given ID. The returned value shares
// backing slices with tree state; treat it as read-only.
func (t *Tree) Node(id schema.NodeID) (schema.Node, bool) {
	node, ok := t.nodes[id]
	return node, ok
}

// Root returns the root node's ID.
func (t *Tree) Root() schema.NodeID { return t.info.Root }

// Focus returns the ID of the focused node, zero when focus has never
// been set.
func (t *Tree) Focus() schema.NodeID { return t.focus }

// Info returns the tree-level metadata.
func (t *Tree) Info() schema.TreeInfo { return t.info }

// NodeCount returns the number of live nodes.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Walk traverses depth-first from the root in child order, calling fn
// with each node and its depth. Returning false from fn stops the
// walk. Dangling child references are skipped; nodes reachable twice
// are visited once.
func (t *Tree) Walk(fn func(node schema.Node, depth int) bool) {
	visited := make(map[schema.NodeID]struct{}, len(t.nodes))
	t.walk(t.info.Root, 0, visited, fn)
}

func (t *Tree) walk(id schema.NodeID, depth int, visited map[schema.NodeID]struct{}, fn func(schema.Node, int) bool) bool {
	if _, seen := visited[id]; seen {
		return true
	}
	node, ok := t.nodes[id]
	if !ok {
		return true
	}
	visited[id] = struct{}{}
	if !fn(node, depth) {
		return false
	}
	for _, child := range node.Children {
		if !t.walk(child, depth+1, visited, fn) {
			return false
		}
	}
	return true
}
