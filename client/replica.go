// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/canopy-a11y/canopy/tree"
)

// ErrNoSnapshot is returned when an update event arrives before any
// snapshot has seeded the replica.
var ErrNoSnapshot = errors.New("client: update before snapshot")

// Replica mirrors the remote tree from a stream of events: a snapshot
// seeds it, updates are folded in on top. Not safe for concurrent use;
// feed it from the goroutine that calls [Client.Next].
type Replica struct {
	tree       *tree.Tree
	generation uint64
}

func NewReplica() *Replica {
	return &Replica{}
}

// Apply folds one event into the replica. A snapshot event re-seeds
// the whole tree, so replaying a stream from its start always
// converges.
func (r *Replica) Apply(event Event) error {
	switch event.Kind {
	case EventSnapshot:
		built, err := tree.New(event.Update)
		if err != nil {
			return fmt.Errorf("client: seeding replica: %w", err)
		}
		r.tree = built
	case EventUpdate:
		if r.tree == nil {
			return ErrNoSnapshot
		}
		r.tree.Apply(event.Update)
	default:
		return fmt.Errorf("client: unknown event kind %v", event.Kind)
	}
	r.generation++
	return nil
}

// Ready reports whether a snapshot has seeded the replica.
func (r *Replica) Ready() bool {
	return r.tree != nil
}

// Tree returns the mirrored tree, nil before the first snapshot.
func (r *Replica) Tree() *tree.Tree {
	return r.tree
}

// Generation counts the events applied so far.
func (r *Replica) Generation() uint64 {
	return r.generation
}
