// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"errors"
	"fmt"

	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/tree"
)

// TreeFactory produces the application's initial accessibility tree.
// It is invoked at most once, the first time the tree is actually
// needed, and may be expensive. The update it returns must describe a
// complete tree: tree-level info plus the root node.
type TreeFactory func() schema.TreeUpdate

var (
	// errNoFactory is the sticky failure recorded when an adapter
	// was constructed without a tree factory and something forced
	// the store.
	errNoFactory = errors.New("adapter: no tree factory")
)

// treeStore is the worker-owned lazy tree state. It starts unforced,
// holding only the factory; the first force consumes the factory and
// either yields a tree or records a sticky failure. Only the worker
// goroutine touches it after construction.
type treeStore struct {
	factory TreeFactory
	tree    *tree.Tree
	err     error
}

func newTreeStore(factory TreeFactory) *treeStore {
	return &treeStore{factory: factory}
}

// forced reports whether the store holds a built tree.
func (s *treeStore) forced() bool {
	return s.tree != nil
}

// force builds the tree if it has not been built yet. After a failed
// build the store stays failed and every later force returns the same
// error; the factory is never retried.
func (s *treeStore) force() error {
	if s.tree != nil {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	if s.factory == nil {
		s.err = errNoFactory
		return s.err
	}
	factory := s.factory
	s.factory = nil
	initial, err := invokeFactory(factory)
	if err != nil {
		s.err = err
		return s.err
	}
	built, err := tree.New(initial)
	if err != nil {
		s.err = fmt.Errorf("adapter: tree factory produced unusable state: %w", err)
		return s.err
	}
	s.tree = built
	return nil
}

// invokeFactory runs the factory, converting a panic into an error so
// a broken factory cannot take down the worker goroutine.
func invokeFactory(factory TreeFactory) (update schema.TreeUpdate, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("adapter: tree factory panicked: %v", recovered)
		}
	}()
	return factory(), nil
}

// apply forces the store and folds the update into the tree.
func (s *treeStore) apply(update schema.TreeUpdate) error {
	if err := s.force(); err != nil {
		return err
	}
	s.tree.Apply(update)
	return nil
}

// snapshot forces the store and returns its current full state.
func (s *treeStore) snapshot() (schema.TreeUpdate, error) {
	if err := s.force(); err != nil {
		return schema.TreeUpdate{}, err
	}
	return s.tree.Snapshot(), nil
}

// release drops the tree and any unconsumed factory. Called once
// during worker shutdown.
func (s *treeStore) release() {
	s.factory = nil
	s.tree = nil
}
