// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"sort"
	"sync"
	"sync/atomic"
)

// liveInstances is the one piece of session state shared between the
// worker and the application-facing handle. The worker is its sole
// mutator, adding an instance when a session registers and removing it
// on deregistration; the handle only reads. UpdateIfActive uses the
// atomic count as its lock-free idle check and only takes the mutex
// once it has decided to do work.
type liveInstances struct {
	count atomic.Int64

	mu  sync.Mutex
	ids map[uint64]struct{}
}

func newLiveInstances() *liveInstances {
	return &liveInstances{ids: make(map[uint64]struct{})}
}

func (l *liveInstances) add(id uint64) {
	l.mu.Lock()
	l.ids[id] = struct{}{}
	l.count.Store(int64(len(l.ids)))
	l.mu.Unlock()
}

func (l *liveInstances) remove(id uint64) {
	l.mu.Lock()
	delete(l.ids, id)
	l.count.Store(int64(len(l.ids)))
	l.mu.Unlock()
}

// active reports whether at least one instance is registered. Safe to
// call from any goroutine without taking the mutex.
func (l *liveInstances) active() bool {
	return l.count.Load() > 0
}

// snapshotIDs returns the registered instance identifiers in ascending
// order. The set may be stale by the time the caller acts on it; the
// worker drops deliveries to instances that have since disconnected.
func (l *liveInstances) snapshotIDs() []uint64 {
	l.mu.Lock()
	ids := make([]uint64, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
