// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"log/slog"
	"sync"

	"github.com/canopy-a11y/canopy/lib/codec"
	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/wire"
)

// worker owns the tree store and the session registry. It runs a
// single event loop over the adapter's channels; select's uniform
// choice among ready cases keeps any one source from starving the
// others. Nothing here blocks outside the select: outbound payloads
// go to per-session queues and inbound bytes arrive pre-assembled
// from the pump goroutines.
type worker struct {
	commands chan command
	updates  chan schema.TreeUpdate
	accepts  chan transport
	events   chan sessionEvent

	// stop closes when shutdown begins, releasing pump goroutines
	// and acceptors; done closes when the worker has fully exited.
	stop chan struct{}
	done chan struct{}

	store     *treeStore
	handler   ActionHandler
	acceptor  Acceptor
	sessions  map[uint64]*session
	instances *liveInstances
	nextID    uint64

	compression wire.CompressionTag
	logger      *slog.Logger

	// wait tracks session pumps and acceptor serve goroutines.
	wait sync.WaitGroup
}

func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case cmd, ok := <-w.commands:
			if !ok || cmd.kind == commandShutdown {
				w.shutdown()
				return
			}
			switch cmd.kind {
			case commandApply:
				w.handleApply(cmd.update)
			case commandDeliver:
				w.handleDeliver(cmd.destination, cmd.payload)
			}
		case update := <-w.updates:
			w.handleUpdate(update)
		case tr := <-w.accepts:
			w.handleAccept(tr)
		case event := <-w.events:
			w.handleSessionEvent(event)
		}
	}
}

// handleUpdate folds an update from Adapter.Update into the store and,
// when at least one client is connected, fans the resulting full state
// out to every session. With no clients the store is still updated but
// nothing is serialized.
func (w *worker) handleUpdate(update schema.TreeUpdate) {
	if err := w.store.apply(update); err != nil {
		w.logger.Warn("dropping tree update", "error", err)
		return
	}
	if len(w.sessions) == 0 {
		return
	}
	state := w.store.tree.Snapshot()
	payload, err := codec.Marshal(&state)
	if err != nil {
		w.logger.Error("encoding tree state", "error", err)
		return
	}
	// Every session shares the same payload bytes; per-session order
	// is the enqueue order here.
	for _, s := range w.sessions {
		s.enqueue(payloadUpdate, payload)
	}
}

// handleApply folds an update into the store without touching any
// session. The matching deliveries arrive as separate commands.
func (w *worker) handleApply(update schema.TreeUpdate) {
	if err := w.store.apply(update); err != nil {
		w.logger.Warn("dropping tree update", "error", err)
	}
}

func (w *worker) handleDeliver(destination uint64, payload []byte) {
	s, ok := w.sessions[destination]
	if !ok {
		w.logger.Debug("dropping payload for departed client", "instance", destination)
		return
	}
	s.enqueue(payloadUpdate, payload)
}

// handleAccept registers a new client connection: force the store,
// enqueue a snapshot of its current state as the session's first
// payload, then add the session to the registry so later fan-outs
// reach it.
func (w *worker) handleAccept(tr transport) {
	state, err := w.store.snapshot()
	if err != nil {
		w.logger.Warn("refusing client, no tree available", "error", err)
		tr.close()
		return
	}
	payload, err := codec.Marshal(&state)
	if err != nil {
		w.logger.Error("encoding snapshot", "error", err)
		tr.close()
		return
	}

	w.nextID++
	s := newSession(w.nextID, tr)
	s.enqueue(payloadSnapshot, payload)
	w.sessions[s.id] = s
	w.instances.add(s.id)
	s.start(w.events, w.stop, &w.wait)
	w.logger.Debug("client connected", "instance", s.id, "clients", len(w.sessions))
}

func (w *worker) handleSessionEvent(event sessionEvent) {
	switch event.kind {
	case eventRequest:
		w.dispatchRequest(event.payload)
	case eventClosed:
		w.removeSession(event.session, event.err)
	}
}

// dispatchRequest decodes raw inbound bytes and invokes the action
// handler on this goroutine. Undecodable or empty requests are
// discarded; a decode failure from one client must not disturb the
// others.
func (w *worker) dispatchRequest(payload []byte) {
	request, err := decodeRequest(payload)
	if err != nil {
		w.logger.Debug("discarding malformed action request", "error", err)
		return
	}
	if w.handler == nil {
		w.logger.Debug("discarding action request, no handler", "action", request.Action)
		return
	}
	w.invokeHandler(request)
}

// invokeHandler guards the dispatch so a panicking handler cannot take
// down the worker goroutine.
func (w *worker) invokeHandler(request schema.ActionRequest) {
	defer func() {
		if recovered := recover(); recovered != nil {
			w.logger.Error("action handler panicked", "action", request.Action, "panic", recovered)
		}
	}()
	w.handler.DoAction(request)
}

// removeSession deregisters a session and closes its transport. The
// writer and reader pumps can both report the same closure; only the
// first report does any work.
func (w *worker) removeSession(s *session, err error) {
	if s == nil {
		return
	}
	if _, live := w.sessions[s.id]; !live {
		return
	}
	delete(w.sessions, s.id)
	w.instances.remove(s.id)
	s.teardown()
	if err != nil {
		w.logger.Debug("client disconnected", "instance", s.id, "error", err)
	} else {
		w.logger.Debug("client disconnected", "instance", s.id)
	}
}

// shutdown tears the adapter down deterministically: stop accepting,
// release every session's pumps, then wait for all goroutines this
// worker spawned. In-flight writes are cancelled, not awaited, so a
// closing transport may truncate its final payload.
func (w *worker) shutdown() {
	close(w.stop)
	if w.acceptor != nil {
		w.acceptor.shutdown()
	}
	for id, s := range w.sessions {
		delete(w.sessions, id)
		w.instances.remove(id)
		s.teardown()
	}
	w.wait.Wait()
	w.store.release()
	w.logger.Debug("adapter worker stopped")
}
