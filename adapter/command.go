// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"github.com/canopy-a11y/canopy/schema"
)

// commandKind discriminates the messages the application-facing handle
// sends to the worker on the command channel.
type commandKind uint8

const (
	// commandApply folds a tree update into the store without
	// notifying any session. The handle pairs it with per-instance
	// commandDeliver messages carrying bytes it serialized itself.
	commandApply commandKind = iota + 1

	// commandDeliver enqueues an already-serialized payload on one
	// session's outbound queue. Unknown destinations are dropped:
	// the instance may have disconnected after the handle sampled
	// the live set.
	commandDeliver

	// commandShutdown asks the worker to stop accepting, tear down
	// every session, and exit.
	commandShutdown
)

// command is one message on the command channel. Exactly the fields
// for its kind are set.
type command struct {
	kind        commandKind
	update      schema.TreeUpdate // commandApply
	destination uint64            // commandDeliver
	payload     []byte            // commandDeliver
}

// sessionEventKind discriminates messages flowing from pump goroutines
// back to the worker.
type sessionEventKind uint8

const (
	// eventRequest carries the raw bytes of one complete inbound
	// action request. The worker decodes and dispatches it so the
	// handler always runs on the worker goroutine.
	eventRequest sessionEventKind = iota + 1

	// eventClosed reports that a session's transport has finished,
	// orderly or not. The worker deregisters the session.
	eventClosed
)

// sessionEvent is one message on the worker's event channel. A nil
// session marks a sessionless request from a descriptor-passing
// action socket.
type sessionEvent struct {
	session *session
	kind    sessionEventKind
	payload []byte // eventRequest
	err     error  // eventClosed: nil on orderly close
}
