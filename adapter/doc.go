// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package adapter implements the Canopy streaming service: an
// in-process component that holds one authoritative accessibility
// tree, streams it to any number of concurrent clients, and relays
// client action requests back to the hosting application.
//
// The application constructs an [Adapter] with a tree factory, an
// action handler, and an [Acceptor], then calls [Adapter.Update] or
// [Adapter.UpdateIfActive] as its UI changes. Each client connection
// receives a full snapshot on connect followed by ordered incremental
// payloads; action requests flow the other way into the handler. The
// tree factory is not invoked until the first client connects or the
// first update arrives, so constructing an Adapter is cheap even when
// building the initial tree is not.
//
// All shared state (the tree, the session table) is owned by a single
// worker goroutine; the application side and the per-connection pump
// goroutines communicate with it only through channels. The package is
// organized around that boundary:
//
//   - adapter.go: the application-facing handle and its options
//   - command.go: messages carried on the application→worker channels
//   - worker.go: the event loop that owns all shared state
//   - treestore.go: lazy once-only construction of the tree
//   - session.go: per-connection outbound queue and pump goroutines
//   - transport.go: raw-stream, framed, and WebSocket byte transports
//   - acceptor.go: the acceptor contract and composition
//   - acceptor_pair.go: descriptor-passing acceptance (SCM_RIGHTS)
//   - acceptor_listener.go: net.Listener acceptance (framed protocol)
//   - acceptor_ws.go: WebSocket acceptance
//   - registry.go: live-instance accounting shared with the handle
package adapter
