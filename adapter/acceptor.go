// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"log/slog"
	"sync"

	"github.com/canopy-a11y/canopy/wire"
)

// Acceptor is a source of new client connections. The adapter runs
// each acceptor's serve loop on its own goroutine and closes it down
// as part of adapter shutdown. The interface is sealed; the package
// provides descriptor-passing ([PairAcceptor]), listener
// ([ListenerAcceptor]), WebSocket ([WebSocketAcceptor]), and composite
// ([MultiAcceptor]) realizations.
type Acceptor interface {
	// serve blocks, delivering connections into sink until the stop
	// channel closes or the acceptor's source fails permanently.
	serve(sink acceptorSink, stop <-chan struct{})

	// shutdown releases the acceptor's resources, unblocking serve.
	// Called once, concurrently with serve.
	shutdown()
}

// acceptorSink is the worker-facing surface an acceptor delivers into.
type acceptorSink struct {
	// adoptTransport hands a connected transport to the worker for
	// session registration. A false return means the adapter is
	// shutting down and the caller must close the transport itself.
	adoptTransport func(tr transport) bool

	// dispatchRequest hands the worker the raw bytes of one
	// sessionless action request (the descriptor-passing action
	// socket). False again means shutdown.
	dispatchRequest func(payload []byte) bool

	// compression is the adapter's preferred codec for framed
	// transports built by the acceptor.
	compression wire.CompressionTag

	logger *slog.Logger
}

// MultiAcceptor fans several acceptance sources into one adapter, for
// applications that expose the same tree over more than one transport
// at once.
type MultiAcceptor struct {
	acceptors []Acceptor
}

func NewMultiAcceptor(acceptors ...Acceptor) *MultiAcceptor {
	return &MultiAcceptor{acceptors: acceptors}
}

func (m *MultiAcceptor) serve(sink acceptorSink, stop <-chan struct{}) {
	var wait sync.WaitGroup
	for _, acceptor := range m.acceptors {
		wait.Add(1)
		go func() {
			defer wait.Done()
			acceptor.serve(sink, stop)
		}()
	}
	wait.Wait()
}

func (m *MultiAcceptor) shutdown() {
	for _, acceptor := range m.acceptors {
		acceptor.shutdown()
	}
}
