// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"errors"
	"net"
)

// ListenerAcceptor accepts framed-protocol clients from a net.Listener
// (a Unix socket or TCP port the application opened). The acceptor
// owns the listener and closes it on adapter shutdown.
type ListenerAcceptor struct {
	listener net.Listener
}

func NewListenerAcceptor(listener net.Listener) *ListenerAcceptor {
	return &ListenerAcceptor{listener: listener}
}

// Addr returns the listener's address, useful when listening on an
// ephemeral TCP port.
func (a *ListenerAcceptor) Addr() net.Addr {
	return a.listener.Addr()
}

func (a *ListenerAcceptor) serve(sink acceptorSink, stop <-chan struct{}) {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-stop:
				return
			default:
			}
			sink.logger.Error("accept failed", "error", err)
			continue
		}
		tr := newFramedTransport(conn, sink.compression)
		if !sink.adoptTransport(tr) {
			tr.close()
			return
		}
	}
}

func (a *ListenerAcceptor) shutdown() {
	a.listener.Close()
}
