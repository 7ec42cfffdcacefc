// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketAcceptor accepts framed-protocol clients over WebSocket.
// It is an http.Handler: mount it on whatever mux and server the
// application already runs. Each upgraded connection becomes a
// session carrying one frame per binary message.
//
// The acceptor accepts any origin; Canopy services listen on local
// interfaces and origin policy belongs to the embedding server.
type WebSocketAcceptor struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	sink    acceptorSink
	serving bool
	stopped bool
}

func NewWebSocketAcceptor() *WebSocketAcceptor {
	return &WebSocketAcceptor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// serve records the sink and parks until shutdown. Connections arrive
// through ServeHTTP on the embedding server's goroutines.
func (a *WebSocketAcceptor) serve(sink acceptorSink, stop <-chan struct{}) {
	a.mu.Lock()
	a.sink = sink
	a.serving = true
	a.mu.Unlock()
	<-stop
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

func (a *WebSocketAcceptor) shutdown() {}

func (a *WebSocketAcceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	sink, ready := a.sink, a.serving && !a.stopped
	a.mu.Unlock()
	if !ready {
		http.Error(w, "tree service unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the failure response.
		sink.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	tr := newWebSocketTransport(conn, sink.compression)
	if !sink.adoptTransport(tr) {
		tr.close()
	}
}
