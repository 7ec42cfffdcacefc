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

// ActionHandler receives action requests relayed from clients. The
// handler runs on the adapter's worker goroutine: it must return
// promptly and must not call back into the same adapter's Close. It
// may call Update and UpdateIfActive, but those can block on channel
// backpressure; handlers that react to actions by mutating the tree
// should hand the work to the application's own loop instead.
type ActionHandler interface {
	DoAction(request schema.ActionRequest)
}

// ActionHandlerFunc adapts a function to the ActionHandler interface.
type ActionHandlerFunc func(request schema.ActionRequest)

func (f ActionHandlerFunc) DoAction(request schema.ActionRequest) { f(request) }

var _ ActionHandler = ActionHandlerFunc(nil)

// Option configures an Adapter.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	compression wire.CompressionTag
}

// WithLogger sets the adapter's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCompression sets the preferred payload compression for framed
// transports. Defaults to zstd; raw descriptor-passed streams are
// never compressed regardless of this setting.
func WithCompression(tag wire.CompressionTag) Option {
	return func(o *options) { o.compression = tag }
}

// Adapter is the application-facing handle on the streaming service.
// All methods are safe for concurrent use from any goroutine; all
// work happens on the worker goroutine spawned by New.
type Adapter struct {
	commands  chan command
	updates   chan schema.TreeUpdate
	done      chan struct{}
	instances *liveInstances
	logger    *slog.Logger

	closeOnce sync.Once
}

// New starts the streaming service and returns its handle. The tree
// factory is not invoked here: it runs on first demand, either when
// the first client connects or when the first update arrives. A nil
// acceptor yields an adapter that serves no connections but still
// folds updates into its tree; a nil handler discards action
// requests.
func New(acceptor Acceptor, factory TreeFactory, handler ActionHandler, opts ...Option) *Adapter {
	o := options{
		logger:      slog.Default(),
		compression: wire.CompressionZstd,
	}
	for _, opt := range opts {
		opt(&o)
	}

	w := &worker{
		commands:    make(chan command, 64),
		updates:     make(chan schema.TreeUpdate, 16),
		accepts:     make(chan transport),
		events:      make(chan sessionEvent, 64),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		store:       newTreeStore(factory),
		handler:     handler,
		acceptor:    acceptor,
		sessions:    make(map[uint64]*session),
		instances:   newLiveInstances(),
		compression: o.compression,
		logger:      o.logger,
	}

	if acceptor != nil {
		sink := acceptorSink{
			adoptTransport: func(tr transport) bool {
				select {
				case w.accepts <- tr:
					return true
				case <-w.stop:
					return false
				}
			},
			dispatchRequest: func(payload []byte) bool {
				select {
				case w.events <- sessionEvent{kind: eventRequest, payload: payload}:
					return true
				case <-w.stop:
					return false
				}
			},
			compression: o.compression,
			logger:      o.logger,
		}
		w.wait.Add(1)
		// Goroutine: acceptance source → worker.
		go func() {
			defer w.wait.Done()
			acceptor.serve(sink, w.stop)
		}()
	}

	// Goroutine: the worker event loop.
	go w.run()

	return &Adapter{
		commands:  w.commands,
		updates:   w.updates,
		done:      w.done,
		instances: w.instances,
		logger:    o.logger,
	}
}

// Update folds an incremental update into the tree and, when clients
// are connected, streams the resulting full state to every one of
// them. With no clients connected the tree is still updated but
// nothing is serialized or sent. Blocks only on channel backpressure;
// after Close it is a no-op.
func (a *Adapter) Update(update schema.TreeUpdate) {
	select {
	case a.updates <- update:
	case <-a.done:
	}
}

// UpdateIfActive suppresses update work entirely while no client is
// connected: the factory is only invoked, and its update only
// serialized, when at least one client was connected at the time of
// the call. The factory runs on the calling goroutine; the serialized
// bytes are delivered to the clients that were connected at call time,
// and clients that disconnect in between are skipped.
//
// Applications whose tree diffs are expensive should prefer this over
// Update; the cost is that a client connecting after an idle stretch
// sees the state from its registration snapshot until the next update.
func (a *Adapter) UpdateIfActive(factory func() schema.TreeUpdate) {
	if !a.instances.active() {
		return
	}
	update := factory()
	payload, err := codec.Marshal(&update)
	if err != nil {
		a.logger.Error("encoding tree update", "error", err)
		return
	}
	destinations := a.instances.snapshotIDs()
	a.send(command{kind: commandApply, update: update})
	for _, destination := range destinations {
		a.send(command{kind: commandDeliver, destination: destination, payload: payload})
	}
}

// Active reports whether at least one client is currently connected.
// The answer can be stale by the time the caller acts on it.
func (a *Adapter) Active() bool {
	return a.instances.active()
}

// Close shuts the service down: stops accepting, tears down every
// client connection, waits for the worker and all its goroutines to
// exit. In-flight writes are cancelled rather than awaited. Close is
// idempotent and safe to call concurrently; every call blocks until
// the worker is gone.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.send(command{kind: commandShutdown})
	})
	<-a.done
	return nil
}

func (a *Adapter) send(cmd command) {
	select {
	case a.commands <- cmd:
	case <-a.done:
	}
}
