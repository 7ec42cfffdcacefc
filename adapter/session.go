// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"sync"
)

// session is one registered client connection. The worker owns the
// registry entry and is the only goroutine that enqueues payloads or
// tears the session down; two pump goroutines own the transport's
// write and read sides.
//
// Outbound payloads go through an ordered queue rather than directly
// to the transport so a slow client never blocks the worker. The wake
// channel has capacity one and works as a level trigger: enqueue makes
// a non-blocking send, the writer drains the queue completely each
// time it observes a signal.
type session struct {
	id        uint64
	transport transport

	mu    sync.Mutex
	kinds []payloadKind
	queue [][]byte
	wake  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
}

func newSession(id uint64, tr transport) *session {
	return &session{
		id:        id,
		transport: tr,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// enqueue appends one payload to the outbound queue and nudges the
// writer. Payload slices are shared between sessions during fan-out
// and must not be mutated.
func (s *session) enqueue(kind payloadKind, payload []byte) {
	s.mu.Lock()
	s.kinds = append(s.kinds, kind)
	s.queue = append(s.queue, payload)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dequeue pops the head of the outbound queue.
func (s *session) dequeue() (payloadKind, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, nil, false
	}
	kind, payload := s.kinds[0], s.queue[0]
	s.kinds = s.kinds[1:]
	s.queue = s.queue[1:]
	return kind, payload, true
}

// start launches the session's pump goroutines. Events they emit are
// delivered on events; stop aborts delivery during adapter shutdown so
// the pumps never block on a worker that has moved on.
func (s *session) start(events chan<- sessionEvent, stop <-chan struct{}, wait *sync.WaitGroup) {
	wait.Add(2)

	// Goroutine: outbound queue → transport.
	go func() {
		defer wait.Done()
		s.writeLoop(events, stop)
	}()

	// Goroutine: transport → worker events.
	go func() {
		defer wait.Done()
		s.readLoop(events, stop)
	}()
}

func (s *session) writeLoop(events chan<- sessionEvent, stop <-chan struct{}) {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			kind, payload, ok := s.dequeue()
			if !ok {
				break
			}
			if err := s.transport.writePayload(kind, payload); err != nil {
				sendSessionEvent(events, stop, sessionEvent{session: s, kind: eventClosed, err: err})
				return
			}
		}
	}
}

func (s *session) readLoop(events chan<- sessionEvent, stop <-chan struct{}) {
	err := s.transport.readRequests(func(payload []byte) {
		sendSessionEvent(events, stop, sessionEvent{session: s, kind: eventRequest, payload: payload})
	})
	sendSessionEvent(events, stop, sessionEvent{session: s, kind: eventClosed, err: err})
}

// teardown closes the transport and releases both pump goroutines.
// Idempotent; called by the worker on deregistration and again for
// every live session during shutdown.
func (s *session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.transport.close()
	})
}

// sendSessionEvent delivers ev unless the adapter is shutting down, in
// which case the worker no longer consumes events and the message is
// dropped.
func sendSessionEvent(events chan<- sessionEvent, stop <-chan struct{}, ev sessionEvent) {
	select {
	case events <- ev:
	case <-stop:
	}
}
