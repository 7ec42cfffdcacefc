// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/canopy-a11y/canopy/client"
	"github.com/canopy-a11y/canopy/schema"
)

// streamEventMsg wraps one stream event for the bubbletea loop.
type streamEventMsg struct {
	event client.Event
}

// streamClosedMsg reports the end of the stream. A nil error is an
// orderly close from the service side.
type streamClosedMsg struct {
	err error
}

// actionResultMsg reports the outcome of a SendAction call.
type actionResultMsg struct {
	request schema.ActionRequest
	err     error
}

// streamSource pumps a client connection into a channel the model
// drains one event per bubbletea message.
//
// Goroutine: connection reader → events channel. SendAction is called
// from tea.Cmd goroutines; the client supports one concurrent reader
// plus one writer, and bubbletea runs commands one at a time here
// (every action command is returned alone, never batched).
type streamSource struct {
	client *client.Client
	events chan streamEventMsg
	closed chan streamClosedMsg
	cancel context.CancelFunc
}

func newStreamSource(c *client.Client) *streamSource {
	ctx, cancel := context.WithCancel(context.Background())
	s := &streamSource{
		client: c,
		events: make(chan streamEventMsg, 16),
		closed: make(chan streamClosedMsg, 1),
		cancel: cancel,
	}
	go s.pump(ctx)
	return s
}

func (s *streamSource) pump(ctx context.Context) {
	defer close(s.events)
	for {
		event, err := s.client.Next(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				s.closed <- streamClosedMsg{}
			} else {
				s.closed <- streamClosedMsg{err: err}
			}
			return
		}
		select {
		case s.events <- streamEventMsg{event: event}:
		case <-ctx.Done():
			s.closed <- streamClosedMsg{}
			return
		}
	}
}

// waitForEvent blocks for the next stream event or for stream end.
func (s *streamSource) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-s.events:
			if !ok {
				return <-s.closed
			}
			return msg
		case msg := <-s.closed:
			return msg
		}
	}
}

// sendAction frames and sends one action request.
func (s *streamSource) sendAction(request schema.ActionRequest) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{request: request, err: s.client.SendAction(request)}
	}
}

// stop cancels the pump and closes the connection.
func (s *streamSource) stop() {
	s.cancel()
	s.client.Close()
}
