// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package client consumes a Canopy tree stream: it dials a service
// speaking the framed protocol from the wire package, surfaces the
// snapshot and update payloads as events, and sends action requests
// the other way. [Replica] maintains a local mirror of the remote tree
// from the event stream.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/canopy-a11y/canopy/lib/codec"
	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/wire"
)

// ErrClosed is returned by operations on a client that has been
// closed locally.
var ErrClosed = errors.New("client: closed")

// EventKind distinguishes the two payloads a stream carries.
type EventKind uint8

const (
	// EventSnapshot is the full state sent once at the start of the
	// stream.
	EventSnapshot EventKind = iota + 1
	// EventUpdate is an incremental or full-state update; apply it on
	// top of what came before.
	EventUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventUpdate:
		return "update"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Event is one decoded message from the stream.
type Event struct {
	Kind   EventKind
	Update schema.TreeUpdate
}

// frameConn abstracts the two connection flavors (byte stream and
// WebSocket) down to frame reads and writes.
type frameConn interface {
	readFrame() (wire.Frame, error)
	writeFrame(frameType wire.FrameType, payload []byte, compression wire.CompressionTag) error
	setReadDeadline(deadline time.Time) error
	close() error
}

// Option configures a Client.
type Option func(*Client)

// WithCompression sets the compression applied to outbound action
// frames. Defaults to none; action requests are small.
func WithCompression(tag wire.CompressionTag) Option {
	return func(c *Client) { c.compression = tag }
}

// Client is one connection to a tree stream. Next and SendAction may
// be used concurrently with each other (one reader, one writer); Next
// itself must not be called from two goroutines at once.
type Client struct {
	conn        frameConn
	compression wire.CompressionTag
}

// NewClient wraps an established stream connection.
func NewClient(conn net.Conn, opts ...Option) *Client {
	c := &Client{
		conn: &streamConn{
			conn:   conn,
			reader: bufio.NewReader(conn),
		},
		compression: wire.CompressionNone,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to a tree service over the given network and address
// ("unix" and a socket path, or "tcp" and host:port).
func Dial(ctx context.Context, network, address string, opts ...Option) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s %s: %w", network, address, err)
	}
	return NewClient(conn, opts...), nil
}

// DialWebSocket connects to a tree service over WebSocket. The URL
// uses the ws or wss scheme.
func DialWebSocket(ctx context.Context, url string, opts ...Option) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	c := &Client{
		conn:        &webSocketConn{conn: conn},
		compression: wire.CompressionNone,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Next blocks for the next event on the stream. It returns io.EOF when
// the service closes the stream and ctx's error when the context is
// cancelled; after a cancellation the connection state is undefined
// and the client should be closed.
func (c *Client) Next(ctx context.Context) (Event, error) {
	stop := context.AfterFunc(ctx, func() {
		c.conn.setReadDeadline(time.Now())
	})
	defer stop()

	for {
		frame, err := c.conn.readFrame()
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		var kind EventKind
		switch frame.Type {
		case wire.FrameSnapshot:
			kind = EventSnapshot
		case wire.FrameUpdate:
			kind = EventUpdate
		case wire.FrameGoodbye:
			return Event{}, io.EOF
		default:
			// Skip frame types this side does not consume.
			continue
		}

		var update schema.TreeUpdate
		if err := codec.Unmarshal(frame.Payload, &update); err != nil {
			return Event{}, fmt.Errorf("client: decoding %v payload: %w", frame.Type, err)
		}
		return Event{Kind: kind, Update: update}, nil
	}
}

// SendAction asks the application to perform an action on a node.
func (c *Client) SendAction(request schema.ActionRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	payload, err := codec.Marshal(&request)
	if err != nil {
		return fmt.Errorf("client: encoding action request: %w", err)
	}
	if err := c.conn.writeFrame(wire.FrameAction, payload, c.compression); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("client: sending action request: %w", err)
	}
	return nil
}

// Close announces an orderly departure to the service, best effort,
// and closes the connection.
func (c *Client) Close() error {
	c.conn.writeFrame(wire.FrameGoodbye, nil, wire.CompressionNone)
	return c.conn.close()
}

// streamConn speaks the framed protocol directly over a byte stream.
type streamConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (s *streamConn) readFrame() (wire.Frame, error) {
	return wire.ReadFrame(s.reader)
}

func (s *streamConn) writeFrame(frameType wire.FrameType, payload []byte, compression wire.CompressionTag) error {
	return wire.WriteFrame(s.conn, frameType, payload, compression)
}

func (s *streamConn) setReadDeadline(deadline time.Time) error {
	return s.conn.SetReadDeadline(deadline)
}

func (s *streamConn) close() error {
	return s.conn.Close()
}

// webSocketConn speaks the framed protocol with one frame per binary
// WebSocket message.
type webSocketConn struct {
	conn *websocket.Conn
}

func (w *webSocketConn) readFrame() (wire.Frame, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return wire.Frame{}, io.EOF
			}
			return wire.Frame{}, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		return wire.DecodeFrame(data)
	}
}

func (w *webSocketConn) writeFrame(frameType wire.FrameType, payload []byte, compression wire.CompressionTag) error {
	data, err := wire.EncodeFrame(frameType, payload, compression)
	if err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (w *webSocketConn) setReadDeadline(deadline time.Time) error {
	return w.conn.SetReadDeadline(deadline)
}

func (w *webSocketConn) close() error {
	return w.conn.Close()
}
