// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"fmt"
	"io"
	"net"

	"github.com/gorilla/websocket"

	"github.com/canopy-a11y/canopy/lib/codec"
	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/wire"
)

// payloadKind distinguishes the first payload a session ever sends
// from everything after it. Framed transports surface the distinction
// as a frame type; raw streams do not carry it at all.
type payloadKind uint8

const (
	payloadSnapshot payloadKind = iota + 1
	payloadUpdate
)

// transport is the byte-level surface a session drives. Exactly one
// goroutine calls writePayload, one calls readRequests, and close may
// be called concurrently with both to unblock them.
type transport interface {
	// writePayload sends one serialized tree payload to the client.
	writePayload(kind payloadKind, payload []byte) error

	// readRequests blocks, handing the raw bytes of each complete
	// inbound action request to emit, until the client disconnects.
	// It returns nil on an orderly end of stream and the transport
	// error otherwise.
	readRequests(emit func(payload []byte)) error

	close() error
}

// rawStreamTransport serves a descriptor-passed byte stream. Outbound
// payloads are written back to back with no framing; the client is
// expected to decode consecutive concatenated values. Inbound, the
// whole stream up to EOF is one optional action request.
type rawStreamTransport struct {
	conn net.Conn
}

func newRawStreamTransport(conn net.Conn) *rawStreamTransport {
	return &rawStreamTransport{conn: conn}
}

func (t *rawStreamTransport) writePayload(_ payloadKind, payload []byte) error {
	if _, err := t.conn.Write(payload); err != nil {
		return fmt.Errorf("adapter: write payload: %w", err)
	}
	return nil
}

func (t *rawStreamTransport) readRequests(emit func(payload []byte)) error {
	var accumulated []byte
	chunk := make([]byte, 4096)
	for {
		n, err := t.conn.Read(chunk)
		if n > 0 {
			if len(accumulated)+n > wire.MaxPayloadLength {
				return fmt.Errorf("adapter: inbound request exceeds %d bytes", wire.MaxPayloadLength)
			}
			accumulated = append(accumulated, chunk[:n]...)
		}
		if err == io.EOF {
			// An empty stream is a plain disconnect, not a
			// request.
			if len(accumulated) > 0 {
				emit(accumulated)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("adapter: read request: %w", err)
		}
	}
}

func (t *rawStreamTransport) close() error {
	return t.conn.Close()
}

// framedTransport serves the framed protocol from the wire package
// over any stream connection. Clients may send any number of action
// frames and announce an orderly departure with a goodbye frame.
type framedTransport struct {
	conn        net.Conn
	compression wire.CompressionTag
}

func newFramedTransport(conn net.Conn, compression wire.CompressionTag) *framedTransport {
	return &framedTransport{conn: conn, compression: compression}
}

func (t *framedTransport) writePayload(kind payloadKind, payload []byte) error {
	return wire.WriteFrame(t.conn, frameTypeFor(kind), payload, t.compression)
}

func (t *framedTransport) readRequests(emit func(payload []byte)) error {
	for {
		frame, err := wire.ReadFrame(t.conn)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch frame.Type {
		case wire.FrameAction:
			emit(frame.Payload)
		case wire.FrameGoodbye:
			return nil
		default:
			// Tolerate frame types this side does not consume.
		}
	}
}

func (t *framedTransport) close() error {
	return t.conn.Close()
}

// webSocketTransport carries the same framed protocol with each frame
// wrapped in one binary WebSocket message.
type webSocketTransport struct {
	conn        *websocket.Conn
	compression wire.CompressionTag
}

func newWebSocketTransport(conn *websocket.Conn, compression wire.CompressionTag) *webSocketTransport {
	return &webSocketTransport{conn: conn, compression: compression}
}

func (t *webSocketTransport) writePayload(kind payloadKind, payload []byte) error {
	data, err := wire.EncodeFrame(frameTypeFor(kind), payload, t.compression)
	if err != nil {
		return err
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("adapter: write payload: %w", err)
	}
	return nil
}

func (t *webSocketTransport) readRequests(emit func(payload []byte)) error {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("adapter: read request: %w", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		frame, err := wire.DecodeFrame(data)
		if err != nil {
			// Malformed inbound data is discarded, not fatal.
			continue
		}
		switch frame.Type {
		case wire.FrameAction:
			emit(frame.Payload)
		case wire.FrameGoodbye:
			return nil
		}
	}
}

func (t *webSocketTransport) close() error {
	return t.conn.Close()
}

func frameTypeFor(kind payloadKind) wire.FrameType {
	if kind == payloadSnapshot {
		return wire.FrameSnapshot
	}
	return wire.FrameUpdate
}

// decodeRequest turns raw inbound bytes into a validated action
// request. Both failure modes, undecodable bytes and a structurally
// empty request, are reported the same way; callers discard silently.
func decodeRequest(payload []byte) (schema.ActionRequest, error) {
	var request schema.ActionRequest
	if err := codec.Unmarshal(payload, &request); err != nil {
		return schema.ActionRequest{}, err
	}
	if err := request.Validate(); err != nil {
		return schema.ActionRequest{}, err
	}
	return request, nil
}
