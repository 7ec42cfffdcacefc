// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the framed binary protocol spoken on
// stream transports between a Canopy service and its clients.
//
// Each frame is a 10-byte header followed by the payload:
//
//	[1 byte type] [1 byte compression tag]
//	[4 bytes on-wire payload length, big-endian uint32]
//	[4 bytes uncompressed payload length, big-endian uint32]
//	[payload]
//
// Payloads are CBOR values (see lib/codec); the compression tag says
// how the payload bytes were transformed after encoding. The two
// lengths are equal for uncompressed frames. WebSocket transports
// carry the identical frame encoding inside binary messages, so one
// codec serves every transport.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameType identifies what a frame carries.
type FrameType byte

const (
	// FrameSnapshot carries a full-state tree update. Server→client,
	// always the first frame on a new connection.
	FrameSnapshot FrameType = 0x01

	// FrameUpdate carries a tree update reflecting a change (full
	// state or delta, per schema.TreeUpdate semantics). Server→client.
	FrameUpdate FrameType = 0x02

	// FrameAction carries an action request. Client→server. A
	// connection may send any number of action frames.
	FrameAction FrameType = 0x03

	// FrameGoodbye signals orderly close. Either direction, empty
	// payload. The receiver tears the connection down without
	// treating it as an error.
	FrameGoodbye FrameType = 0x04
)

// String returns the frame type's protocol name.
func (t FrameType) String() string {
	switch t {
	case FrameSnapshot:
		return "snapshot"
	case FrameUpdate:
		return "update"
	case FrameAction:
		return "action"
	case FrameGoodbye:
		return "goodbye"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// frameHeaderLength is the fixed header size: 1 byte type + 1 byte
// compression tag + 4 bytes on-wire length + 4 bytes uncompressed
// length.
const frameHeaderLength = 10

// MaxPayloadLength caps the uncompressed payload size. 64 MiB leaves
// ample headroom for snapshots of very large trees; a typical desktop
// application tree serializes to tens of kilobytes.
const MaxPayloadLength = 64 * 1024 * 1024

// ErrPayloadTooLarge is returned when a payload exceeds
// MaxPayloadLength, on encode and on decode.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum length")

// Frame is one decoded protocol frame. Payload is always the
// uncompressed bytes.
type Frame struct {
	Type    FrameType
	Payload []byte
}

// EncodeFrame builds a complete frame. The payload is compressed with
// the preferred tag when it is large enough to benefit; incompressible
// or small payloads are sent unchanged under CompressionNone.
func EncodeFrame(frameType FrameType, payload []byte, preferred CompressionTag) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	tag := CompressionNone
	body := payload
	if preferred != CompressionNone && len(payload) >= compressThreshold {
		compressed, err := Compress(payload, preferred)
		switch {
		case err == nil:
			tag = preferred
			body = compressed
		case IsIncompressible(err):
			// Keep the uncompressed form.
		default:
			return nil, fmt.Errorf("encode %s frame: %w", frameType, err)
		}
	}

	frame := make([]byte, frameHeaderLength+len(body))
	frame[0] = byte(frameType)
	frame[1] = byte(tag)
	binary.BigEndian.PutUint32(frame[2:6], uint32(len(body)))
	binary.BigEndian.PutUint32(frame[6:10], uint32(len(payload)))
	copy(frame[frameHeaderLength:], body)
	return frame, nil
}

// DecodeFrame parses one complete frame from data, decompressing the
// payload. The entire slice must be exactly one frame.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < frameHeaderLength {
		return Frame{}, fmt.Errorf("wire: frame too short: %d bytes", len(data))
	}
	frameType := FrameType(data[0])
	tag := CompressionTag(data[1])
	wireLength := binary.BigEndian.Uint32(data[2:6])
	uncompressedLength := binary.BigEndian.Uint32(data[6:10])

	if uncompressedLength > MaxPayloadLength {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, uncompressedLength)
	}
	if int(wireLength) != len(data)-frameHeaderLength {
		return Frame{}, fmt.Errorf("wire: frame length %d does not match remaining %d bytes",
			wireLength, len(data)-frameHeaderLength)
	}

	payload, err := Decompress(data[frameHeaderLength:], tag, int(uncompressedLength))
	if err != nil {
		return Frame{}, fmt.Errorf("decode %s frame: %w", frameType, err)
	}
	return Frame{Type: frameType, Payload: payload}, nil
}

// WriteFrame encodes a frame and writes it to w in a single Write
// call, so concurrent writers on a shared transport never interleave
// partial frames.
func WriteFrame(w io.Writer, frameType FrameType, payload []byte, preferred CompressionTag) error {
	frame, err := EncodeFrame(frameType, payload, preferred)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", frameType, err)
	}
	return nil
}

// ReadFrame reads one framed message from r. Returns io.EOF only for
// a clean EOF at a frame boundary; a truncated frame is reported as
// io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	frameType := FrameType(header[0])
	tag := CompressionTag(header[1])
	wireLength := binary.BigEndian.Uint32(header[2:6])
	uncompressedLength := binary.BigEndian.Uint32(header[6:10])

	if wireLength > MaxPayloadLength {
		return Frame{}, fmt.Errorf("%w: %d bytes on wire", ErrPayloadTooLarge, wireLength)
	}
	if uncompressedLength > MaxPayloadLength {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, uncompressedLength)
	}

	body := make([]byte, wireLength)
	if wireLength > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, fmt.Errorf("read %s frame payload: %w", frameType, err)
		}
	}

	payload, err := Decompress(body, tag, int(uncompressedLength))
	if err != nil {
		return Frame{}, fmt.Errorf("read %s frame: %w", frameType, err)
	}
	return Frame{Type: frameType, Payload: payload}, nil
}
