// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameTypeString(t *testing.T) {
	tests := []struct {
		frameType FrameType
		want      string
	}{
		{FrameSnapshot, "snapshot"},
		{FrameUpdate, "update"},
		{FrameAction, "action"},
		{FrameGoodbye, "goodbye"},
		{FrameType(0xEE), "unknown(0xee)"},
	}
	for _, tt := range tests {
		if got := tt.frameType.String(); got != tt.want {
			t.Errorf("FrameType(%d).String() = %q, want %q", tt.frameType, got, tt.want)
		}
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	payload := []byte("small payload below the compression threshold")

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, FrameSnapshot, payload, CompressionZstd); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	frame, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Type != FrameSnapshot {
		t.Errorf("frame type = %s, want snapshot", frame.Type)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Errorf("payload = %q, want %q", frame.Payload, payload)
	}
}

func TestSmallPayloadSkipsCompression(t *testing.T) {
	payload := bytes.Repeat([]byte("ab"), 100) // 200 bytes, under threshold

	frame, err := EncodeFrame(FrameUpdate, payload, CompressionZstd)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if got := CompressionTag(frame[1]); got != CompressionNone {
		t.Errorf("small payload compressed with %s, want none", got)
	}
}

func TestLargePayloadCompressed(t *testing.T) {
	payload := compressibleData(16 * 1024)

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			encoded, err := EncodeFrame(FrameSnapshot, payload, tag)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			if got := CompressionTag(encoded[1]); got != tag {
				t.Errorf("compression tag on wire = %s, want %s", got, tag)
			}
			if len(encoded) >= frameHeaderLength+len(payload) {
				t.Errorf("frame not smaller than raw payload: %d >= %d",
					len(encoded), frameHeaderLength+len(payload))
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if !bytes.Equal(decoded.Payload, payload) {
				t.Error("compressed roundtrip corrupted payload")
			}
		})
	}
}

func TestIncompressiblePayloadFallsBackToNone(t *testing.T) {
	// Zstd cannot shrink random bytes; the frame must carry them
	// uncompressed rather than fail.
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i*7 + i>>3)
	}

	encoded, err := EncodeFrame(FrameUpdate, payload, CompressionZstd)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	decoded, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Error("fallback roundtrip corrupted payload")
	}
}

func TestGoodbyeFrameEmptyPayload(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, FrameGoodbye, nil, CompressionNone); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got, want := buffer.Len(), frameHeaderLength; got != want {
		t.Errorf("goodbye frame is %d bytes, want %d", got, want)
	}

	frame, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Type != FrameGoodbye || len(frame.Payload) != 0 {
		t.Errorf("goodbye frame = %+v, want empty goodbye", frame)
	}
}

func TestMultipleFramesSequential(t *testing.T) {
	var buffer bytes.Buffer
	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
		[]byte("third"),
	}
	for _, p := range payloads {
		if err := WriteFrame(&buffer, FrameUpdate, p, CompressionNone); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range payloads {
		frame, err := ReadFrame(&buffer)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(frame.Payload, want) {
			t.Errorf("frame %d payload = %q, want %q", i, frame.Payload, want)
		}
	}

	if _, err := ReadFrame(&buffer); err != io.EOF {
		t.Errorf("exhausted stream: got %v, want io.EOF", err)
	}
}

func TestEncodeOversizedPayloadRejected(t *testing.T) {
	payload := make([]byte, MaxPayloadLength+1)
	_, err := EncodeFrame(FrameSnapshot, payload, CompressionNone)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized encode: got %v, want ErrPayloadTooLarge", err)
	}
}

func TestReadOversizedFrameRejected(t *testing.T) {
	var header [frameHeaderLength]byte
	header[0] = byte(FrameSnapshot)
	header[1] = byte(CompressionNone)
	binary.BigEndian.PutUint32(header[2:6], MaxPayloadLength+1)
	binary.BigEndian.PutUint32(header[6:10], MaxPayloadLength+1)

	_, err := ReadFrame(bytes.NewReader(header[:]))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized read: got %v, want ErrPayloadTooLarge", err)
	}
}

func TestReadTruncatedFrame(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, FrameUpdate, []byte("payload"), CompressionNone); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := buffer.Bytes()[:buffer.Len()-3]

	_, err := ReadFrame(bytes.NewReader(truncated))
	if err == nil || err == io.EOF {
		t.Errorf("truncated frame: got %v, want read error", err)
	}
}

func TestReadTruncatedHeaderMidway(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{byte(FrameUpdate), 0, 0}))
	if err == nil || err == io.EOF {
		t.Errorf("truncated header: got %v, want read error", err)
	}
}

func TestDecodeFrameLengthMismatch(t *testing.T) {
	encoded, err := EncodeFrame(FrameUpdate, []byte("payload"), CompressionNone)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	_, err = DecodeFrame(append(encoded, 0xFF))
	if err == nil {
		t.Error("trailing garbage should be rejected")
	}
}
