// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Canopy's standard CBOR encoding configuration.
//
// Canopy uses two serialization formats with a clear boundary:
//
//   - JSON for human-facing surfaces: scenario files for canopy-mock,
//     canopy-inspect --dump output, and CLI tooling.
//   - CBOR for the wire: tree snapshots, incremental updates, and
//     action requests exchanged between an adapter and its clients.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Canopy package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, which lets the adapter serialize a tree once and hand the same
// payload to every connection.
//
// For buffer-oriented operations (frame payloads, datagrams):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON or interact with CLI tooling.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. The schema package uses `json`
//     tags throughout: its types ride the CBOR wire and also appear
//     in scenario files and --dump output.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract.
package codec
