// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the accessibility tree data model carried on
// the Canopy wire: nodes, tree-level info, incremental updates, and
// action requests.
//
// A [TreeUpdate] is the unit of change. It upserts nodes by ID,
// optionally replaces tree-level info, and names the focused node. The
// same type describes both a full snapshot (every live node present)
// and an incremental delta (only changed nodes present); a consumer
// applies either the same way.
//
// All types carry `json` struct tags: they serialize as CBOR on the
// wire (fxamacker/cbor reads json tags as fallback) and as JSON in
// scenario files and inspector dumps. See lib/codec for the tag rules.
package schema
