// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need unique identifiers for socket names, request IDs, or
// payloads that must be distinguishable in logs.
//
//	name := testutil.UniqueID("sock")      // "sock-1", "sock-2", ...
//	label := testutil.UniqueID("button")   // "button-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
