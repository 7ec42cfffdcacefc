// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuzzy wraps fzf's matching algorithm for interactive
// filtering in Canopy's terminal UIs. It exposes a single scoring
// entry point plus a reusable allocation slab for callers that match
// many candidates per keystroke.
package fuzzy

import (
	"sort"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fzf requires algo.Init to populate its character-class and bonus
// tables before any matching call; without it case folding is broken.
func init() {
	algo.Init("default")
}

// Result describes how well a pattern matched a candidate string.
type Result struct {
	// Score is fzf's match quality; zero means no match. Higher is
	// better, with bonuses for word boundaries and consecutive runs.
	Score int

	// Positions are the rune indices of the matched characters,
	// ascending. Empty when there is no match.
	Positions []int
}

// NewSlab allocates a scratch slab sized for interactive use. Pass it
// to every Match call in a filtering pass; it is reused across calls
// and must not be shared between goroutines.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// Match scores pattern against text, case-insensitively. A nil slab is
// accepted and simply allocates per call.
func Match(text string, pattern []rune, slab *util.Slab) Result {
	if len(pattern) == 0 {
		return Result{}
	}

	// fzf's smart-case contract: a lowercase pattern matches any case
	// only if the pattern itself is lowercase. Canopy's filters are
	// always case-insensitive, so fold the pattern here.
	folded := make([]rune, len(pattern))
	for i, r := range pattern {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		folded[i] = r
	}

	chars := util.ToChars([]byte(text))
	match, positions := algo.FuzzyMatchV2(false, true, true, &chars, folded, true, slab)
	if match.Score <= 0 {
		return Result{}
	}
	result := Result{Score: match.Score}
	if positions != nil {
		// fzf reports positions in reverse traversal order.
		result.Positions = *positions
		sort.Ints(result.Positions)
	}
	return result
}
