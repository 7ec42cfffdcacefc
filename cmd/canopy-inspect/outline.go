// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/util"

	"github.com/canopy-a11y/canopy/lib/fuzzy"
	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/tree"
)

// outlineRow is one line of the tree outline: a node with its
// indentation depth and a precomputed search string.
type outlineRow struct {
	id    schema.NodeID
	depth int
	node  schema.Node

	// searchText is what the fuzzy filter runs against.
	searchText string

	// score is the fuzzy match score when a filter is active, zero
	// otherwise.
	score int
}

// buildOutline flattens the tree depth-first into display rows.
func buildOutline(t *tree.Tree) []outlineRow {
	if t == nil {
		return nil
	}
	rows := make([]outlineRow, 0, t.NodeCount())
	t.Walk(func(node schema.Node, depth int) bool {
		rows = append(rows, outlineRow{
			id:         node.ID,
			depth:      depth,
			node:       node,
			searchText: searchText(node),
		})
		return true
	})
	return rows
}

// searchText joins the fields the filter should find a node by.
func searchText(node schema.Node) string {
	parts := []string{string(node.Role)}
	if node.Label != "" {
		parts = append(parts, node.Label)
	}
	if node.Value != "" {
		parts = append(parts, node.Value)
	}
	parts = append(parts, fmt.Sprintf("#%d", node.ID))
	return strings.Join(parts, " ")
}

// filterOutline narrows rows to those matching the query, best match
// first (ties keep tree order). An empty query returns rows unchanged.
func filterOutline(rows []outlineRow, query string, slab *util.Slab) []outlineRow {
	if query == "" {
		return rows
	}
	pattern := []rune(query)
	matched := make([]outlineRow, 0, len(rows))
	for _, row := range rows {
		result := fuzzy.Match(row.searchText, pattern, slab)
		if result.Score <= 0 {
			continue
		}
		row.score = result.Score
		matched = append(matched, row)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})
	return matched
}

// rowIndex returns the position of a node in rows, or -1.
func rowIndex(rows []outlineRow, id schema.NodeID) int {
	for i, row := range rows {
		if row.id == id {
			return i
		}
	}
	return -1
}
