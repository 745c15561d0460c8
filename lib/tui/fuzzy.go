// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initFuzzy sync.Once

// FuzzyResult is the outcome of matching one text against a pattern.
// A zero Score means no match.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch scores text against pattern with fzf's V2 algorithm.
// Matching is case-insensitive. slab may be nil; pass one when matching
// many texts to reuse its scratch memory.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	initFuzzy.Do(func() { algo.Init("default") })

	// With caseSensitive false, fzf expects a lowercase pattern.
	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 || result.Start < 0 {
		return FuzzyResult{}
	}

	match := FuzzyResult{Score: result.Score}
	if positions != nil {
		match.Positions = slices.Clone(*positions)
		slices.Sort(match.Positions)
	}
	return match
}

// FuzzyFilter returns the items whose key matches query, best match
// first. Items with equal scores keep their input order. An empty or
// blank query returns items unchanged.
func FuzzyFilter[T any](items []T, key func(T) string, query string) []T {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	pattern := []rune(query)
	slab := util.MakeSlab(100*1024, 2048)

	type scored struct {
		item  T
		score int
	}
	var matches []scored
	for _, item := range items {
		if result := FuzzyMatch(key(item), pattern, slab); result.Score > 0 {
			matches = append(matches, scored{item: item, score: result.Score})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		return b.score - a.score
	})

	filtered := make([]T, len(matches))
	for index, match := range matches {
		filtered[index] = match.item
	}
	return filtered
}
