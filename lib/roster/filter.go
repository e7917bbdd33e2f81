// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roster

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/chatsync/lib/schema/chat"
)

var initAlgo sync.Once

// Match is one Filter result.
type Match struct {
	Conversation chat.Conversation

	// Title is the text that was matched.
	Title string

	// Score is zero for an empty query.
	Score int

	// Positions are the matched rune offsets in Title, for
	// highlighting.
	Positions []int
}

// Filter fuzzy-matches query against the titles of every conversation,
// groups and private chats alike. Results are ordered by score, then
// by recent activity. An empty query returns everything by recency.
func (m *Manager) Filter(query string) []Match {
	initAlgo.Do(func() { algo.Init("default") })

	pattern := []rune(strings.ToLower(strings.TrimSpace(query)))
	slab := util.MakeSlab(100*1024, 2048)

	var matches []Match
	for _, kind := range []chat.Kind{chat.KindGroup, chat.KindPrivate} {
		for _, conversation := range m.lists[kind] {
			title := conversation.Title(m.self)
			match := Match{Conversation: conversation.Clone(), Title: title}
			if len(pattern) > 0 {
				score, positions, ok := fuzzyMatch(title, pattern, slab)
				if !ok {
					continue
				}
				match.Score, match.Positions = score, positions
			}
			matches = append(matches, match)
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return b.Conversation.LastActivity().Compare(a.Conversation.LastActivity())
	})
	return matches
}

// fuzzyMatch lowercases text and runs fzf's v2 matcher. pattern must
// already be lowercase.
func fuzzyMatch(text string, pattern []rune, slab *util.Slab) (int, []int, bool) {
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, pattern, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return 0, nil, false
	}
	var offsets []int
	if positions != nil {
		offsets = slices.Clone(*positions)
		slices.Sort(offsets)
	}
	return result.Score, offsets, true
}
