// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package composer

import (
	"regexp"
	"sort"
)

// shortcodes is the built-in emoji table.
var shortcodes = map[string]string{
	"smile":      "😄",
	"grin":       "😁",
	"joy":        "😂",
	"wink":       "😉",
	"heart":      "❤️",
	"thumbsup":   "👍",
	"+1":         "👍",
	"thumbsdown": "👎",
	"clap":       "👏",
	"fire":       "🔥",
	"tada":       "🎉",
	"ticket":     "🎟️",
	"music":      "🎵",
	"star":       "⭐",
	"eyes":       "👀",
	"wave":       "👋",
	"pray":       "🙏",
	"cry":        "😢",
	"thinking":   "🤔",
	"ok":         "👌",
}

var shortcodePattern = regexp.MustCompile(`:([a-z0-9_+\-]+):`)

// ExpandShortcodes replaces known :name: shortcodes with their emoji.
// Unknown shortcodes are left as typed.
func ExpandShortcodes(text string) string {
	return shortcodePattern.ReplaceAllStringFunc(text, func(match string) string {
		if emoji, ok := shortcodes[match[1:len(match)-1]]; ok {
			return emoji
		}
		return match
	})
}

// Shortcodes returns the known shortcode names, sorted.
func Shortcodes() []string {
	names := make([]string, 0, len(shortcodes))
	for name := range shortcodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
