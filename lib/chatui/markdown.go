// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	bodyParser     goldmark.Markdown
	bodyParserOnce sync.Once
)

func getBodyParser() goldmark.Markdown {
	bodyParserOnce.Do(func() {
		bodyParser = goldmark.New(
			goldmark.WithExtensions(
				extension.Strikethrough,
				extension.Linkify,
			),
		)
	})
	return bodyParser
}

// renderMessageBody renders chat message content as styled, wrapped
// terminal text. Content is markdown: emphasis, code spans, fenced
// code (highlighted), quotes and lists are styled; everything else is
// shown as written. Unlike document markdown, single newlines are
// kept, since people press shift+enter in a chat on purpose.
func renderMessageBody(content string, theme Theme, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	source := []byte(content)
	document := getBodyParser().Parser().Parse(text.NewReader(source))

	renderer := &bodyRenderer{source: source, theme: theme, width: width}
	ast.Walk(document, renderer.walk)

	if len(renderer.lines) == 0 {
		return wrapText(content, width)
	}
	return strings.Join(renderer.lines, "\n")
}

// bodyRenderer accumulates inline content per block and emits wrapped,
// prefixed lines when the block closes.
type bodyRenderer struct {
	source []byte
	theme  Theme
	width  int

	lines  []string
	inline strings.Builder

	// prefix is prepended to every emitted line (quote bars, list
	// continuation indent). bullet replaces it for the next line only.
	prefix []string
	bullet string

	// gap requests a blank line before the next block.
	gap   bool
	lists []bodyList

	bold, italic, strike int
}

type bodyList struct {
	ordered bool
	next    int
	tight   bool
}

func (renderer *bodyRenderer) linePrefix() string {
	return strings.Join(renderer.prefix, "")
}

func (renderer *bodyRenderer) inTightList() bool {
	return len(renderer.lists) > 0 && renderer.lists[len(renderer.lists)-1].tight
}

// emit wraps block to the width left after the prefix and appends it.
func (renderer *bodyRenderer) emit(block string, wrapLines bool) {
	if renderer.gap && len(renderer.lines) > 0 {
		renderer.lines = append(renderer.lines, strings.TrimRight(renderer.linePrefix(), " "))
	}
	renderer.gap = false

	prefix := renderer.linePrefix()
	available := max(renderer.width-ansi.StringWidth(prefix), 8)
	if wrapLines {
		block = wrapText(block, available)
	}
	for index, line := range strings.Split(block, "\n") {
		lead := prefix
		if index == 0 && renderer.bullet != "" {
			lead = renderer.bullet
			renderer.bullet = ""
		}
		if !wrapLines {
			line = ansi.Truncate(line, available, "…")
		}
		renderer.lines = append(renderer.lines, lead+line)
	}
}

func (renderer *bodyRenderer) flush() {
	content := renderer.inline.String()
	renderer.inline.Reset()
	if content == "" {
		return
	}
	renderer.emit(content, true)
}

func (renderer *bodyRenderer) style() lipgloss.Style {
	style := lipgloss.NewStyle()
	if renderer.bold > 0 {
		style = style.Bold(true)
	}
	if renderer.italic > 0 {
		style = style.Italic(true)
	}
	if renderer.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style
}

func (renderer *bodyRenderer) faint(value string) string {
	return lipgloss.NewStyle().Foreground(renderer.theme.FaintText).Render(value)
}

func (renderer *bodyRenderer) segmentText(lines *text.Segments) string {
	var builder strings.Builder
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		builder.Write(segment.Value(renderer.source))
	}
	return builder.String()
}

func (renderer *bodyRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			renderer.flush()
			if !renderer.inTightList() {
				renderer.gap = true
			}
		}

	case *ast.Heading:
		if entering {
			renderer.bold++
		} else {
			renderer.bold--
			renderer.flush()
			renderer.gap = true
		}

	case *ast.FencedCodeBlock:
		if entering {
			code := strings.TrimRight(renderer.segmentText(node.Lines()), "\n")
			renderer.emit(renderer.highlight(code, string(node.Language(renderer.source))), false)
			renderer.gap = true
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		if entering {
			code := strings.TrimRight(renderer.segmentText(node.Lines()), "\n")
			renderer.emit(renderer.faint(code), false)
			renderer.gap = true
		}
		return ast.WalkSkipChildren, nil

	case *ast.HTMLBlock:
		if entering {
			renderer.emit(strings.TrimRight(renderer.segmentText(node.Lines()), "\n"), true)
			renderer.gap = true
		}
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			bar := lipgloss.NewStyle().Foreground(renderer.theme.BorderColor).Render("│") + " "
			renderer.prefix = append(renderer.prefix, bar)
		} else {
			renderer.prefix = renderer.prefix[:len(renderer.prefix)-1]
			renderer.gap = true
		}

	case *ast.List:
		if entering {
			renderer.lists = append(renderer.lists, bodyList{
				ordered: node.IsOrdered(),
				next:    node.Start,
				tight:   node.IsTight,
			})
		} else {
			renderer.lists = renderer.lists[:len(renderer.lists)-1]
			renderer.gap = true
		}

	case *ast.ListItem:
		if entering {
			list := &renderer.lists[len(renderer.lists)-1]
			marker := "• "
			if list.ordered {
				marker = fmt.Sprintf("%d. ", list.next)
				list.next++
			}
			renderer.bullet = renderer.linePrefix() + marker
			renderer.prefix = append(renderer.prefix, strings.Repeat(" ", ansi.StringWidth(marker)))
		} else {
			renderer.prefix = renderer.prefix[:len(renderer.prefix)-1]
		}

	case *ast.ThematicBreak:
		if entering {
			rule := strings.Repeat("─", max(renderer.width-ansi.StringWidth(renderer.linePrefix()), 1))
			renderer.emit(renderer.faint(rule), false)
		}

	case *ast.Text:
		if entering {
			renderer.inline.WriteString(renderer.style().Render(string(node.Segment.Value(renderer.source))))
			if node.SoftLineBreak() || node.HardLineBreak() {
				renderer.inline.WriteString("\n")
			}
		}

	case *ast.String:
		if entering {
			renderer.inline.WriteString(renderer.style().Render(string(node.Value)))
		}

	case *ast.Emphasis:
		counter := &renderer.italic
		if node.Level >= 2 {
			counter = &renderer.bold
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case *extast.Strikethrough:
		if entering {
			renderer.strike++
		} else {
			renderer.strike--
		}

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch child := child.(type) {
				case *ast.Text:
					code.Write(child.Segment.Value(renderer.source))
				case *ast.String:
					code.Write(child.Value)
				}
			}
			renderer.inline.WriteString(renderer.faint(code.String()))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Link:
		if !entering && len(node.Destination) > 0 {
			renderer.inline.WriteString(" " + renderer.faint("("+string(node.Destination)+")"))
		}

	case *ast.AutoLink:
		if entering {
			link := lipgloss.NewStyle().Foreground(renderer.theme.FocusBorderColor).Underline(true)
			renderer.inline.WriteString(link.Render(string(node.URL(renderer.source))))
		}
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		if entering {
			renderer.inline.WriteString(renderer.segmentText(node.Segments))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// highlight colors fenced code with Chroma, falling back to faint
// plain text for unlabeled blocks or when highlighting fails.
func (renderer *bodyRenderer) highlight(code, language string) string {
	if language == "" {
		return renderer.faint(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return renderer.faint(code)
	}
	return strings.TrimRight(buffer.String(), "\n")
}
