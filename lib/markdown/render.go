// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/lectern-lms/lectern/lib/tui"
)

// minimumWidth is the narrowest content column after nesting prefixes.
const minimumWidth = 10

var (
	parserOnce sync.Once
	parser     goldmark.Markdown

	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func markdownParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parser
}

func strictPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Sanitize strips all HTML markup from value and returns its text with
// entities decoded and surrounding whitespace trimmed.
func Sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy().Sanitize(value)))
}

// Render renders input as styled terminal text wrapped to width.
// Soft line breaks become spaces so hard-wrapped source reflows.
// Returns the empty string for blank input.
func Render(input string, document *tui.Document, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	root := markdownParser().Parser().Parse(text.NewReader(source))

	renderer := &walker{
		source:   source,
		document: document,
		theme:    document.Theme(),
		width:    width,
		colored:  document.Colored(),
	}
	ast.Walk(root, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// walker accumulates inline content per block and wraps it when the
// block closes.
type walker struct {
	source   []byte
	document *tui.Document
	theme    tui.Theme
	width    int
	colored  bool

	output strings.Builder
	inline strings.Builder

	prefixes        []prefix
	linePrefix      string
	linePrefixWidth int
	// pendingBullet replaces linePrefix for the next emitted line.
	pendingBullet string

	boldCount          int
	italicCount        int
	strikethroughCount int

	lists []list

	trailingNewlines int
}

type prefix struct {
	text  string
	width int
}

type list struct {
	ordered bool
	counter int
	tight   bool
}

func (w *walker) style() lipgloss.Style {
	return w.document.NewStyle()
}

func (w *walker) contentWidth() int {
	return max(w.width-w.linePrefixWidth, minimumWidth)
}

func (w *walker) pushPrefix(text string, width int) {
	w.prefixes = append(w.prefixes, prefix{text: text, width: width})
	w.linePrefix += text
	w.linePrefixWidth += width
}

func (w *walker) popPrefix() {
	if len(w.prefixes) == 0 {
		return
	}
	top := w.prefixes[len(w.prefixes)-1]
	w.prefixes = w.prefixes[:len(w.prefixes)-1]
	w.linePrefix = w.linePrefix[:len(w.linePrefix)-len(top.text)]
	w.linePrefixWidth -= top.width
}

func (w *walker) inTightList() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

func (w *walker) write(s string) {
	if s == "" {
		return
	}
	w.output.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	newlines := len(s) - len(trimmed)
	if trimmed == "" {
		w.trailingNewlines += newlines
	} else {
		w.trailingNewlines = newlines
	}
}

func (w *walker) ensureNewline() {
	if w.trailingNewlines < 1 {
		w.write("\n")
	}
}

func (w *walker) ensureBlankLine() {
	if w.output.Len() == 0 {
		return
	}
	for w.trailingNewlines < 2 {
		w.write("\n")
	}
}

func (w *walker) takeLinePrefix() string {
	if w.pendingBullet != "" {
		bullet := w.pendingBullet
		w.pendingBullet = ""
		return bullet
	}
	return w.linePrefix
}

// prefixLines prepends the bullet or nesting prefix to every line.
func (w *walker) prefixLines(content string) string {
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		if index == 0 {
			lines[index] = w.takeLinePrefix() + line
		} else {
			lines[index] = w.linePrefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// wrap breaks content at spaces and hyphens, then hard-breaks whatever
// still exceeds width: words longer than the column and a hyphen that
// lands one cell past it.
func wrap(content string, width int) string {
	return ansi.Hardwrap(ansi.Wordwrap(content, width, ""), width, false)
}

// writeBlock wraps content, prefixes it, and ends it with a newline.
func (w *walker) writeBlock(content string) {
	if content == "" {
		return
	}
	w.write(w.prefixLines(wrap(content, w.contentWidth())))
	w.ensureNewline()
}

func (w *walker) styledText(content string) string {
	style := w.style().Foreground(w.theme.NormalText)
	if w.boldCount > 0 {
		style = style.Bold(true)
	}
	if w.italicCount > 0 {
		style = style.Italic(true)
	}
	if w.strikethroughCount > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// inlineOf renders node's children to a string without disturbing the
// enclosing block's accumulator or style counters.
func (w *walker) inlineOf(node ast.Node) string {
	saved := w.inline.String()
	bold, italic, strike := w.boldCount, w.italicCount, w.strikethroughCount

	w.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, w.walk)
	}
	result := w.inline.String()

	w.inline.Reset()
	w.inline.WriteString(saved)
	w.boldCount, w.italicCount, w.strikethroughCount = bold, italic, strike
	return result
}

func (w *walker) highlight(code, language string) string {
	plain := w.style().Foreground(w.theme.CodeForeground).Render(code)
	if language == "" || !w.colored {
		return plain
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", w.theme.ChromaStyle); err != nil {
		return plain
	}
	return buffer.String()
}

func (w *walker) lines(node ast.Node) string {
	var content strings.Builder
	segments := node.Lines()
	for index := range segments.Len() {
		segment := segments.At(index)
		content.Write(segment.Value(w.source))
	}
	return content.String()
}

func (w *walker) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			w.inline.Reset()
			break
		}
		content := w.inline.String()
		w.inline.Reset()
		if content != "" {
			w.writeBlock(content)
			if !w.inTightList() {
				w.ensureBlankLine()
			}
		}

	case ast.KindHeading:
		if entering {
			w.inline.Reset()
		} else {
			w.leaveHeading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		if entering {
			fenced := node.(*ast.FencedCodeBlock)
			w.writeCode(w.highlight(w.lines(fenced), string(fenced.Language(w.source))))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			w.writeCode(w.highlight(w.lines(node), ""))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			w.pushPrefix("│ ", 2)
		} else {
			w.popPrefix()
			w.ensureBlankLine()
		}

	case ast.KindList:
		if entering {
			start := 0
			if node.(*ast.List).IsOrdered() {
				start = node.(*ast.List).Start
			}
			w.lists = append(w.lists, list{
				ordered: node.(*ast.List).IsOrdered(),
				counter: start,
				tight:   node.(*ast.List).IsTight,
			})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if !w.inTightList() {
				w.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			w.enterListItem()
		} else {
			w.popPrefix()
			if w.inTightList() {
				w.ensureNewline()
			} else {
				w.ensureBlankLine()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			rule := w.style().Foreground(w.theme.BorderColor).Render(strings.Repeat("─", w.contentWidth()))
			w.ensureBlankLine()
			w.write(w.prefixLines(rule))
			w.ensureNewline()
			w.ensureBlankLine()
		}

	case ast.KindHTMLBlock:
		if entering {
			if stripped := Sanitize(w.lines(node)); stripped != "" {
				w.writeBlock(w.style().Foreground(w.theme.FaintText).Render(stripped))
				w.ensureBlankLine()
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			w.inline.WriteString(w.styledText(string(textNode.Segment.Value(w.source))))
			if textNode.SoftLineBreak() {
				w.inline.WriteString(" ")
			}
			if textNode.HardLineBreak() {
				w.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			w.inline.WriteString(w.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if node.(*ast.Emphasis).Level >= 2 {
			w.boldCount += delta
		} else {
			w.italicCount += delta
		}

	case ast.KindCodeSpan:
		if entering {
			w.inline.WriteString(w.codeSpan(node))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			w.inline.WriteString(w.inlineOf(link))
			if destination := string(link.Destination); destination != "" {
				w.inline.WriteString(" " + w.document.Link("("+destination+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			w.inline.WriteString(w.document.Link(string(node.(*ast.AutoLink).URL(w.source))))
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			faint := w.style().Foreground(w.theme.FaintText)
			w.inline.WriteString(faint.Render("[image: " + ansi.Strip(w.inlineOf(image)) + "]"))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML:
		if entering {
			raw := node.(*ast.RawHTML)
			var content strings.Builder
			for index := range raw.Segments.Len() {
				segment := raw.Segments.At(index)
				content.Write(segment.Value(w.source))
			}
			if stripped := Sanitize(content.String()); stripped != "" {
				w.inline.WriteString(w.styledText(stripped))
			}
		}

	case extast.KindStrikethrough:
		if entering {
			w.strikethroughCount++
		} else {
			w.strikethroughCount--
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				w.inline.WriteString(w.document.Success("[x]") + " ")
			} else {
				w.inline.WriteString(w.styledText("[ ] "))
			}
		}

	case extast.KindTable:
		if entering {
			w.writeTable(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *walker) leaveHeading(heading *ast.Heading) {
	content := ansi.Strip(w.inline.String())
	w.inline.Reset()
	if content == "" {
		return
	}
	style := w.style().Bold(true).Foreground(w.theme.NormalText)
	if heading.Level <= 2 {
		style = style.Foreground(w.theme.HeaderForeground)
	}
	w.ensureBlankLine()
	w.writeBlock(style.Render(content))
	w.ensureBlankLine()
}

func (w *walker) writeCode(highlighted string) {
	lines := strings.Split(strings.TrimRight(highlighted, "\n"), "\n")
	// Highlighters may close the last token after its newline; fold
	// escape-only trailing lines into the line before.
	for len(lines) > 1 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines[len(lines)-2] += lines[len(lines)-1]
		lines = lines[:len(lines)-1]
	}

	w.ensureBlankLine()
	for _, line := range lines {
		w.write(w.takeLinePrefix() + "  " + line)
		w.ensureNewline()
	}
	w.ensureBlankLine()
}

func (w *walker) codeSpan(node ast.Node) string {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch typed := child.(type) {
		case *ast.Text:
			code.Write(typed.Segment.Value(w.source))
		case *ast.String:
			code.Write(typed.Value)
		}
	}
	return w.style().
		Foreground(w.theme.CodeForeground).
		Background(w.theme.CodeBackground).
		Render(code.String())
}

func (w *walker) enterListItem() {
	if len(w.lists) == 0 {
		return
	}
	top := &w.lists[len(w.lists)-1]
	bullet := "• "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}
	bulletWidth := ansi.StringWidth(bullet)
	w.pendingBullet = w.linePrefix + bullet
	w.pushPrefix(strings.Repeat(" ", bulletWidth), bulletWidth)
}

func (w *walker) writeTable(node ast.Node) {
	table := tui.Table{}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if cell.Kind() == extast.KindTableCell {
				cells = append(cells, ansi.Strip(w.inlineOf(cell)))
			}
		}
		switch child.Kind() {
		case extast.KindTableHeader:
			table.Headers = cells
		case extast.KindTableRow:
			table.AddRow(cells...)
		}
	}

	// Each column is capped at an even share of the available width.
	columns := len(table.Headers)
	if columns > 0 {
		share := max((w.contentWidth()-len(columnSeparator)*(columns-1))/columns, 3)
		table.MaxWidths = make([]int, columns)
		for index := range table.MaxWidths {
			table.MaxWidths[index] = share
		}
	}

	rendered := strings.TrimRight(table.Render(w.document), "\n")
	if rendered == "" {
		return
	}
	w.ensureBlankLine()
	for _, line := range strings.Split(rendered, "\n") {
		w.write(w.takeLinePrefix() + line)
		w.ensureNewline()
	}
	w.ensureBlankLine()
}

// columnSeparator matches the gap tui.Table puts between columns.
const columnSeparator = "  "
