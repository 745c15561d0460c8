// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// columnGap separates adjacent columns.
const columnGap = "  "

// Table is column-aligned output. Cells may contain ANSI styling;
// widths are measured in terminal cells.
type Table struct {
	Headers []string
	Rows    [][]string
	// MaxWidths caps individual columns. A zero or missing entry means
	// no cap. Cells wider than the cap are truncated with an ellipsis.
	MaxWidths []int
}

// AddRow appends a row. Missing trailing cells render empty.
func (table *Table) AddRow(cells ...string) {
	table.Rows = append(table.Rows, cells)
}

// Render lays the table out with headers styled by document. Returns
// the empty string when there are no headers and no rows. Trailing
// spaces are trimmed from every line.
func (table *Table) Render(document *Document) string {
	columns := len(table.Headers)
	for _, row := range table.Rows {
		columns = max(columns, len(row))
	}
	if columns == 0 {
		return ""
	}

	cell := func(row []string, index int) string {
		if index >= len(row) {
			return ""
		}
		text := strings.ReplaceAll(row[index], "\n", " ")
		if limit := table.maxWidth(index); limit > 0 && ansi.StringWidth(text) > limit {
			text = ansi.Truncate(text, limit, "…")
		}
		return text
	}

	widths := make([]int, columns)
	for index := range columns {
		widths[index] = ansi.StringWidth(cell(table.Headers, index))
		for _, row := range table.Rows {
			widths[index] = max(widths[index], ansi.StringWidth(cell(row, index)))
		}
	}

	var builder strings.Builder
	writeRow := func(row []string, style func(string) string) {
		var line strings.Builder
		for index := range columns {
			text := cell(row, index)
			if style != nil && text != "" {
				text = style(text)
			}
			line.WriteString(text)
			if index < columns-1 {
				line.WriteString(strings.Repeat(" ", widths[index]-ansi.StringWidth(cell(row, index))))
				line.WriteString(columnGap)
			}
		}
		builder.WriteString(strings.TrimRight(line.String(), " "))
		builder.WriteString("\n")
	}

	if len(table.Headers) > 0 {
		var heading func(string) string
		if document != nil {
			heading = document.Heading
		}
		writeRow(table.Headers, heading)
	}
	for _, row := range table.Rows {
		writeRow(row, nil)
	}
	return builder.String()
}

func (table *Table) maxWidth(index int) int {
	if index < len(table.MaxWidths) {
		return table.MaxWidths[index]
	}
	return 0
}
