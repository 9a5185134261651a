package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type attemptColumn struct {
	header string
	right  bool
}

// attemptColumns lists the attempt table columns in display order. Numeric
// columns are right aligned.
var attemptColumns = []attemptColumn{
	{header: "#", right: true},
	{header: "Ended"},
	{header: "Mode"},
	{header: "Samples", right: true},
	{header: "Clicks", right: true},
	{header: "Similarity", right: true},
	{header: "Result"},
}

func attemptHeaders() []string {
	headers := make([]string, len(attemptColumns))
	for i, col := range attemptColumns {
		headers[i] = col.header
	}
	return headers
}

// layoutAttempts renders the header and rows with every column as wide as
// its widest cell, measured in terminal cells.
func layoutAttempts(rows [][]string) []string {
	widths := make([]int, len(attemptColumns))
	for i, col := range attemptColumns {
		widths[i] = runewidth.StringWidth(col.header)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, alignCells(attemptHeaders(), widths))
	for _, row := range rows {
		lines = append(lines, alignCells(row, widths))
	}
	return lines
}

func alignCells(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if attemptColumns[i].right {
			parts[i] = runewidth.FillLeft(cell, width)
		} else {
			parts[i] = runewidth.FillRight(cell, width)
		}
	}
	return strings.TrimRight(strings.Join(parts, " "), " ")
}
