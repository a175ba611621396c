// Package table renders the per-room export summary for terminal output.
package table

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Row is one line of the summary table.
type Row struct {
	Cells []string
}

// Render lays out header and rows with columns padded to the widest cell.
// Room names are frequently CJK, so padding uses display width, not rune
// count.
func Render(header []string, rows []Row) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row.Cells {
			if i >= len(widths) {
				break
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	writeLine := func(cells []string) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		sb.WriteByte('\n')
	}

	writeLine(header)
	rule := make([]string, len(header))
	for i := range header {
		rule[i] = strings.Repeat("-", widths[i])
	}
	writeLine(rule)
	for _, row := range rows {
		writeLine(row.Cells)
	}
	return sb.String()
}

// FormatCount renders n with a unit, e.g. "12 msgs".
func FormatCount(n int, unit string) string {
	return fmt.Sprintf("%d %s", n, unit)
}
