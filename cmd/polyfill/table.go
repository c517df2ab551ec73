package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

// styleFunc picks a style for one body cell; nil leaves it plain.
type styleFunc func(col int, cell string) *lipgloss.Style

// renderTable writes header and rows as aligned columns. Widths are measured
// with runewidth before styling so escape sequences never skew alignment.
func renderTable(w io.Writer, header []string, rows [][]string, style styleFunc) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	styled := !color.NoColor
	line := func(cells []string, pick func(i int, cell string) *lipgloss.Style) {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			padded := cell
			if i < len(widths)-1 {
				padded = runewidth.FillRight(cell, widths[i])
			}
			if st := pick(i, cell); styled && st != nil {
				// style the text only, keep the padding plain
				padded = st.Render(cell) + padded[len(cell):]
			}
			parts[i] = padded
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(header, func(int, string) *lipgloss.Style { return &headerStyle })
	for _, row := range rows {
		line(row, func(i int, cell string) *lipgloss.Style {
			if style == nil {
				return nil
			}
			return style(i, cell)
		})
	}
}
