package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable writes a rounded table to w. Rows shorter than headers are
// padded; headers are bold only when w is a terminal.
func renderTable(w io.Writer, headers []string, rows [][]string, aligns []columnAlignment) {
	if len(headers) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if isTerminal(w) {
		tw.Style().Color.Header = text.Colors{text.Bold}
	}
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(aligns) && aligns[i] == alignRight {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)

	fmt.Fprintln(w, tw.Render())
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatYear(year *int) string {
	if year == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *year)
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
