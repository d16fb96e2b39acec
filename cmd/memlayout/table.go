package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/wippyai/memlayout/emit/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	gapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// renderTables renders every struct of r as a table.
func renderTables(r report.Report) string {
	var b strings.Builder
	for i, st := range r.Structs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(structHeader(st))
		b.WriteString("\n")
		b.WriteString(structTable(st))
		b.WriteString("\n")
	}
	return b.String()
}

func structHeader(st report.Struct) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(st.Name))
	if st.Size != nil {
		fmt.Fprintf(&b, " size %#x", *st.Size)
	}
	if st.Pos != "" {
		b.WriteString(" ")
		b.WriteString(helpStyle.Render(st.Pos))
	}
	if st.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(st.Error))
	}
	return b.String()
}

// structTable lists gaps and fields in layout order.
func structTable(st report.Struct) string {
	rows := make([][]string, 0, 2*len(st.Fields)+1)
	gapRows := map[int]bool{}
	for _, f := range st.Fields {
		if f.Padding == nil || *f.Padding > 0 {
			gapRows[len(rows)] = true
			rows = append(rows, []string{"", "_", "[" + f.Gap + "]byte", optHex(f.Padding)})
		}
		rows = append(rows, []string{fmt.Sprintf("%#x", f.Offset), f.Name, f.Type, optHex(f.Size)})
	}
	if st.Trailing != "" && st.Trailing != "0x0" {
		gapRows[len(rows)] = true
		rows = append(rows, []string{"", "_", "[" + st.Trailing + "]byte", ""})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("OFFSET", "FIELD", "TYPE", "SIZE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true)
			case gapRows[row]:
				return s.Inherit(gapStyle)
			case col == 1:
				return s.Inherit(fieldStyle)
			case col == 2:
				return s.Inherit(typeStyle)
			}
			return s
		})
	return t.Render()
}

func optHex(n *uint64) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%#x", *n)
}
