package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
)

// styledOutput is true when stdout is a terminal. Piped output stays plain and tab separated.
func styledOutput() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

type table struct {
	headers    []string
	rows       [][]string
	alignments []lipgloss.Position
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) Align(alignments ...lipgloss.Position) *table {
	t.alignments = alignments
	return t
}

func (t *table) Row(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) Print() {
	if !styledOutput() {
		fmt.Println(strings.Join(t.headers, "\t"))
		for _, row := range t.rows {
			fmt.Println(strings.Join(row, "\t"))
		}
		return
	}
	lt := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(t.headers...).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row < 0:
				s = headerRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(t.alignments) {
				alignment = t.alignments[col]
			}
			return s.Align(alignment)
		})
	for _, row := range t.rows {
		lt.Row(row...)
	}
	fmt.Println(lt)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
