package formatter

import (
	"strings"

	"github.com/zhiyu220/MCP-demo/internal/protocol"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	teal := lipgloss.Color("37")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(teal).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(teal),
	}
}

func (f *TableFormatter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatCatalog(catalog protocol.Catalog) (string, error) {
	var sections []string

	if len(catalog.Tools) == 0 {
		sections = append(sections, "No tools found")
	} else {
		t := f.newTable("Tool", "Description", "Parameters")
		for _, tool := range catalog.Tools {
			t.Row(
				tool.Name,
				truncateString(tool.Description, 50),
				truncateString(strings.Join(tool.Parameters, ", "), 30),
			)
		}
		sections = append(sections, t.String())
	}

	if len(catalog.Resources) == 0 {
		sections = append(sections, "No resources found")
	} else {
		t := f.newTable("Resource", "Name", "MIME")
		for _, res := range catalog.Resources {
			t.Row(res.URI, truncateString(res.Name, 40), res.MIMEType)
		}
		sections = append(sections, t.String())
	}

	return strings.Join(sections, "\n"), nil
}

func (f *TableFormatter) FormatResult(name string, result *protocol.CallResult) (string, error) {
	view := newResultView(name, result)
	if len(view.Content) == 0 {
		return "No content returned by " + name, nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("Tool", view.Tool)
	if view.IsError {
		t.Row("Status", "error")
	}
	for _, item := range view.Content {
		t.Row("Content", item)
	}
	return t.String(), nil
}

// truncateString cuts on rune boundaries so CJK descriptions stay valid.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
