// Package formatter renders an MCP catalog for the terminal.
package formatter

import (
	"fmt"
	"strings"

	"github.com/zhiyu220/MCP-demo/internal/protocol"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

type CatalogFormatter interface {
	FormatCatalog(protocol.Catalog) (string, error)
	FormatResult(name string, result *protocol.CallResult) (string, error)
}

func New(format OutputFormat) (CatalogFormatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}

type resultView struct {
	Tool    string   `json:"tool" yaml:"tool"`
	IsError bool     `json:"is_error" yaml:"is_error"`
	Content []string `json:"content" yaml:"content"`
}

func newResultView(name string, result *protocol.CallResult) resultView {
	view := resultView{Tool: name, Content: []string{}}
	if result != nil {
		view.IsError = result.IsError
		view.Content = append(view.Content, result.Content...)
	}
	return view
}
