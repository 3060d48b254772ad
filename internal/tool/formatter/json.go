package formatter

import (
	"encoding/json"

	"github.com/zhiyu220/MCP-demo/internal/protocol"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatCatalog(catalog protocol.Catalog) (string, error) {
	if catalog.Tools == nil {
		catalog.Tools = []protocol.ToolInfo{}
	}
	if catalog.Resources == nil {
		catalog.Resources = []protocol.ResourceInfo{}
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *JSONFormatter) FormatResult(name string, result *protocol.CallResult) (string, error) {
	data, err := json.MarshalIndent(newResultView(name, result), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
