package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhiyu220/MCP-demo/internal/protocol"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatCatalog(catalog protocol.Catalog) (string, error) {
	data, err := yaml.Marshal(catalog)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *YAMLFormatter) FormatResult(name string, result *protocol.CallResult) (string, error) {
	data, err := yaml.Marshal(newResultView(name, result))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
