package orchestrator

import (
	"fmt"
	"strings"

	"github.com/zhiyu220/MCP-demo/internal/protocol"
)

const envelopeExample = `{"tool_calls": [{"name": "get_weather_now", "arguments": {"city": "Taipei"}}]}`

// BuildSystemPrompt renders the session's system message from the live catalog.
func BuildSystemPrompt(catalog protocol.Catalog) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant with access to the following tools and resources.\n\n")

	b.WriteString("Tools:\n")
	if len(catalog.Tools) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range catalog.Tools {
		fmt.Fprintf(&b, "- %s: %s", t.Name, t.Description)
		if len(t.Parameters) > 0 {
			fmt.Fprintf(&b, " (arguments: %s)", strings.Join(t.Parameters, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nResources:\n")
	if len(catalog.Resources) == 0 {
		b.WriteString("(none)\n")
	}
	for _, r := range catalog.Resources {
		fmt.Fprintf(&b, "- %s\n", r.URI)
	}

	b.WriteString("\nPrefer calling an available tool or resource over answering from your own knowledge. ")
	b.WriteString("Only pass the arguments a tool needs, based on the conversation.\n")
	b.WriteString("To call tools, reply with JSON only, in this form:\n")
	b.WriteString(envelopeExample)
	b.WriteString("\nTranslate city names to English before querying. Round temperatures to whole degrees when answering.\n")
	b.WriteString(`When you have finished and need no tool, reply with your answer, or with {"tool_calls": null, "content": "<answer>"}.`)

	return b.String()
}
