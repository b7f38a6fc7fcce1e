package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// MermaidExporter writes a flow as Mermaid flowchart syntax. Question nodes
// render as decision diamonds, messages as rectangles colored by severity.
type MermaidExporter struct{}

// Format implements ports.FlowExporter.
func (MermaidExporter) Format() ports.ExportFormat { return ports.ExportMermaid }

// Export implements ports.FlowExporter.
func (MermaidExporter) Export(ctx context.Context, flow *domain.Flow, w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")

	var warnings, errors []string
	for _, node := range flow.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		label := node.Message
		if node.IsQuestion() {
			opener, closer = "{", "}"
			label = node.Question
		}
		if label == "" {
			label = node.Title
		}
		if label == "" {
			label = node.ID
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeMermaid(label), closer))

		switch node.Severity {
		case "warning":
			warnings = append(warnings, safeID)
		case "error":
			errors = append(errors, safeID)
		}
	}

	for _, edge := range flow.Edges {
		from := sanitizeMermaidID(edge.Source)
		to := sanitizeMermaidID(edge.Target)
		arrow := "-->"
		if edge.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeMermaid(edge.Label))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, to))
	}

	if len(warnings) > 0 || len(errors) > 0 {
		sb.WriteString("\n    classDef warning fill:#fff7e6,stroke:#d48806,color:#000;\n")
		sb.WriteString("    classDef error fill:#fff1f0,stroke:#cf1322,color:#000;\n")
		for _, id := range warnings {
			sb.WriteString(fmt.Sprintf("    class %s warning;\n", id))
		}
		for _, id := range errors {
			sb.WriteString(fmt.Sprintf("    class %s error;\n", id))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
