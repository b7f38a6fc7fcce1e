package ports

import (
	"context"
	"io"

	"github.com/aretw0/espalier/pkg/domain"
)

// ExportFormat names a downloadable artifact kind.
type ExportFormat string

const (
	ExportYAML    ExportFormat = "yaml"
	ExportMermaid ExportFormat = "mermaid"
	ExportPNG     ExportFormat = "png"
)

// FlowExporter renders a snapshot into a downloadable artifact. Exporters
// are read-only with respect to the flow.
type FlowExporter interface {
	// Format identifies the artifact this exporter produces.
	Format() ExportFormat

	// Export writes the rendered artifact to w.
	Export(ctx context.Context, flow *domain.Flow, w io.Writer) error
}
