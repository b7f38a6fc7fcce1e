package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/pkg/adapters/render"
	"github.com/aretw0/espalier/pkg/flowyaml"
	"github.com/aretw0/espalier/pkg/ports"
)

var exportCmd = &cobra.Command{
	Use:   "export [flow.yaml]",
	Short: "Render a flow as YAML, Mermaid or PNG",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExport(cmd, args); err != nil {
			fmt.Printf("Export failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("project", "", "Project id of a stored flow")
	exportCmd.Flags().String("flow", "", "Flow id of a stored flow")
	exportCmd.Flags().StringP("format", "f", "yaml", "Output format: yaml, mermaid or png")
	exportCmd.Flags().StringP("output", "o", "", "Output file (defaults to stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	flow, err := resolveFlow(cmd, args)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	var exporter ports.FlowExporter
	switch ports.ExportFormat(format) {
	case ports.ExportYAML:
		exporter = flowyaml.Exporter{}
	case ports.ExportMermaid:
		exporter = render.MermaidExporter{}
	case ports.ExportPNG:
		exporter = render.PNGExporter{}
	default:
		return fmt.Errorf("unknown format %q (yaml, mermaid, png)", format)
	}

	var w io.Writer = os.Stdout
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	} else if exporter.Format() == ports.ExportPNG {
		return fmt.Errorf("png export needs --output")
	}

	return exporter.Export(cmd.Context(), flow, w)
}
