// Package cli carries the shared plumbing of the espalier commands: the
// validation report presenter and the store factory.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/espalier/pkg/domain"
)

// BuildReportMarkdown turns a validation report into a markdown document.
func BuildReportMarkdown(flowName string, report *domain.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Validation: %s\n\n", flowName)

	if report.Valid {
		sb.WriteString("**Result:** valid\n\n")
	} else {
		fmt.Fprintf(&sb, "**Result:** %d error(s)\n\n", len(report.Errors))
	}

	if len(report.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
		sb.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("\n")
	}

	if len(report.Paths) > 0 {
		fmt.Fprintf(&sb, "## Paths (%d)\n\n", len(report.Paths))
		for _, path := range report.Paths {
			fmt.Fprintf(&sb, "- `%s`\n", strings.Join(path, " -> "))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderReport prints the report to w. On a terminal the markdown is
// rendered with glamour and a colored verdict line; otherwise the plain
// markdown is written as-is.
func RenderReport(w io.Writer, flowName string, report *domain.Report) error {
	markdown := BuildReportMarkdown(flowName, report)

	f, isFile := w.(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, markdown)
		return err
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 || width > 120 {
		width = 100
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		_, werr := io.WriteString(w, markdown)
		return werr
	}
	out, err := r.Render(markdown)
	if err != nil {
		_, werr := io.WriteString(w, markdown)
		return werr
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, verdictLine(report))
	return err
}

func verdictLine(report *domain.Report) string {
	p := termenv.ColorProfile()
	switch {
	case !report.Valid:
		return termenv.String(fmt.Sprintf("✗ %d error(s), %d warning(s)",
			len(report.Errors), len(report.Warnings))).Foreground(p.Color("#ef4444")).Bold().String()
	case len(report.Warnings) > 0:
		return termenv.String(fmt.Sprintf("✓ valid with %d warning(s)",
			len(report.Warnings))).Foreground(p.Color("#f59e0b")).String()
	default:
		return termenv.String("✓ valid").Foreground(p.Color("#22c55e")).String()
	}
}
