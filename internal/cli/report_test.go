package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/pkg/domain"
)

func TestBuildReportMarkdown_Valid(t *testing.T) {
	report := &domain.Report{
		Valid: true,
		Paths: [][]string{{"question_1", "message_1"}},
	}
	md := cli.BuildReportMarkdown("Device triage", report)

	assert.Contains(t, md, "# Validation: Device triage")
	assert.Contains(t, md, "**Result:** valid")
	assert.Contains(t, md, "## Paths (1)")
	assert.Contains(t, md, "`question_1 -> message_1`")
	assert.NotContains(t, md, "## Errors")
}

func TestBuildReportMarkdown_ErrorsAndWarnings(t *testing.T) {
	report := &domain.Report{
		Valid:    false,
		Errors:   []string{"edge edge_1 references missing node \"ghost\""},
		Warnings: []string{"message node \"message_1\" has outgoing connections"},
	}
	md := cli.BuildReportMarkdown("triage", report)

	assert.Contains(t, md, "**Result:** 1 error(s)")
	assert.Contains(t, md, "## Errors")
	assert.Contains(t, md, "ghost")
	assert.Contains(t, md, "## Warnings")
}

func TestRenderReport_PlainWriterGetsMarkdown(t *testing.T) {
	var buf bytes.Buffer
	report := &domain.Report{Valid: true}
	require.NoError(t, cli.RenderReport(&buf, "triage", report))
	assert.Contains(t, buf.String(), "# Validation: triage")
}
