package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
)

func run(t *testing.T, flow *domain.Flow) *domain.Report {
	t.Helper()
	report, err := New().Validate(context.Background(), flow)
	require.NoError(t, err)
	return report
}

func validFlow() *domain.Flow {
	return &domain.Flow{
		ID:   "triage",
		Name: "Triage",
		Nodes: []*domain.Node{
			{ID: "question_1", Type: domain.NodeTypeQuestion, ExpectedAnswers: []domain.Answer{{Value: "Yes"}, {Value: "No"}}},
			{ID: "message_1", Type: domain.NodeTypeMessage},
			{ID: "message_2", Type: domain.NodeTypeMessage},
		},
		Edges: []*domain.Edge{
			{ID: "e1", Source: "question_1", Target: "message_1", Label: "Yes"},
			{ID: "e2", Source: "question_1", Target: "message_2", Label: "No"},
		},
	}
}

func TestValidate_CleanFlow(t *testing.T) {
	report := run(t, validFlow())
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.ElementsMatch(t, [][]string{
		{"question_1", "message_1"},
		{"question_1", "message_2"},
	}, report.Paths)
}

func TestValidate_EmptyFlow(t *testing.T) {
	report := run(t, &domain.Flow{})
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "flow contains no nodes")
	assert.Empty(t, report.Paths)
}

func TestValidate_DuplicateAndMissingIDs(t *testing.T) {
	flow := &domain.Flow{
		Nodes: []*domain.Node{
			{ID: "question_1", Type: domain.NodeTypeQuestion},
			{ID: "question_1", Type: domain.NodeTypeQuestion},
			{ID: "", Type: domain.NodeTypeMessage},
		},
	}
	report := run(t, flow)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "duplicate node ids: question_1")
	assert.Contains(t, report.Errors, "1 node(s) have no identifier")
}

func TestValidate_DanglingEdge(t *testing.T) {
	flow := validFlow()
	flow.Edges = append(flow.Edges, &domain.Edge{ID: "e3", Source: "question_1", Target: "ghost", Label: "Yes"})
	report := run(t, flow)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, `connection references unknown node "ghost"`)
}

func TestValidate_UnlabeledEdgeWarns(t *testing.T) {
	flow := validFlow()
	flow.Edges[0].Label = ""
	report := run(t, flow)
	assert.Contains(t, report.Warnings, "connection question_1 -> message_1 has no label")
}

func TestValidate_CycleDetected(t *testing.T) {
	flow := &domain.Flow{
		Nodes: []*domain.Node{
			{ID: "a", Type: domain.NodeTypeQuestion},
			{ID: "b", Type: domain.NodeTypeQuestion},
			{ID: "c", Type: domain.NodeTypeQuestion},
		},
		Edges: []*domain.Edge{
			{ID: "e1", Source: "a", Target: "b", Label: "x"},
			{ID: "e2", Source: "b", Target: "c", Label: "y"},
			{ID: "e3", Source: "c", Target: "b", Label: "z"},
		},
	}
	report := run(t, flow)
	assert.False(t, report.Valid)
	found := false
	for _, e := range report.Errors {
		if e == "cycle detected: b -> c -> b" {
			found = true
		}
	}
	assert.True(t, found, "expected cycle error, got %v", report.Errors)
}

func TestValidate_AllNodesInCycle(t *testing.T) {
	flow := &domain.Flow{
		Nodes: []*domain.Node{
			{ID: "a", Type: domain.NodeTypeQuestion},
			{ID: "b", Type: domain.NodeTypeQuestion},
		},
		Edges: []*domain.Edge{
			{ID: "e1", Source: "a", Target: "b", Label: "x"},
			{ID: "e2", Source: "b", Target: "a", Label: "y"},
		},
	}
	report := run(t, flow)
	assert.Contains(t, report.Errors, "no root nodes found (every node has incoming connections)")
	assert.Contains(t, report.Errors, "no terminal nodes found")
}

func TestValidate_LabelMismatch(t *testing.T) {
	flow := validFlow()
	flow.Edges[1].Label = "Maybe"
	report := run(t, flow)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, `label "Maybe" from "question_1" does not match any expected answer`)
}

func TestValidate_LabelDescriptionSuffixIgnored(t *testing.T) {
	flow := validFlow()
	flow.Edges[0].Label = "Yes: device responds"
	report := run(t, flow)
	assert.True(t, report.Valid, "the :description suffix is not part of the label, got %v", report.Errors)
}

func TestValidate_UnconnectedAnswerWarns(t *testing.T) {
	flow := validFlow()
	flow.Edges = flow.Edges[:1]
	report := run(t, flow)
	assert.True(t, report.Valid)
	assert.Contains(t, report.Warnings, `question "question_1" has expected answers without connections: No`)
}

func TestValidate_MessageWithOutgoingWarns(t *testing.T) {
	flow := validFlow()
	flow.Edges = append(flow.Edges, &domain.Edge{ID: "e3", Source: "message_1", Target: "message_2", Label: "then"})
	report := run(t, flow)
	assert.True(t, report.Valid, "message chaining is allowed, got %v", report.Errors)
	assert.Contains(t, report.Warnings, `message node "message_1" has outgoing connections and is not terminal`)
}

func TestValidate_IsolatedNodeIsItsOwnPath(t *testing.T) {
	flow := validFlow()
	flow.Nodes = append(flow.Nodes, &domain.Node{ID: "message_3", Type: domain.NodeTypeMessage})
	report := run(t, flow)
	assert.True(t, report.Valid)
	assert.Contains(t, report.Paths, []string{"message_3"})
}
