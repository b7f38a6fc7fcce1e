package flowyaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/espalier/pkg/domain"
)

func sampleFlow() *domain.Flow {
	return &domain.Flow{
		ID:          "triage",
		Name:        "Device triage",
		Description: "First-line support",
		Nodes: []*domain.Node{
			{
				ID:       "question_1",
				Type:     domain.NodeTypeQuestion,
				Question: "Is the device powered on?",
				ExpectedAnswers: []domain.Answer{
					{Value: "Yes"},
					{Value: "No", Description: "The screen stays black"},
				},
			},
			{
				ID:       "message_1",
				Type:     domain.NodeTypeMessage,
				Message:  "Plug it in and try again.",
				Severity: "info",
			},
			{
				ID:      "message_2",
				Type:    domain.NodeTypeMessage,
				Message: "Escalate to hardware support.",
			},
		},
		Edges: []*domain.Edge{
			{ID: "edge_aaaaaaaa_bbbbbbbb", Source: "question_1", Target: "message_2", Label: "Yes", SourcePort: "yes", TargetPort: "input"},
			{ID: "edge_cccccccc_dddddddd", Source: "question_1", Target: "message_1", Label: "No", SourcePort: "no", TargetPort: "input"},
			{ID: "edge_eeeeeeee_ffffffff", Source: "message_1", Target: "message_2", Label: "", SourcePort: "output", TargetPort: "input"},
		},
	}
}

// mappingKeys parses emitted YAML and returns the key order of the mapping
// at the given path.
func mappingKeys(t *testing.T, data []byte, path ...string) []string {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(data, &doc))
	node := doc.Content[0]
	for _, key := range path {
		node = mappingValue(node, key)
		require.NotNil(t, node, "path segment %q missing", key)
	}
	require.Equal(t, yaml.MappingNode, node.Kind)
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content)-1; i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

func TestEncode_Shape(t *testing.T) {
	out, err := Encode(sampleFlow())
	require.NoError(t, err)

	// Questions precede messages regardless of insertion order, and branch
	// order inside `next` follows edge order.
	assert.Equal(t, []string{"question_1", "message_1", "message_2"}, mappingKeys(t, out, "flow"))
	assert.Equal(t, []string{"Yes", "No"}, mappingKeys(t, out, "flow", "question_1", "next"))

	// The single unlabeled continuation collapses to a scalar next.
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(out, &doc))
	next := mappingValue(mappingValue(mappingValue(doc.Content[0], "flow"), "message_1"), "next")
	require.NotNil(t, next)
	assert.Equal(t, yaml.ScalarNode, next.Kind)
	assert.Equal(t, "message_2", next.Value)

	assert.Contains(t, string(out), "metadata:")
	assert.Contains(t, string(out), "name: Device triage")
}

func TestEncode_DuplicateLabelsSuffixed(t *testing.T) {
	flow := &domain.Flow{
		Nodes: []*domain.Node{
			{ID: "question_1", Type: domain.NodeTypeQuestion, Question: "Pick one"},
			{ID: "message_1", Type: domain.NodeTypeMessage},
			{ID: "message_2", Type: domain.NodeTypeMessage},
		},
		Edges: []*domain.Edge{
			{ID: "e1", Source: "question_1", Target: "message_1", Label: "Yes"},
			{ID: "e2", Source: "question_1", Target: "message_2", Label: "Yes"},
		},
	}
	out, err := Encode(flow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes", "Yes_2"}, mappingKeys(t, out, "flow", "question_1", "next"))
}

func TestDecode_RoundTrip(t *testing.T) {
	out, err := Encode(sampleFlow())
	require.NoError(t, err)

	flow, err := Decode(out)
	require.NoError(t, err)

	assert.Equal(t, "triage", flow.ID)
	assert.Equal(t, "Device triage", flow.Name)
	require.Len(t, flow.Nodes, 3)
	require.Len(t, flow.Edges, 3)

	q := flow.Nodes[0]
	assert.Equal(t, "question_1", q.ID)
	assert.Equal(t, domain.NodeTypeQuestion, q.Type)
	require.Len(t, q.ExpectedAnswers, 2)
	assert.Equal(t, domain.Answer{Value: "Yes"}, q.ExpectedAnswers[0])
	assert.Equal(t, domain.Answer{Value: "No", Description: "The screen stays black"}, q.ExpectedAnswers[1])

	// Imported nodes land on the default grid in document order.
	assert.Equal(t, domain.Position{X: 160, Y: 120}, q.Position)
	assert.Equal(t, domain.Position{X: 480, Y: 120}, flow.Nodes[1].Position)

	yes := flow.Edges[0]
	assert.Equal(t, "question_1", yes.Source)
	assert.Equal(t, "Yes", yes.Label)
	assert.Equal(t, "yes", yes.SourcePort)
	assert.Equal(t, "input", yes.TargetPort)
	assert.Regexp(t, `^edge_[0-9a-f]{8}_[0-9a-f]{8}$`, yes.ID)
}

func TestDecode_SlugsTitles(t *testing.T) {
	flow, err := Decode([]byte(`
flow:
  "Is it plugged in?":
    type: question
    question: Is it plugged in?
    next:
      "Sí": "All good"
  "All good":
    type: message
    message: Nothing to do.
  "All good!":
    type: message
    message: Duplicate slug.
`))
	require.NoError(t, err)
	require.Len(t, flow.Nodes, 3)
	assert.Equal(t, "is_it_plugged_in", flow.Nodes[0].ID)
	assert.Equal(t, "all_good", flow.Nodes[1].ID)
	assert.Equal(t, "all_good_2", flow.Nodes[2].ID, "colliding slugs get suffixed")

	require.Len(t, flow.Edges, 1)
	assert.Equal(t, "all_good", flow.Edges[0].Target)
	assert.Equal(t, "sí", flow.Edges[0].SourcePort)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("   \n"))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Decode([]byte("answers: [1, 2]\n"))
	assert.ErrorIs(t, err, ErrNoFlowSection)

	_, err = Decode([]byte("flow: not-a-map\n"))
	assert.ErrorIs(t, err, ErrNoFlowSection)

	_, err = Decode([]byte("flow:\n  a:\n    type: question\n    next:\n      go: missing\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	_, err = Decode([]byte("flow:\n  a:\n    type: teleport\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestDecode_DefaultsToMessage(t *testing.T) {
	flow, err := Decode([]byte("flow:\n  note:\n    message: Just a note.\n"))
	require.NoError(t, err)
	require.Len(t, flow.Nodes, 1)
	assert.Equal(t, domain.NodeTypeMessage, flow.Nodes[0].Type)
}
