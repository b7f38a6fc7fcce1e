package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
)

func questionWithAnswers(t *testing.T, g *Graph, values ...string) *domain.Node {
	t.Helper()
	node, err := g.AddNode(domain.NodeTypeQuestion)
	require.NoError(t, err)
	answers := make([]domain.Answer, len(values))
	for i, v := range values {
		answers[i] = domain.Answer{Value: v}
	}
	require.NoError(t, g.SetAnswers(node.ID, answers))
	return node
}

func TestGraph_IDsAreMonotonic(t *testing.T) {
	g := NewGraph()

	q1, err := g.AddNode(domain.NodeTypeQuestion)
	require.NoError(t, err)
	assert.Equal(t, "question_1", q1.ID)

	q2, err := g.AddNode(domain.NodeTypeQuestion)
	require.NoError(t, err)
	assert.Equal(t, "question_2", q2.ID)

	m1, err := g.AddNode(domain.NodeTypeMessage)
	require.NoError(t, err)
	assert.Equal(t, "message_1", m1.ID, "counters are independent per type")

	// Deleting the newest node must not free its id for reuse.
	require.NoError(t, g.RemoveNode(q2.ID))
	q3, err := g.AddNode(domain.NodeTypeQuestion)
	require.NoError(t, err)
	assert.Equal(t, "question_3", q3.ID)
}

func TestGraph_AddNodeRejectsUnknownType(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode("decision")
	assert.Error(t, err)
}

func TestGraph_LoadRecoversCounters(t *testing.T) {
	g := NewGraph()
	flow := &domain.Flow{
		ID:   "f1",
		Name: "triage",
		Nodes: []*domain.Node{
			{ID: "question_7", Type: domain.NodeTypeQuestion},
			{ID: "message_2", Type: domain.NodeTypeMessage},
		},
	}
	mutated, err := g.Load(flow)
	require.NoError(t, err)
	assert.False(t, mutated, "clean snapshot loads without reconciliation changes")

	q, err := g.AddNode(domain.NodeTypeQuestion)
	require.NoError(t, err)
	assert.Equal(t, "question_8", q.ID)

	m, err := g.AddNode(domain.NodeTypeMessage)
	require.NoError(t, err)
	assert.Equal(t, "message_3", m.ID)
}

func TestGraph_RemoveNodeCascades(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "Yes", "No")
	m1, _ := g.AddNode(domain.NodeTypeMessage)
	m2, _ := g.AddNode(domain.NodeTypeMessage)

	_, err := g.AddEdge(q.ID, m1.ID, "yes", "Yes")
	require.NoError(t, err)
	_, err = g.AddEdge(q.ID, m2.ID, "no", "No")
	require.NoError(t, err)
	_, err = g.AddEdge(m1.ID, m2.ID, "", "")
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(m2.ID))

	assert.Len(t, g.Edges(), 1, "edges touching the removed node go with it")
	remaining := g.Edges()[0]
	assert.Equal(t, q.ID, remaining.Source)
	assert.Equal(t, m1.ID, remaining.Target)

	// m1 lost its only outgoing edge, so its derived ports are empty again.
	assert.Empty(t, g.OutputPorts(m1.ID))
}

func TestGraph_RemoveMissingNode(t *testing.T) {
	g := NewGraph()
	err := g.RemoveNode("question_404")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestGraph_AddEdgeOccupiedPort(t *testing.T) {
	var notices []domain.Notice
	g := NewGraph()
	g.SetNotifier(func(n domain.Notice) { notices = append(notices, n) })

	q := questionWithAnswers(t, g, "Yes")
	m1, _ := g.AddNode(domain.NodeTypeMessage)
	m2, _ := g.AddNode(domain.NodeTypeMessage)

	_, err := g.AddEdge(q.ID, m1.ID, "yes", "Yes")
	require.NoError(t, err)

	_, err = g.AddEdge(q.ID, m2.ID, "yes", "Yes")
	assert.ErrorIs(t, err, domain.ErrPortOccupied)
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)
	assert.Len(t, g.Edges(), 1, "rejected edge must not be recorded")
}

func TestGraph_AddEdgeSelfLoopSilent(t *testing.T) {
	var notices []domain.Notice
	g := NewGraph()
	g.SetNotifier(func(n domain.Notice) { notices = append(notices, n) })

	q := questionWithAnswers(t, g, "Yes")
	_, err := g.AddEdge(q.ID, q.ID, "yes", "Yes")
	assert.ErrorIs(t, err, domain.ErrSelfLoop)
	assert.Empty(t, notices, "self-loop rejection is silent")
	assert.Empty(t, g.Edges())
}

func TestGraph_AddEdgeCanonicalizesLabel(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "Not sure")
	m, _ := g.AddNode(domain.NodeTypeMessage)

	edge, err := g.AddEdge(q.ID, m.ID, "not_sure", "whatever the host sent")
	require.NoError(t, err)
	assert.Equal(t, "Not sure", edge.Label, "question edges carry the canonical answer text")
	assert.Equal(t, domain.InputPortID, edge.TargetPort)
}

func TestGraph_QuestionPortsFollowAnswers(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "Yes", "No", "  ", "Yes")

	ports := g.OutputPorts(q.ID)
	require.Len(t, ports, 3, "blank answers are dropped")
	assert.Equal(t, "yes", ports[0].ID)
	assert.Equal(t, "no", ports[1].ID)
	assert.Equal(t, "yes_2", ports[2].ID, "duplicate keys get suffixed")

	// No answers at all synthesizes the single fallback port.
	require.NoError(t, g.SetAnswers(q.ID, nil))
	ports = g.OutputPorts(q.ID)
	require.Len(t, ports, 1)
	assert.Equal(t, domain.DefaultOutputPortID, ports[0].ID)
}

func TestGraph_SetAnswersOnMessage(t *testing.T) {
	g := NewGraph()
	m, _ := g.AddNode(domain.NodeTypeMessage)
	err := g.SetAnswers(m.ID, []domain.Answer{{Value: "Yes"}})
	assert.Error(t, err)
}

func TestGraph_AnswerEditRebindsAndPrunes(t *testing.T) {
	var notices []domain.Notice
	g := NewGraph()
	g.SetNotifier(func(n domain.Notice) { notices = append(notices, n) })

	q := questionWithAnswers(t, g, "Sí", "No")
	m1, _ := g.AddNode(domain.NodeTypeMessage)
	m2, _ := g.AddNode(domain.NodeTypeMessage)

	siEdge, err := g.AddEdge(q.ID, m1.ID, "sí", "Sí")
	require.NoError(t, err)
	noEdge, err := g.AddEdge(q.ID, m2.ID, "no", "No")
	require.NoError(t, err)

	// Replace {Sí, No} with {Sí, Tal vez}: the Sí edge survives on its
	// rebound port, the No edge is pruned with a warning.
	require.NoError(t, g.SetAnswers(q.ID, []domain.Answer{{Value: "Sí"}, {Value: "Tal vez"}}))

	assert.NotNil(t, g.Edge(siEdge.ID))
	assert.Equal(t, "sí", g.Edge(siEdge.ID).SourcePort)
	assert.Equal(t, "Sí", g.Edge(siEdge.ID).Label)

	assert.Nil(t, g.Edge(noEdge.ID), "orphaned edge must be pruned")
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)
	assert.Contains(t, notices[0].Message, "No")

	ports := g.OutputPorts(q.ID)
	require.Len(t, ports, 2)
	assert.Equal(t, "tal_vez", ports[1].ID)
}

func TestGraph_AnswerEditRewritesCasing(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "yes")
	m, _ := g.AddNode(domain.NodeTypeMessage)
	edge, err := g.AddEdge(q.ID, m.ID, "yes", "yes")
	require.NoError(t, err)

	// Recasing the answer keeps the binding and rewrites the label.
	require.NoError(t, g.SetAnswers(q.ID, []domain.Answer{{Value: "YES"}}))
	assert.Equal(t, "yes", g.Edge(edge.ID).SourcePort)
	assert.Equal(t, "YES", g.Edge(edge.ID).Label)
}

func TestGraph_DuplicateAnswersKeepDistinctEdges(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "Yes", "Yes")
	m1, _ := g.AddNode(domain.NodeTypeMessage)
	m2, _ := g.AddNode(domain.NodeTypeMessage)

	e1, err := g.AddEdge(q.ID, m1.ID, "yes", "Yes")
	require.NoError(t, err)
	e2, err := g.AddEdge(q.ID, m2.ID, "yes_2", "Yes")
	require.NoError(t, err)

	// A no-op answer edit must not collapse the suffixed binding.
	require.NoError(t, g.SetAnswers(q.ID, []domain.Answer{{Value: "Yes"}, {Value: "Yes"}}))
	assert.Equal(t, "yes", g.Edge(e1.ID).SourcePort)
	assert.Equal(t, "yes_2", g.Edge(e2.ID).SourcePort)
}

func TestGraph_RemovingDuplicateAnswerPrunesOrphanedEdge(t *testing.T) {
	var notices []domain.Notice
	g := NewGraph()
	g.SetNotifier(func(n domain.Notice) { notices = append(notices, n) })
	q := questionWithAnswers(t, g, "Yes", "Yes")
	m1, _ := g.AddNode(domain.NodeTypeMessage)
	m2, _ := g.AddNode(domain.NodeTypeMessage)

	e1, err := g.AddEdge(q.ID, m1.ID, "yes", "Yes")
	require.NoError(t, err)
	e2, err := g.AddEdge(q.ID, m2.ID, "yes_2", "Yes")
	require.NoError(t, err)

	// Shrinking to one answer leaves the yes_2 edge without a port. It
	// must be pruned, not rebound onto yes where e1 already sits.
	require.NoError(t, g.SetAnswers(q.ID, []domain.Answer{{Value: "Yes"}}))
	assert.Equal(t, "yes", g.Edge(e1.ID).SourcePort)
	assert.Nil(t, g.Edge(e2.ID))
	require.Len(t, g.Outgoing(q.ID), 1)
	assert.Equal(t, e1.ID, g.EdgeAt(q.ID, "yes").ID)
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)
}

func TestGraph_ShrinkKeepsSurvivorRegardlessOfEdgeOrder(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "Yes", "Yes")
	m1, _ := g.AddNode(domain.NodeTypeMessage)
	m2, _ := g.AddNode(domain.NodeTypeMessage)

	// The suffixed edge is created first, so it precedes the yes edge in
	// iteration order; the yes edge must still keep its port.
	e2, err := g.AddEdge(q.ID, m2.ID, "yes_2", "Yes")
	require.NoError(t, err)
	e1, err := g.AddEdge(q.ID, m1.ID, "yes", "Yes")
	require.NoError(t, err)

	require.NoError(t, g.SetAnswers(q.ID, []domain.Answer{{Value: "Yes"}}))
	assert.Nil(t, g.Edge(e2.ID))
	require.NotNil(t, g.Edge(e1.ID))
	assert.Equal(t, "yes", g.Edge(e1.ID).SourcePort)
}

func TestGraph_MessagePortsTrackEdges(t *testing.T) {
	g := NewGraph()
	m, _ := g.AddNode(domain.NodeTypeMessage)
	t1, _ := g.AddNode(domain.NodeTypeMessage)
	t2, _ := g.AddNode(domain.NodeTypeMessage)

	assert.Empty(t, g.OutputPorts(m.ID), "message nodes start with no ports")

	e1, err := g.AddEdge(m.ID, t1.ID, "", "")
	require.NoError(t, err)
	e2, err := g.AddEdge(m.ID, t2.ID, "fallback", "Fallback")
	require.NoError(t, err)

	ports := g.OutputPorts(m.ID)
	require.Len(t, ports, 2)
	assert.Equal(t, domain.DefaultOutputPortID, ports[0].ID)
	assert.Equal(t, "fallback", ports[1].ID)
	assert.Equal(t, domain.DefaultOutputPortID, g.Edge(e1.ID).SourcePort)
	assert.Equal(t, "fallback", g.Edge(e2.ID).SourcePort)

	require.NoError(t, g.RemoveEdge(e1.ID))
	ports = g.OutputPorts(m.ID)
	require.Len(t, ports, 1)
	assert.Equal(t, "fallback", ports[0].ID)
}

func TestGraph_MoveNodeSnaps(t *testing.T) {
	g := NewGraph()
	q, _ := g.AddNode(domain.NodeTypeQuestion)

	require.NoError(t, g.MoveNode(q.ID, domain.Position{X: 133, Y: -17}))
	assert.Equal(t, domain.Position{X: 130, Y: -20}, g.Node(q.ID).Position)

	require.NoError(t, g.MoveNode(q.ID, domain.Position{X: 135, Y: 135}))
	assert.Equal(t, domain.Position{X: 140, Y: 140}, g.Node(q.ID).Position)

	err := g.MoveNode("question_404", domain.Position{})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestGraph_SnapshotNormalizes(t *testing.T) {
	g := NewGraph()
	q := questionWithAnswers(t, g, "Yes")
	m, _ := g.AddNode(domain.NodeTypeMessage)
	require.NoError(t, g.SetMetadata(q.ID, map[string]string{}))
	require.NoError(t, g.SetAppearance(m.ID, &domain.Appearance{}))
	_, err := g.AddEdge(q.ID, m.ID, "yes", "Yes")
	require.NoError(t, err)

	snap := g.Snapshot()
	require.Len(t, snap.Nodes, 2)
	assert.Nil(t, snap.Nodes[0].Metadata, "empty metadata is omitted")
	assert.Nil(t, snap.Nodes[1].Appearance, "empty appearance is omitted")
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, domain.InputPortID, snap.Edges[0].TargetPort)

	// The snapshot is detached from the live graph.
	snap.Nodes[0].Title = "mutated"
	assert.Empty(t, g.Node(q.ID).Title)
}

func TestGraph_LoadReconcilesStaleEdges(t *testing.T) {
	var notices []domain.Notice
	g := NewGraph()
	g.SetNotifier(func(n domain.Notice) { notices = append(notices, n) })

	flow := &domain.Flow{
		ID:   "f1",
		Name: "triage",
		Nodes: []*domain.Node{
			{ID: "question_1", Type: domain.NodeTypeQuestion, ExpectedAnswers: []domain.Answer{{Value: "Yes"}}},
			{ID: "message_1", Type: domain.NodeTypeMessage},
		},
		Edges: []*domain.Edge{
			{ID: "edge_aaaaaaaa_bbbbbbbb", Source: "question_1", Target: "message_1", Label: "Maybe", SourcePort: "maybe"},
		},
	}
	mutated, err := g.Load(flow)
	require.NoError(t, err)

	assert.True(t, mutated, "pruning at load is reported to the caller")
	assert.Empty(t, g.Edges(), "edge bound to a vanished answer is pruned at load")
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)
}

func TestGraph_LoadRejectsBrokenShape(t *testing.T) {
	g := NewGraph()
	flow := &domain.Flow{
		ID:   "f1",
		Name: "broken",
		Edges: []*domain.Edge{
			{ID: "edge_aaaaaaaa_bbbbbbbb", Source: "question_1", Target: "message_1"},
		},
	}
	_, err := g.Load(flow)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrFlowNotFound))
}

func TestGraph_MutateHookFires(t *testing.T) {
	count := 0
	g := NewGraph()
	g.SetMutateHook(func() { count++ })

	q, _ := g.AddNode(domain.NodeTypeQuestion)
	require.NoError(t, g.SetTitle(q.ID, "start"))
	require.NoError(t, g.MoveNode(q.ID, domain.Position{X: 10}))
	assert.Equal(t, 3, count)
}
