package editor

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/espalier/pkg/domain"
)

// GridStep is the logical snap step applied to node positions during drag.
const GridStep = 10.0

// Default layout grid for nodes created without an explicit position.
const (
	layoutColumns  = 4
	layoutSpacingX = 320
	layoutSpacingY = 220
	layoutOriginX  = 160
	layoutOriginY  = 120
)

// Graph is the mutable aggregate of one editing session: nodes, edges and
// the per-type id counters. Every mutating operation leaves the referential
// invariants satisfied before returning, in particular it reconciles
// derived output ports whenever a mutation affects a question node's answer
// list or a message node's outgoing-edge set.
//
// Graph is not safe for concurrent use; the editor is single-threaded and
// event-driven by design.
type Graph struct {
	nodes     map[string]*domain.Node
	edges     map[string]*domain.Edge
	nodeOrder []string
	edgeOrder []string
	counters  map[string]int
	outputs   map[string][]OutputPort
	anchors   map[domain.PortRef]point

	// notify surfaces non-blocking notices; onMutate is invoked after every
	// successful model mutation (the dirty bridge hangs off it).
	notify   func(domain.Notice)
	onMutate func()
}

type point struct{ X, Y float64 }

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*domain.Node),
		edges:    make(map[string]*domain.Edge),
		counters: make(map[string]int),
		outputs:  make(map[string][]OutputPort),
		anchors:  make(map[domain.PortRef]point),
		notify:   func(domain.Notice) {},
		onMutate: func() {},
	}
}

// SetNotifier installs the notice sink. A nil sink disables notices.
func (g *Graph) SetNotifier(fn func(domain.Notice)) {
	if fn == nil {
		fn = func(domain.Notice) {}
	}
	g.notify = fn
}

// SetMutateHook installs the callback fired after each successful mutation.
func (g *Graph) SetMutateHook(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	g.onMutate = fn
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *domain.Node { return g.nodes[id] }

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id string) *domain.Edge { return g.edges[id] }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*domain.Edge {
	out := make([]*domain.Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// Outgoing returns the edges whose source is nodeID, in insertion order.
func (g *Graph) Outgoing(nodeID string) []*domain.Edge {
	var out []*domain.Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgeAt returns the edge occupying (source, sourcePort), or nil.
func (g *Graph) EdgeAt(sourceID, sourcePort string) *domain.Edge {
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Source == sourceID && e.SourcePort == sourcePort {
			return e
		}
	}
	return nil
}

// AddNode creates a node of the given type with a fresh {type}_{n} id.
// Counters are per-type and monotonic: a deleted question_3 is never
// reissued while the counter has moved past it.
func (g *Graph) AddNode(nodeType string) (*domain.Node, error) {
	if nodeType != domain.NodeTypeQuestion && nodeType != domain.NodeTypeMessage {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}

	var id string
	for {
		g.counters[nodeType]++
		id = nodeType + "_" + strconv.Itoa(g.counters[nodeType])
		if _, taken := g.nodes[id]; !taken {
			break
		}
	}

	index := len(g.nodeOrder)
	node := &domain.Node{
		ID:   id,
		Type: nodeType,
		Position: domain.Position{
			X: layoutOriginX + float64(index%layoutColumns)*layoutSpacingX,
			Y: layoutOriginY + float64(index/layoutColumns)*layoutSpacingY,
		},
	}
	g.nodes[id] = node
	g.nodeOrder = append(g.nodeOrder, id)
	g.reconcile(node)
	g.onMutate()
	return node, nil
}

// RemoveNode deletes the node and every edge where it is source or target,
// and purges its anchors. Removing an absent node is an error.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("remove node %s: %w", id, domain.ErrNodeNotFound)
	}

	touched := make(map[string]bool)
	kept := g.edgeOrder[:0]
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		if e.Source == id || e.Target == id {
			if e.Target == id && e.Source != id {
				touched[e.Source] = true
			}
			delete(g.edges, eid)
			continue
		}
		kept = append(kept, eid)
	}
	g.edgeOrder = kept

	delete(g.nodes, id)
	g.nodeOrder = removeString(g.nodeOrder, id)
	delete(g.outputs, id)
	g.purgeAnchors(id)

	// Message nodes that lost an outgoing edge derive a new port layout.
	for sourceID := range touched {
		if n := g.nodes[sourceID]; n != nil && n.IsMessage() {
			g.reconcile(n)
		}
	}

	g.onMutate()
	return nil
}

// AddEdge connects (sourceID, sourcePort) to targetID's input port.
// Exactly one edge may occupy an output port; a second is rejected with a
// notice. Self-loops are rejected silently (no notice), matching the
// linking gesture's behavior.
func (g *Graph) AddEdge(sourceID, targetID, sourcePort, label string) (*domain.Edge, error) {
	source, ok := g.nodes[sourceID]
	if !ok {
		return nil, fmt.Errorf("add edge from %s: %w", sourceID, domain.ErrNodeNotFound)
	}
	if _, ok := g.nodes[targetID]; !ok {
		return nil, fmt.Errorf("add edge to %s: %w", targetID, domain.ErrNodeNotFound)
	}
	if sourceID == targetID {
		return nil, domain.ErrSelfLoop
	}
	if sourcePort == "" {
		sourcePort = domain.DefaultOutputPortID
	}
	if existing := g.EdgeAt(sourceID, sourcePort); existing != nil {
		g.notify(domain.Notice{
			Level:   domain.NoticeWarning,
			Message: fmt.Sprintf("output %q of %s is already connected", sourcePort, sourceID),
		})
		return nil, domain.ErrPortOccupied
	}

	// On question nodes the label always mirrors the canonical answer text
	// of the port, so label and port key never drift apart.
	if source.IsQuestion() {
		if port, ok := g.outputPort(sourceID, sourcePort); ok {
			label = port.Label
		}
	}

	edge := &domain.Edge{
		ID:         newEdgeID(),
		Source:     sourceID,
		Target:     targetID,
		Label:      label,
		SourcePort: sourcePort,
		TargetPort: domain.InputPortID,
	}
	g.edges[edge.ID] = edge
	g.edgeOrder = append(g.edgeOrder, edge.ID)

	if source.IsMessage() {
		g.reconcile(source)
	}
	g.onMutate()
	return edge, nil
}

// RemoveEdge deletes the edge unconditionally.
func (g *Graph) RemoveEdge(id string) error {
	edge, ok := g.edges[id]
	if !ok {
		return fmt.Errorf("remove edge %s: %w", id, domain.ErrEdgeNotFound)
	}
	delete(g.edges, id)
	g.edgeOrder = removeString(g.edgeOrder, id)

	if source := g.nodes[edge.Source]; source != nil && source.IsMessage() {
		g.reconcile(source)
	}
	g.onMutate()
	return nil
}

// MoveNode sets a node's logical position, snapped to the grid.
func (g *Graph) MoveNode(id string, pos domain.Position) error {
	node, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("move node %s: %w", id, domain.ErrNodeNotFound)
	}
	node.Position = domain.Position{X: snap(pos.X), Y: snap(pos.Y)}
	g.onMutate()
	return nil
}

// SetTitle updates a node's free-form title.
func (g *Graph) SetTitle(id, title string) error {
	return g.update(id, func(n *domain.Node) { n.Title = title })
}

// SetQuestion updates a question node's prompt text.
func (g *Graph) SetQuestion(id, text string) error {
	return g.update(id, func(n *domain.Node) { n.Question = text })
}

// SetMessage updates a message node's content.
func (g *Graph) SetMessage(id, text string) error {
	return g.update(id, func(n *domain.Node) { n.Message = text })
}

// SetSeverity updates a message node's severity.
func (g *Graph) SetSeverity(id, severity string) error {
	return g.update(id, func(n *domain.Node) { n.Severity = severity })
}

// SetMetadata replaces a node's metadata map.
func (g *Graph) SetMetadata(id string, metadata map[string]string) error {
	return g.update(id, func(n *domain.Node) { n.Metadata = metadata })
}

// SetAppearance replaces a node's color overrides; nil clears them.
func (g *Graph) SetAppearance(id string, ap *domain.Appearance) error {
	return g.update(id, func(n *domain.Node) {
		if ap != nil && ap.Empty() {
			ap = nil
		}
		n.Appearance = ap
	})
}

// SetAnswers replaces a question node's declared answer set and reconciles
// outgoing edges against the new set: matching edges are rebound and
// relabeled with the canonical answer text, orphaned edges are pruned with
// a notice, and the output port list is rebuilt in answer order.
func (g *Graph) SetAnswers(id string, answers []domain.Answer) error {
	node, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set answers on %s: %w", id, domain.ErrNodeNotFound)
	}
	if !node.IsQuestion() {
		return fmt.Errorf("set answers on %s: node is not a question", id)
	}
	node.ExpectedAnswers = answers
	g.reconcile(node)
	g.onMutate()
	return nil
}

func (g *Graph) update(id string, apply func(*domain.Node)) error {
	node, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("update node %s: %w", id, domain.ErrNodeNotFound)
	}
	apply(node)
	g.onMutate()
	return nil
}

// Load seeds the graph from a snapshot, recovering the per-type counters by
// scanning existing ids for the highest numeric suffix, then reconciles
// every node so the derived-port invariant holds from the first render.
// The returned flag reports whether reconciliation pruned or rewrote any
// edge, in which case the live graph already differs from the snapshot.
func (g *Graph) Load(flow *domain.Flow) (bool, error) {
	if err := flow.CheckShape(); err != nil {
		return false, err
	}

	g.nodes = make(map[string]*domain.Node, len(flow.Nodes))
	g.edges = make(map[string]*domain.Edge, len(flow.Edges))
	g.nodeOrder = g.nodeOrder[:0]
	g.edgeOrder = g.edgeOrder[:0]
	g.counters = make(map[string]int)
	g.outputs = make(map[string][]OutputPort)
	g.anchors = make(map[domain.PortRef]point)

	for _, n := range flow.Nodes {
		node := n.Clone()
		g.nodes[node.ID] = node
		g.nodeOrder = append(g.nodeOrder, node.ID)
		if prefix, num, ok := splitTypedID(node.ID); ok && num > g.counters[prefix] {
			g.counters[prefix] = num
		}
	}
	for _, e := range flow.Edges {
		edge := e.Clone()
		if edge.TargetPort == "" {
			edge.TargetPort = domain.InputPortID
		}
		g.edges[edge.ID] = edge
		g.edgeOrder = append(g.edgeOrder, edge.ID)
	}
	before := make(map[string][2]string, len(g.edges))
	for id, e := range g.edges {
		before[id] = [2]string{e.SourcePort, e.Label}
	}
	for _, id := range g.nodeOrder {
		g.reconcile(g.nodes[id])
	}

	mutated := len(g.edges) != len(before)
	if !mutated {
		for id, e := range g.edges {
			if b := before[id]; b[0] != e.SourcePort || b[1] != e.Label {
				mutated = true
				break
			}
		}
	}
	return mutated, nil
}

// Snapshot normalizes the live maps into a plain flow: nodes carry only
// populated fields, edges carry resolved source/target ports. The result
// shares no memory with the graph.
func (g *Graph) Snapshot() *domain.Flow {
	flow := &domain.Flow{
		Nodes: make([]*domain.Node, 0, len(g.nodeOrder)),
		Edges: make([]*domain.Edge, 0, len(g.edgeOrder)),
	}
	for _, id := range g.nodeOrder {
		node := g.nodes[id].Clone()
		if len(node.Metadata) == 0 {
			node.Metadata = nil
		}
		if node.Appearance != nil && node.Appearance.Empty() {
			node.Appearance = nil
		}
		flow.Nodes = append(flow.Nodes, node)
	}
	for _, id := range g.edgeOrder {
		edge := g.edges[id].Clone()
		if edge.SourcePort == "" {
			edge.SourcePort = domain.DefaultOutputPortID
		}
		if edge.TargetPort == "" {
			edge.TargetPort = domain.InputPortID
		}
		flow.Edges = append(flow.Edges, edge)
	}
	return flow
}

func snap(v float64) float64 {
	steps := v / GridStep
	if steps >= 0 {
		return GridStep * float64(int64(steps+0.5))
	}
	return GridStep * float64(int64(steps-0.5))
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// splitTypedID parses ids of the form {type}_{n}. Used for counter recovery.
func splitTypedID(id string) (prefix string, num int, ok bool) {
	i := strings.LastIndex(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}

func newEdgeID() string {
	u := uuid.New()
	token := hex.EncodeToString(u[:])
	return "edge_" + token[:8] + "_" + token[8:16]
}
