package editor

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// reconcile is the single place that resolves the coupling between a
// node's declared content (authoring intent) and its edges (authored
// connections). It runs after every edit that can change either side, not
// just at load time, otherwise stale edges silently reference branches
// that no longer exist.
func (g *Graph) reconcile(node *domain.Node) {
	switch {
	case node.IsQuestion():
		g.reconcileQuestion(node)
	case node.IsMessage():
		g.reconcileMessage(node)
	}
}

// reconcileQuestion rebinds or prunes the node's outgoing edges against
// the answer set, then rebuilds the derived port list in answer order.
func (g *Graph) reconcileQuestion(node *domain.Node) {
	ports := deriveQuestionPorts(node)

	// Canonical label per key, in declaration order. The first answer to
	// claim a key wins; suffixed duplicates keep their own entry.
	byKey := make(map[string]OutputPort, len(ports))
	for _, p := range ports {
		byKey[p.ID] = p
	}

	outgoing := g.Outgoing(node.ID)

	// Edges whose current binding survived the edit with the same
	// normalized label claim their port up front, so a rebound edge can
	// never steal a port that its rightful holder is about to keep.
	claimed := make(map[string]string, len(ports))
	for _, edge := range outgoing {
		if port, ok := byKey[edge.SourcePort]; ok && NormalizeKey(port.Label) == questionEdgeKey(edge) {
			if _, taken := claimed[port.ID]; !taken {
				claimed[port.ID] = edge.ID
			}
		}
	}

	for _, edge := range outgoing {
		key := questionEdgeKey(edge)
		// Prefer the edge's current binding when it survived the edit and
		// still carries the same normalized label; this keeps edges on
		// suffixed duplicate ports from collapsing onto the first one.
		port, ok := byKey[edge.SourcePort]
		if !ok || NormalizeKey(port.Label) != key {
			port, ok = byKey[key]
		}
		if ok {
			// One edge per (source, sourcePort): a port already held by a
			// different edge is not a landing spot.
			if holder, taken := claimed[port.ID]; taken && holder != edge.ID {
				ok = false
			} else {
				claimed[port.ID] = edge.ID
			}
		}
		if !ok {
			// The answer this edge pointed at no longer exists, or its
			// port is occupied by a surviving edge.
			delete(g.edges, edge.ID)
			g.edgeOrder = removeString(g.edgeOrder, edge.ID)
			g.notify(domain.Notice{
				Level:   domain.NoticeWarning,
				Message: fmt.Sprintf("removed connection %q from %s: no matching answer", edge.Label, node.ID),
			})
			continue
		}
		// Rebind and rewrite to the canonical answer text so label and
		// port key never drift apart.
		edge.SourcePort = port.ID
		if port.Label != "" {
			edge.Label = port.Label
		}
	}

	g.outputs[node.ID] = ports
}

// questionEdgeKey is the normalized key a question edge matches ports by.
// Unlabeled edges fall back to the port id they were created on.
func questionEdgeKey(edge *domain.Edge) string {
	if key := NormalizeKey(edge.Label); key != "" {
		return key
	}
	return edge.SourcePort
}

// reconcileMessage recomputes a message node's ports directly from its
// live outgoing edges and rebinds each edge to its derived key.
func (g *Graph) reconcileMessage(node *domain.Node) {
	outgoing := g.Outgoing(node.ID)
	ports := deriveMessagePorts(outgoing)
	for i, edge := range outgoing {
		edge.SourcePort = ports[i].ID
	}
	g.outputs[node.ID] = ports
}
