package editor

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/geometry"
)

// OutputPort is a derived output anchor of a node. Ports are never
// persisted; they are recomputed from node content by reconciliation.
type OutputPort struct {
	// ID is the normalized, per-node-unique port key edges bind to.
	ID string
	// Label is the canonical (non-normalized) text shown next to the port.
	Label string
}

// OutputPorts returns the node's current derived output ports, in order.
// The returned slice must not be mutated.
func (g *Graph) OutputPorts(nodeID string) []OutputPort {
	return g.outputs[nodeID]
}

func (g *Graph) outputPort(nodeID, portID string) (OutputPort, bool) {
	for _, p := range g.outputs[nodeID] {
		if p.ID == portID {
			return p, true
		}
	}
	return OutputPort{}, false
}

// deriveQuestionPorts builds the ordered port list of a question node from
// its declared answers: 1:1, keyed by the normalized answer text, blank
// entries dropped, collisions suffixed. An empty list synthesizes the
// single fallback port.
func deriveQuestionPorts(node *domain.Node) []OutputPort {
	taken := make(map[string]bool, len(node.ExpectedAnswers))
	ports := make([]OutputPort, 0, len(node.ExpectedAnswers))
	for _, answer := range node.ExpectedAnswers {
		key := NormalizeKey(answer.Value)
		if key == "" {
			continue
		}
		ports = append(ports, OutputPort{ID: dedupeKey(key, taken), Label: answer.Value})
	}
	if len(ports) == 0 {
		return []OutputPort{{ID: domain.DefaultOutputPortID}}
	}
	return ports
}

// deriveMessagePorts builds a message node's port list from its live
// outgoing edges, so the port count tracks the connections the author has
// actually made. Keys default to the normalized edge label, falling back
// to the default port id for blank labels, deduplicated per node.
func deriveMessagePorts(outgoing []*domain.Edge) []OutputPort {
	taken := make(map[string]bool, len(outgoing))
	ports := make([]OutputPort, 0, len(outgoing))
	for _, e := range outgoing {
		key := NormalizeKey(e.Label)
		if key == "" {
			key = domain.DefaultOutputPortID
		}
		ports = append(ports, OutputPort{ID: dedupeKey(key, taken), Label: e.Label})
	}
	return ports
}

// RegisterAnchor records the screen position of a port anchor. Rendering
// hosts publish anchors here; geometry reads them back to route curves.
func (g *Graph) RegisterAnchor(ref domain.PortRef, at geometry.Point) {
	g.anchors[ref] = point{X: at.X, Y: at.Y}
}

// Anchor looks up a registered anchor position.
func (g *Graph) Anchor(ref domain.PortRef) (geometry.Point, bool) {
	p, ok := g.anchors[ref]
	return geometry.Point{X: p.X, Y: p.Y}, ok
}

// purgeAnchors drops every anchor belonging to a removed node so no
// dangling anchor outlives its node.
func (g *Graph) purgeAnchors(nodeID string) {
	for ref := range g.anchors {
		if ref.NodeID == nodeID {
			delete(g.anchors, ref)
		}
	}
}
