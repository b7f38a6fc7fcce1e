package domain

// InputPortID is the id of the single input port every node exposes.
const InputPortID = "input"

// DefaultOutputPortID is the synthesized output port of a question node
// whose answer list is empty.
const DefaultOutputPortID = "output"

// Edge is a directed, labeled connection from a source node's output port
// to a target node's input port. Ids are opaque and generated; Source and
// Target must reference live nodes, and SourcePort must match one of the
// source node's currently derived output ports (reconciliation enforces
// this continuously, not just at load).
type Edge struct {
	ID         string `json:"id" yaml:"id" validate:"required"`
	Source     string `json:"source" yaml:"source" validate:"required"`
	Target     string `json:"target" yaml:"target" validate:"required"`
	Label      string `json:"label" yaml:"label"`
	SourcePort string `json:"source_port" yaml:"source_port"`
	TargetPort string `json:"target_port" yaml:"target_port"`
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	next := *e
	return &next
}

// PortDirection distinguishes the two anchor families of a node.
type PortDirection string

const (
	PortIn  PortDirection = "input"
	PortOut PortDirection = "output"
)

// PortRef addresses a derived anchor on a node. Ports are not persisted
// entities; they are recomputed from node content by the editor.
type PortRef struct {
	NodeID    string
	Direction PortDirection
	PortID    string
}
