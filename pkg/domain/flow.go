package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Flow is the normalized persistence snapshot of a decision flow: the sole
// payload exchanged with stores, validators and exporters. The editor builds
// it from its live maps on save and seeds itself from it on load.
type Flow struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []*Node `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges       []*Edge `json:"edges" yaml:"edges" validate:"dive"`
}

var flowValidate = validator.New()

// CheckShape verifies the structural shape of a loaded snapshot: required
// fields present, node types known, edge endpoints resolvable. It does not
// judge flow semantics (that is pkg/validate's job); it guards against
// malformed input before the editor seeds from it.
func (f *Flow) CheckShape() error {
	if f == nil {
		return fmt.Errorf("flow is nil")
	}
	if err := flowValidate.Struct(f); err != nil {
		return fmt.Errorf("flow shape: %w", err)
	}

	seen := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("flow shape: duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range f.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("flow shape: edge %s references unknown source %q", e.ID, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("flow shape: edge %s references unknown target %q", e.ID, e.Target)
		}
	}
	return nil
}

// Clone returns a deep copy of the flow.
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	next := &Flow{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Nodes:       make([]*Node, 0, len(f.Nodes)),
		Edges:       make([]*Edge, 0, len(f.Edges)),
	}
	for _, n := range f.Nodes {
		next.Nodes = append(next.Nodes, n.Clone())
	}
	for _, e := range f.Edges {
		next.Edges = append(next.Edges, e.Clone())
	}
	return next
}

// Report is the validation outcome shape consumed by display surfaces.
// It never mutates the graph it was computed from.
type Report struct {
	Valid    bool       `json:"valid"`
	Errors   []string   `json:"errors"`
	Warnings []string   `json:"warnings"`
	Paths    [][]string `json:"paths"`
}
