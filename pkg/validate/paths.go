package validate

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// graph is the adjacency view used for structural analysis. Edges whose
// endpoints are unknown are reported and excluded, so the walks below only
// ever see resolvable references.
type graph struct {
	order    []string
	outgoing map[string][]*domain.Edge
	incoming map[string]int
}

func buildGraph(flow *domain.Flow, ids map[string]bool, report *domain.Report) *graph {
	g := &graph{
		outgoing: make(map[string][]*domain.Edge),
		incoming: make(map[string]int),
	}
	seen := make(map[string]bool, len(flow.Nodes))
	for _, node := range flow.Nodes {
		if node.ID == "" || seen[node.ID] {
			continue
		}
		seen[node.ID] = true
		g.order = append(g.order, node.ID)
	}

	for _, edge := range flow.Edges {
		if edge.Source == "" || edge.Target == "" {
			report.Errors = append(report.Errors, "a connection is missing its source or target")
			continue
		}
		broken := false
		if !ids[edge.Source] {
			report.Errors = append(report.Errors, fmt.Sprintf("connection references unknown node %q", edge.Source))
			broken = true
		}
		if !ids[edge.Target] {
			report.Errors = append(report.Errors, fmt.Sprintf("connection references unknown node %q", edge.Target))
			broken = true
		}
		if broken {
			continue
		}
		if edge.Label == "" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("connection %s -> %s has no label", edge.Source, edge.Target))
		}
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		g.incoming[edge.Target]++
	}
	return g
}

func (g *graph) roots() []string {
	var out []string
	for _, id := range g.order {
		if g.incoming[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

func (g *graph) terminals() []string {
	var out []string
	for _, id := range g.order {
		if len(g.outgoing[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// findCycle returns one cycle as a node sequence (closed, first == last),
// or nil. Standard three-color DFS.
func (g *graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, edge := range g.outgoing[id] {
			next := edge.Target
			switch color[next] {
			case gray:
				// Found the back edge; slice the cycle out of the stack.
				for i, v := range stack {
					if v == next {
						cycle = append(append(cycle, stack[i:]...), next)
						return true
					}
				}
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// enumeratePaths lists every simple path from a root to a terminal, in
// node order. Single isolated nodes count as one-element paths.
func (g *graph) enumeratePaths() [][]string {
	var paths [][]string
	terminal := make(map[string]bool)
	for _, id := range g.terminals() {
		terminal[id] = true
	}

	var walk func(id string, trail []string)
	walk = func(id string, trail []string) {
		trail = append(trail, id)
		if terminal[id] {
			paths = append(paths, append([]string(nil), trail...))
			return
		}
		for _, edge := range g.outgoing[id] {
			if contains(trail, edge.Target) {
				continue
			}
			walk(edge.Target, trail)
		}
	}

	for _, root := range g.roots() {
		walk(root, nil)
	}
	return paths
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
