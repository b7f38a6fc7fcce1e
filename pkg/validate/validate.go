// Package validate implements structural flow validation: referential
// checks, root/terminal analysis, cycle detection and decision-path
// enumeration. It is a display-only collaborator; nothing here mutates
// the flow it inspects.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// Validator implements ports.FlowValidator.
type Validator struct{}

// New returns a flow validator.
func New() *Validator { return &Validator{} }

// Validate builds the diagnostics report for a flow. Errors make the flow
// invalid; warnings are advisory. Paths are enumerated only for flows
// without errors, since a broken graph produces misleading routes.
func (v *Validator) Validate(ctx context.Context, flow *domain.Flow) (*domain.Report, error) {
	report := &domain.Report{
		Errors:   []string{},
		Warnings: []string{},
		Paths:    [][]string{},
	}
	if flow == nil {
		report.Errors = append(report.Errors, "flow is empty")
		return report, nil
	}

	ids := checkNodes(flow, report)
	g := buildGraph(flow, ids, report)

	if len(g.order) == 0 {
		report.Errors = append(report.Errors, "flow contains no nodes")
		return report, nil
	}

	rootIDs := g.roots()
	if len(rootIDs) == 0 {
		report.Errors = append(report.Errors, "no root nodes found (every node has incoming connections)")
	}
	if len(g.terminals()) == 0 {
		report.Errors = append(report.Errors, "no terminal nodes found")
	}
	if cycle := g.findCycle(); len(cycle) > 0 {
		report.Errors = append(report.Errors, "cycle detected: "+strings.Join(cycle, " -> "))
	}

	checkBranches(flow, g, report)

	if len(report.Errors) == 0 {
		report.Paths = g.enumeratePaths()
		report.Valid = true
	}
	return report, nil
}

// checkNodes validates node identity and returns the set of known ids.
func checkNodes(flow *domain.Flow, report *domain.Report) map[string]bool {
	ids := make(map[string]bool, len(flow.Nodes))
	var duplicates []string
	missing := 0
	for _, node := range flow.Nodes {
		if node.ID == "" {
			missing++
			continue
		}
		if ids[node.ID] {
			duplicates = append(duplicates, node.ID)
			continue
		}
		ids[node.ID] = true
	}
	if missing > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("%d node(s) have no identifier", missing))
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		report.Errors = append(report.Errors, "duplicate node ids: "+strings.Join(duplicates, ", "))
	}
	return ids
}

// checkBranches cross-checks question branching against declared answers
// and flags message nodes used as non-terminals.
func checkBranches(flow *domain.Flow, g *graph, report *domain.Report) {
	for _, node := range flow.Nodes {
		outgoing := g.outgoing[node.ID]

		if node.IsMessage() && len(outgoing) > 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("message node %q has outgoing connections and is not terminal", node.ID))
		}

		if !node.IsQuestion() || len(node.ExpectedAnswers) == 0 {
			continue
		}
		expected := make(map[string]bool, len(node.ExpectedAnswers))
		for _, a := range node.ExpectedAnswers {
			if text := strings.TrimSpace(a.Value); text != "" {
				expected[text] = true
			}
		}
		connected := make(map[string]bool, len(outgoing))
		for _, edge := range outgoing {
			label := branchLabel(edge.Label)
			connected[label] = true
			if label != "" && !expected[label] {
				report.Errors = append(report.Errors,
					fmt.Sprintf("label %q from %q does not match any expected answer", label, node.ID))
			}
		}
		var unconnected []string
		for text := range expected {
			if !connected[text] {
				unconnected = append(unconnected, text)
			}
		}
		if len(unconnected) > 0 {
			sort.Strings(unconnected)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("question %q has expected answers without connections: %s", node.ID, strings.Join(unconnected, ", ")))
		}
	}
}

// branchLabel strips an optional ":description" suffix and whitespace.
func branchLabel(label string) string {
	if i := strings.Index(label, ":"); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}
