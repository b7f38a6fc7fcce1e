package flowyaml

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// Encode renders a flow as YAML. Nodes are grouped by type (questions
// first, then messages), each node's outgoing edges become an ordered
// `next` map keyed by label, and the flow identity lands in a trailing
// `metadata` section.
func Encode(flow *domain.Flow) ([]byte, error) {
	doc := newMapping()
	appendKV(doc, "flow", encodeNodes(flow))

	if flow.ID != "" || flow.Name != "" || flow.Description != "" {
		meta := newMapping()
		if flow.ID != "" {
			appendKV(meta, "id", scalar(flow.ID))
		}
		if flow.Name != "" {
			appendKV(meta, "name", scalar(flow.Name))
		}
		if flow.Description != "" {
			appendKV(meta, "description", scalar(flow.Description))
		}
		appendKV(doc, "metadata", meta)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("flowyaml: encode: %w", err)
	}
	return out, nil
}

func encodeNodes(flow *domain.Flow) *yaml.Node {
	outgoing := make(map[string][]*domain.Edge)
	for _, e := range flow.Edges {
		outgoing[e.Source] = append(outgoing[e.Source], e)
	}

	tree := newMapping()
	for _, nodeType := range []string{domain.NodeTypeQuestion, domain.NodeTypeMessage} {
		for _, node := range flow.Nodes {
			if node.Type != nodeType {
				continue
			}
			appendKV(tree, node.ID, encodeNode(node, outgoing[node.ID]))
		}
	}
	// Unknown types survive the round trip at the end of the document.
	for _, node := range flow.Nodes {
		if node.Type != domain.NodeTypeQuestion && node.Type != domain.NodeTypeMessage {
			appendKV(tree, node.ID, encodeNode(node, outgoing[node.ID]))
		}
	}
	return tree
}

func encodeNode(node *domain.Node, outgoing []*domain.Edge) *yaml.Node {
	m := newMapping()
	appendKV(m, "type", scalar(node.Type))

	switch node.Type {
	case domain.NodeTypeQuestion:
		appendKV(m, "question", scalar(node.Question))
		if len(node.ExpectedAnswers) > 0 {
			appendKV(m, "expected_answers", encodeAnswers(node.ExpectedAnswers))
		}
		if next := encodeNext(outgoing); next != nil {
			appendKV(m, "next", next)
		}
	case domain.NodeTypeMessage:
		appendKV(m, "message", scalar(node.Message))
		if node.Severity != "" {
			appendKV(m, "severity", scalar(node.Severity))
		}
		// A single unlabeled continuation collapses to a plain target;
		// anything richer keeps the labeled map.
		if len(outgoing) == 1 && outgoing[0].Label == "" {
			appendKV(m, "next", scalar(outgoing[0].Target))
		} else if next := encodeNext(outgoing); next != nil {
			appendKV(m, "next", next)
		}
	}

	if node.Title != "" {
		appendKV(m, "title", scalar(node.Title))
	}
	if len(node.Metadata) > 0 {
		meta := newMapping()
		for _, key := range sortedKeys(node.Metadata) {
			appendKV(meta, key, scalar(node.Metadata[key]))
		}
		appendKV(m, "metadata", meta)
	}
	if node.Appearance != nil && !node.Appearance.Empty() {
		ap := newMapping()
		if node.Appearance.Fill != "" {
			appendKV(ap, "fill", scalar(node.Appearance.Fill))
		}
		if node.Appearance.Stroke != "" {
			appendKV(ap, "stroke", scalar(node.Appearance.Stroke))
		}
		if node.Appearance.Text != "" {
			appendKV(ap, "text", scalar(node.Appearance.Text))
		}
		appendKV(m, "appearance", ap)
	}
	return m
}

// encodeNext folds edges into an ordered label → target map. Unlabeled
// edges fall back to a next_{target} key; duplicate labels get numeric
// suffixes so no branch is silently dropped.
func encodeNext(outgoing []*domain.Edge) *yaml.Node {
	if len(outgoing) == 0 {
		return nil
	}
	next := newMapping()
	seen := make(map[string]bool, len(outgoing))
	for _, edge := range outgoing {
		label := edge.Label
		if label == "" {
			label = "next_" + edge.Target
		}
		if seen[label] {
			base := label
			for n := 2; seen[label]; n++ {
				label = base + "_" + strconv.Itoa(n)
			}
		}
		seen[label] = true
		appendKV(next, label, scalar(edge.Target))
	}
	return next
}

// encodeAnswers writes plain answers as scalars and described answers as
// single-pair maps, the two shapes the decoder accepts.
func encodeAnswers(answers []domain.Answer) *yaml.Node {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, a := range answers {
		if a.Description == "" {
			list.Content = append(list.Content, scalar(a.Value))
			continue
		}
		pair := newMapping()
		appendKV(pair, a.Value, scalar(a.Description))
		list.Content = append(list.Content, pair)
	}
	return list
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func appendKV(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Exporter adapts Encode to the ports.FlowExporter interface.
type Exporter struct{}

// Format identifies the artifact as YAML.
func (Exporter) Format() ports.ExportFormat { return ports.ExportYAML }

// Export writes the encoded flow to w.
func (Exporter) Export(ctx context.Context, flow *domain.Flow, w io.Writer) error {
	out, err := Encode(flow)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
