package flowyaml

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/espalier/pkg/domain"
)

// Decode errors. ErrEmptyDocument and ErrNoFlowSection are sentinel;
// everything else wraps the offending node id or label.
var (
	ErrEmptyDocument = errors.New("flowyaml: empty document")
	ErrNoFlowSection = errors.New("flowyaml: document has no 'flow' section")
)

// Default grid layout for imported nodes, which carry no positions.
const (
	layoutColumns  = 4
	layoutSpacingX = 320
	layoutSpacingY = 220
	layoutOriginX  = 160
	layoutOriginY  = 120
)

// rawNode is the typed payload of one flow entry. The `next` block is
// handled separately because its key order matters.
type rawNode struct {
	ID              string            `mapstructure:"id"`
	Type            string            `mapstructure:"type"`
	Title           string            `mapstructure:"title"`
	Question        string            `mapstructure:"question"`
	ExpectedAnswers []any             `mapstructure:"expected_answers"`
	Message         string            `mapstructure:"message"`
	Severity        string            `mapstructure:"severity"`
	Metadata        map[string]string `mapstructure:"metadata"`
	Appearance      map[string]string `mapstructure:"appearance"`
}

// normalizeMultiline converts Windows line endings to Unix ones so
// multiline question and message bodies round-trip consistently.
func normalizeMultiline(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

type pendingEdge struct {
	source string
	label  string
	target string
}

// Decode parses the YAML interchange form into a flow. Entry keys become
// node ids (slugged and deduplicated), `next` maps become edges bound by
// sanitized port keys, and nodes are laid out on the default grid in
// document order. Targets may reference entries by key, case-insensitively.
func Decode(data []byte) (*domain.Flow, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyDocument
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flowyaml: invalid yaml: %w", err)
	}
	root := documentRoot(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, ErrNoFlowSection
	}

	flowSection := mappingValue(root, "flow")
	if flowSection == nil || flowSection.Kind != yaml.MappingNode {
		return nil, ErrNoFlowSection
	}

	flow := &domain.Flow{}
	if meta := mappingValue(root, "metadata"); meta != nil && meta.Kind == yaml.MappingNode {
		var m struct {
			ID          string `yaml:"id"`
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		}
		if err := meta.Decode(&m); err != nil {
			return nil, fmt.Errorf("flowyaml: metadata section: %w", err)
		}
		flow.ID = strings.TrimSpace(m.ID)
		flow.Name = m.Name
		flow.Description = m.Description
	}

	used := make(map[string]bool)
	byTitle := make(map[string]string)
	var pending []pendingEdge

	for i := 0; i < len(flowSection.Content)-1; i += 2 {
		title := flowSection.Content[i].Value
		value := flowSection.Content[i+1]
		if value.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("flowyaml: entry %q must be a mapping", title)
		}

		var payload map[string]any
		if err := value.Decode(&payload); err != nil {
			return nil, fmt.Errorf("flowyaml: entry %q: %w", title, err)
		}
		var raw rawNode
		if err := decodePayload(payload, &raw); err != nil {
			return nil, fmt.Errorf("flowyaml: entry %q: %w", title, err)
		}

		candidate := raw.ID
		if candidate == "" {
			candidate = title
		}
		nodeID := uniqueIdentifier(candidate, used)
		byTitle[title] = nodeID
		byTitle[strings.ToLower(title)] = nodeID

		node, err := buildNode(nodeID, &raw, len(flow.Nodes))
		if err != nil {
			return nil, fmt.Errorf("flowyaml: entry %q: %w", title, err)
		}
		flow.Nodes = append(flow.Nodes, node)

		edges, err := collectNext(nodeID, value)
		if err != nil {
			return nil, err
		}
		pending = append(pending, edges...)
	}

	for _, p := range pending {
		targetID, ok := byTitle[p.target]
		if !ok {
			targetID, ok = byTitle[strings.ToLower(p.target)]
		}
		if !ok {
			return nil, fmt.Errorf("flowyaml: transition %q of %s points at %q, which does not exist", p.label, p.source, p.target)
		}
		flow.Edges = append(flow.Edges, &domain.Edge{
			ID:         newEdgeID(),
			Source:     p.source,
			Target:     targetID,
			Label:      p.label,
			SourcePort: sanitizePort(p.label),
			TargetPort: domain.InputPortID,
		})
	}

	return flow, nil
}

func decodePayload(payload map[string]any, out *rawNode) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(payload)
}

func buildNode(id string, raw *rawNode, index int) (*domain.Node, error) {
	nodeType := strings.TrimSpace(raw.Type)
	if nodeType == "" {
		nodeType = domain.NodeTypeMessage
	}
	node := &domain.Node{
		ID:    id,
		Type:  nodeType,
		Title: raw.Title,
		Position: domain.Position{
			X: layoutOriginX + float64(index%layoutColumns)*layoutSpacingX,
			Y: layoutOriginY + float64(index/layoutColumns)*layoutSpacingY,
		},
		Metadata: raw.Metadata,
	}

	switch nodeType {
	case domain.NodeTypeQuestion:
		node.Question = normalizeMultiline(raw.Question)
		node.ExpectedAnswers = parseAnswers(raw.ExpectedAnswers)
	case domain.NodeTypeMessage:
		node.Message = normalizeMultiline(raw.Message)
		node.Severity = strings.TrimSpace(raw.Severity)
	default:
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}

	if len(raw.Appearance) > 0 {
		node.Appearance = &domain.Appearance{
			Fill:   raw.Appearance["fill"],
			Stroke: raw.Appearance["stroke"],
			Text:   raw.Appearance["text"],
		}
	}
	return node, nil
}

// parseAnswers accepts plain scalars and single-pair maps, the latter
// carrying the answer description as the value.
func parseAnswers(entries []any) []domain.Answer {
	var answers []domain.Answer
	for _, entry := range entries {
		switch v := entry.(type) {
		case map[string]any:
			for key, desc := range v {
				value := strings.TrimSpace(key)
				if value == "" {
					continue
				}
				answers = append(answers, domain.Answer{
					Value:       value,
					Description: strings.TrimSpace(fmt.Sprint(desc)),
				})
			}
		default:
			value := strings.TrimSpace(fmt.Sprint(v))
			if value != "" && value != "<nil>" {
				answers = append(answers, domain.Answer{Value: value})
			}
		}
	}
	return answers
}

// collectNext reads the entry's `next` block straight off the yaml tree so
// branch order survives. A scalar next is a single unlabeled continuation.
func collectNext(sourceID string, entry *yaml.Node) ([]pendingEdge, error) {
	next := mappingValue(entry, "next")
	if next == nil {
		return nil, nil
	}
	switch next.Kind {
	case yaml.ScalarNode:
		target := strings.TrimSpace(next.Value)
		if target == "" {
			return nil, fmt.Errorf("flowyaml: node %s has an empty 'next' target", sourceID)
		}
		return []pendingEdge{{source: sourceID, target: target}}, nil
	case yaml.MappingNode:
		var edges []pendingEdge
		for i := 0; i < len(next.Content)-1; i += 2 {
			label := strings.TrimSpace(next.Content[i].Value)
			target := strings.TrimSpace(next.Content[i+1].Value)
			if target == "" {
				return nil, fmt.Errorf("flowyaml: node %s has an empty target for %q", sourceID, label)
			}
			edges = append(edges, pendingEdge{source: sourceID, label: label, target: target})
		}
		return edges, nil
	default:
		return nil, fmt.Errorf("flowyaml: node %s has an invalid 'next' block", sourceID)
	}
}

// uniqueIdentifier slugs a title or declared id into a node id, suffixing
// numerically on collision.
func uniqueIdentifier(value string, used map[string]bool) string {
	base := slug(value)
	if base == "" {
		base = "node"
	}
	candidate := base
	for n := 2; used[candidate]; n++ {
		candidate = base + "_" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

func slug(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// sanitizePort derives the output-port key of an imported transition from
// its label. The editor re-derives ports after load; this keeps the stored
// form consistent in the meantime.
func sanitizePort(label string) string {
	if key := slug(label); key != "" {
		return key
	}
	return domain.DefaultOutputPortID
}

func newEdgeID() string {
	u := uuid.New()
	token := hex.EncodeToString(u[:])
	return "edge_" + token[:8] + "_" + token[8:16]
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(m.Content)-1; i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
