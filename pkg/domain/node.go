package domain

// NodeType constants define the authoring behavior of a node.
const (
	// NodeTypeQuestion presents a prompt and branches on a declared answer set.
	NodeTypeQuestion = "question"
	// NodeTypeMessage presents terminal (or near-terminal) content with a severity.
	NodeTypeMessage = "message"
)

// Position is a point in logical workspace units, independent of pan/zoom.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Answer is one entry of a question node's declared answer set.
// Value is the canonical answer text shown to the author; Description is
// optional explanatory text.
type Answer struct {
	Value       string `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Appearance holds optional per-node color overrides.
type Appearance struct {
	Fill   string `json:"fill,omitempty" yaml:"fill,omitempty" mapstructure:"fill"`
	Stroke string `json:"stroke,omitempty" yaml:"stroke,omitempty" mapstructure:"stroke"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`
}

// Empty reports whether no override is set.
func (a Appearance) Empty() bool {
	return a.Fill == "" && a.Stroke == "" && a.Text == ""
}

// Node is a vertex of the decision flow. The payload is tagged by Type:
// question nodes carry Question + ExpectedAnswers, message nodes carry
// Message + Severity. The id is a stable human-meaningful slug and is the
// structural identity edges reference; it is never renamed once issued.
type Node struct {
	ID       string   `json:"id" yaml:"id" validate:"required"`
	Type     string   `json:"type" yaml:"type" validate:"required,oneof=question message"`
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Position Position `json:"position" yaml:"position"`

	// Question payload (Type == NodeTypeQuestion).
	Question        string   `json:"question,omitempty" yaml:"question,omitempty"`
	ExpectedAnswers []Answer `json:"expected_answers,omitempty" yaml:"expected_answers,omitempty"`

	// Message payload (Type == NodeTypeMessage).
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Severity string `json:"severity,omitempty" yaml:"severity,omitempty"`

	// Metadata is opaque author-defined key/value data.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Appearance holds optional color overrides; omitted when empty.
	Appearance *Appearance `json:"appearance,omitempty" yaml:"appearance,omitempty"`
}

// IsQuestion reports whether the node carries a question payload.
func (n *Node) IsQuestion() bool { return n.Type == NodeTypeQuestion }

// IsMessage reports whether the node carries a message payload.
func (n *Node) IsMessage() bool { return n.Type == NodeTypeMessage }

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	next := *n
	if n.ExpectedAnswers != nil {
		next.ExpectedAnswers = make([]Answer, len(n.ExpectedAnswers))
		copy(next.ExpectedAnswers, n.ExpectedAnswers)
	}
	if n.Metadata != nil {
		next.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			next.Metadata[k] = v
		}
	}
	if n.Appearance != nil {
		ap := *n.Appearance
		next.Appearance = &ap
	}
	return &next
}
