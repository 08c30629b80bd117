package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NodeID identifies a node within one protocol graph. Authoring tools emit
// numeric ids, so both JSON numbers and strings are accepted; comparison is
// always on the string form. Integral numbers decode to their plain decimal
// form, so 2, 2.0 and 2e0 name the same node.
type NodeID string

// UnmarshalJSON accepts a JSON string or number.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("node id must be a string or number: %w", err)
	}
	*id = NodeID(canonicalNumber(n))
	return nil
}

func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return n.String()
}

// NodeKind is the discriminant of the Node union.
type NodeKind string

const (
	NodeKindQuestion NodeKind = "question"
	NodeKindResult   NodeKind = "result"
)

// QuestionNode is a yes/no question with optional outgoing edges.
type QuestionNode struct {
	Text   string
	Weight float64
	Yes    NodeID
	No     NodeID
}

// Edge returns the target for answer, or "" when the branch is unset.
func (q *QuestionNode) Edge(a Answer) NodeID {
	if a == AnswerYes {
		return q.Yes
	}
	return q.No
}

// ResultNode is a terminal node.
type ResultNode struct {
	Risk   RiskTier
	Action string
}

// Node is a tagged union: exactly one of Question or Result is set,
// selected by Kind.
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Question *QuestionNode
	Result   *ResultNode
}

// NewQuestion builds a question node.
func NewQuestion(id NodeID, text string, yes, no NodeID) Node {
	return Node{ID: id, Kind: NodeKindQuestion, Question: &QuestionNode{Text: text, Weight: 1, Yes: yes, No: no}}
}

// NewResult builds a result node.
func NewResult(id NodeID, risk RiskTier, action string) Node {
	return Node{ID: id, Kind: NodeKindResult, Result: &ResultNode{Risk: risk, Action: action}}
}

// nodeWire is the flat JSON shape produced by the protocol builder.
type nodeWire struct {
	ID     NodeID   `json:"id"`
	Type   NodeKind `json:"type"`
	Text   string   `json:"text,omitempty"`
	Weight float64  `json:"weight,omitempty"`
	Yes    NodeID   `json:"yes,omitempty"`
	No     NodeID   `json:"no,omitempty"`
	Risk   RiskTier `json:"risk,omitempty"`
	Action string   `json:"action,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	w := nodeWire{ID: n.ID, Type: n.Kind}
	switch n.Kind {
	case NodeKindQuestion:
		if q := n.Question; q != nil {
			w.Text, w.Weight, w.Yes, w.No = q.Text, q.Weight, q.Yes, q.No
		}
	case NodeKindResult:
		if r := n.Result; r != nil {
			w.Risk, w.Action = r.Risk, r.Action
		}
	}
	return json.Marshal(w)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Node{ID: w.ID, Kind: w.Type}
	switch w.Type {
	case NodeKindQuestion:
		n.Question = &QuestionNode{Text: w.Text, Weight: w.Weight, Yes: w.Yes, No: w.No}
	case NodeKindResult:
		n.Result = &ResultNode{Risk: w.Risk, Action: w.Action}
	}
	// Any other type is kept as-is and rejected by validation.
	return nil
}

// ProtocolGraph is an author-defined yes/no decision graph. Nodes[0] is
// the entry point.
type ProtocolGraph struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
}

// Entry returns the entry node.
func (g *ProtocolGraph) Entry() (*Node, bool) {
	if len(g.Nodes) == 0 {
		return nil, false
	}
	return &g.Nodes[0], true
}

// Find returns the node with the given id.
func (g *ProtocolGraph) Find(id NodeID) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}
