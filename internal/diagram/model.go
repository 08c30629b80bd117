package diagram

import "github.com/jeevan-health/triage/pkg/schema"

// NodeKind classifies a diagram node.
type NodeKind string

const (
	NodeKindStart    NodeKind = "start"
	NodeKindQuestion NodeKind = "question"
	NodeKindResult   NodeKind = "result"
	NodeKindMissing  NodeKind = "missing"
)

// Virtual node ids.
const (
	startID  = "__start__"
	noPathID = "__no_path__"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node is one protocol node, or a virtual node standing in for the entry
// point or an authoring gap.
type Node struct {
	ID      string
	Label   string
	Kind    NodeKind
	Risk    schema.RiskTier
	Visited bool
}

// Edge is a yes/no branch. Taken marks branches followed by the trail
// passed to Build.
type Edge struct {
	From  string
	To    string
	Label string
	Taken bool
}
