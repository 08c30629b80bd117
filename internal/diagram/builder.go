package diagram

import (
	"fmt"

	"github.com/jeevan-health/triage/internal/engine"
	"github.com/jeevan-health/triage/pkg/schema"
)

// Build constructs a DiagramModel from a protocol graph. trail is an
// optional sequence of visited node ids; the nodes and branches along it
// are marked so renderers can highlight a session's path.
//
// Authoring gaps are drawn the way traversal treats them: an unset branch
// leads to a shared "no further path" node, a dangling branch to a
// "missing" node named after its target.
func Build(g *schema.ProtocolGraph, trail []schema.NodeID) (*DiagramModel, error) {
	entry, ok := g.Entry()
	if !ok {
		return nil, schema.Invalidf("diagram: protocol %q has no nodes", g.ID)
	}

	visited := make(map[string]bool, len(trail))
	taken := make(map[[2]string]bool, len(trail))
	for i, id := range trail {
		visited[string(id)] = true
		if i > 0 {
			taken[[2]string{string(trail[i-1]), string(id)}] = true
		}
	}

	m := &DiagramModel{Title: titleOf(g)}
	index := make(map[string]*Node, len(g.Nodes)+2)
	add := func(n *Node) {
		if _, dup := index[n.ID]; dup {
			return
		}
		index[n.ID] = n
		m.Nodes = append(m.Nodes, n)
	}

	add(&Node{ID: startID, Label: "Start", Kind: NodeKindStart})
	m.Edges = append(m.Edges, Edge{From: startID, To: string(entry.ID), Taken: len(trail) > 0 && trail[0] == entry.ID})

	for i := range g.Nodes {
		n := &g.Nodes[i]
		node := toNode(n)
		node.Visited = visited[node.ID]
		add(node)
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind != schema.NodeKindQuestion || n.Question == nil {
			continue
		}
		for _, answer := range []schema.Answer{schema.AnswerYes, schema.AnswerNo} {
			from := string(n.ID)
			target := n.Question.Edge(answer)
			edge := Edge{From: from, Label: string(answer)}
			switch _, found := g.Find(target); {
			case target == "":
				add(&Node{ID: noPathID, Label: "No further path", Kind: NodeKindMissing, Risk: schema.RiskUnknown})
				edge.To = noPathID
			case !found:
				id := "missing_" + string(target)
				add(&Node{ID: id, Label: fmt.Sprintf("Missing step %s", target), Kind: NodeKindMissing, Risk: schema.RiskUnknown})
				edge.To = id
			default:
				edge.To = string(target)
				edge.Taken = taken[[2]string{from, edge.To}]
			}
			m.Edges = append(m.Edges, edge)
		}
	}

	m.Levels = buildLevels(m)
	return m, nil
}

func toNode(n *schema.Node) *Node {
	node := &Node{ID: string(n.ID), Kind: NodeKindQuestion}
	switch {
	case n.Kind == schema.NodeKindResult && n.Result != nil:
		node.Kind = NodeKindResult
		node.Risk = n.Result.Risk
		if node.Risk == "" {
			node.Risk = schema.RiskUnknown
		}
		action := n.Result.Action
		if action == "" {
			action = engine.DefaultResultAction
		}
		node.Label = fmt.Sprintf("%s: %s", node.Risk, action)
	case n.Question != nil && n.Question.Text != "":
		node.Label = n.Question.Text
	default:
		node.Label = engine.DefaultQuestionText
	}
	return node
}

// buildLevels assigns every node its shortest distance from the start
// node. Nodes the start cannot reach share one trailing level.
func buildLevels(m *DiagramModel) [][]string {
	adj := make(map[string][]string, len(m.Nodes))
	for _, e := range m.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	depth := map[string]int{startID: 0}
	queue := []string{startID}
	maxDepth := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[cur] + 1
			maxDepth = max(maxDepth, depth[next])
			queue = append(queue, next)
		}
	}

	levels := make([][]string, maxDepth+1)
	var orphans []string
	for _, n := range m.Nodes {
		d, ok := depth[n.ID]
		if !ok {
			orphans = append(orphans, n.ID)
			continue
		}
		levels[d] = append(levels[d], n.ID)
	}
	if len(orphans) > 0 {
		levels = append(levels, orphans)
	}
	return levels
}

func titleOf(g *schema.ProtocolGraph) string {
	if g.Name != "" {
		return g.Name
	}
	return "Protocol"
}
