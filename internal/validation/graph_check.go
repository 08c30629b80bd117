package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeevan-health/triage/pkg/schema"
)

// validateGraph performs graph analysis over yes/no edges: cycle detection
// (Kahn's algorithm) and reachability from the entry node (BFS). Edges to
// missing nodes are ignored here; semantic validation already reported them.
func validateGraph(def *schema.ProtocolGraph) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	index := make(map[schema.NodeID]int, len(def.Nodes))
	inDegree := make(map[schema.NodeID]int, len(def.Nodes))
	for i, n := range def.Nodes {
		index[n.ID] = i
		inDegree[n.ID] = 0
	}
	out := make(map[schema.NodeID][]schema.NodeID, len(def.Nodes))
	for _, n := range def.Nodes {
		for _, target := range successors(n) {
			if _, ok := index[target]; !ok {
				continue
			}
			out[n.ID] = append(out[n.ID], target)
			inDegree[target]++
		}
	}

	queue := make([]schema.NodeID, 0, len(def.Nodes))
	for _, n := range def.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range out[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(inDegree) {
		var onCycle []string
		for id, deg := range inDegree {
			if deg > 0 {
				onCycle = append(onCycle, string(id))
			}
		}
		sort.Strings(onCycle)
		result.AddError("nodes", schema.ErrCodeCycleDetected,
			fmt.Sprintf("protocol contains a cycle through nodes %s", strings.Join(onCycle, ", ")))
		return result
	}

	entry, ok := def.Entry()
	if !ok {
		return result
	}
	reachable := map[schema.NodeID]bool{entry.ID: true}
	bfs := []schema.NodeID{entry.ID}
	resultReached := false
	for len(bfs) > 0 {
		id := bfs[0]
		bfs = bfs[1:]
		if def.Nodes[index[id]].Kind == schema.NodeKindResult {
			resultReached = true
		}
		for _, next := range out[id] {
			if !reachable[next] {
				reachable[next] = true
				bfs = append(bfs, next)
			}
		}
	}

	for i, n := range def.Nodes {
		if !reachable[n.ID] {
			result.AddWarning(fmt.Sprintf("nodes[%d]", i), WarnUnreachable,
				fmt.Sprintf("node %q is unreachable from the entry node", n.ID))
		}
	}
	if !resultReached {
		result.AddWarning("nodes", WarnNoReachableResult,
			"no result node is reachable from the entry node")
	}

	return result
}

// successors returns the distinct edge targets of a question node.
func successors(n schema.Node) []schema.NodeID {
	if n.Kind != schema.NodeKindQuestion || n.Question == nil {
		return nil
	}
	var out []schema.NodeID
	if y := n.Question.Yes; y != "" {
		out = append(out, y)
	}
	if no := n.Question.No; no != "" && no != n.Question.Yes {
		out = append(out, no)
	}
	return out
}
