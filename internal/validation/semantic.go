package validation

import (
	"fmt"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Warning codes for authoring gaps that traversal degrades around.
const (
	WarnDanglingEdge      = "DANGLING_EDGE"
	WarnMissingBranch     = "MISSING_BRANCH"
	WarnEmptyText         = "EMPTY_TEXT"
	WarnMissingRisk       = "MISSING_RISK"
	WarnUnreachable       = "UNREACHABLE_NODE"
	WarnNoReachableResult = "NO_REACHABLE_RESULT"
)

// validateSemantic checks node ids and edge targets. Duplicate ids are
// errors; gaps that traversal degrades around are warnings.
func validateSemantic(def *schema.ProtocolGraph) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	ids := make(map[schema.NodeID]bool, len(def.Nodes))
	for i, n := range def.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if n.ID == "" {
			result.AddError(path+".id", schema.ErrCodeValidation, "node id is required")
			continue
		}
		if ids[n.ID] {
			result.AddError(path+".id", schema.ErrCodeValidation,
				fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		ids[n.ID] = true
	}

	for i, n := range def.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		switch n.Kind {
		case schema.NodeKindQuestion:
			validateQuestion(n, path, ids, result)
		case schema.NodeKindResult:
			if n.Result == nil || n.Result.Risk == "" {
				result.AddWarning(path+".risk", WarnMissingRisk,
					fmt.Sprintf("result node %q has no risk tier; it will report Unknown", n.ID))
			}
		default:
			result.AddError(path+".type", schema.ErrCodeValidation,
				fmt.Sprintf("node %q has unknown type %q", n.ID, n.Kind))
		}
	}

	return result
}

func validateQuestion(n schema.Node, path string, ids map[schema.NodeID]bool, result *schema.ValidationResult) {
	q := n.Question
	if q == nil {
		result.AddError(path, schema.ErrCodeValidation, fmt.Sprintf("question node %q has no body", n.ID))
		return
	}
	if q.Text == "" {
		result.AddWarning(path+".text", WarnEmptyText,
			fmt.Sprintf("question node %q has no text", n.ID))
	}
	for _, a := range []schema.Answer{schema.AnswerYes, schema.AnswerNo} {
		target := q.Edge(a)
		edgePath := path + "." + string(a)
		switch {
		case target == "":
			result.AddWarning(edgePath, WarnMissingBranch,
				fmt.Sprintf("question node %q has no %q branch", n.ID, a))
		case !ids[target]:
			result.AddWarning(edgePath, WarnDanglingEdge,
				fmt.Sprintf("question node %q %q branch references missing node %q", n.ID, a, target))
		}
	}
}
