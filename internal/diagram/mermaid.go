package diagram

import (
	"fmt"
	"strings"

	"github.com/jeevan-health/triage/pkg/schema"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	var taken []int
	for i, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", edge.Label)
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n", mermaidSafeID(edge.From), label, mermaidSafeID(edge.To)))
		if edge.Taken {
			taken = append(taken, i)
		}
	}

	b.WriteString("\n")
	b.WriteString("    classDef critical fill:#5c0e0e,stroke:#3a0808,color:#fff\n")
	b.WriteString("    classDef high fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef medium fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef low fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef unknown fill:#6b6b6b,stroke:#4a4a4a,color:#fff,stroke-dasharray:5 5\n")
	b.WriteString("    classDef visited stroke:#1a5276,stroke-width:3px\n")

	for _, node := range model.Nodes {
		if cls := mermaidRiskClass(node); cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
		}
		if node.Visited {
			b.WriteString(fmt.Sprintf("    class %s visited\n", mermaidSafeID(node.ID)))
		}
	}
	for _, i := range taken {
		b.WriteString(fmt.Sprintf("    linkStyle %d stroke:#1a5276,stroke-width:3px\n", i))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case NodeKindQuestion:
		return fmt.Sprintf(`%s{"%s"}`, id, label)
	case NodeKindStart:
		return fmt.Sprintf(`%s(("%s"))`, id, label)
	case NodeKindMissing:
		return fmt.Sprintf(`%s{{"%s"}}`, id, label)
	default: // result
		return fmt.Sprintf(`%s["%s"]`, id, label)
	}
}

// mermaidSafeID prefixes node ids, which are often bare numbers, and
// replaces characters Mermaid does not accept in identifiers.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return "n_" + r.Replace(id)
}

// mermaidEscapeLabel escapes characters that would end a quoted label.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func mermaidRiskClass(node *Node) string {
	if node.Kind != NodeKindResult && node.Kind != NodeKindMissing {
		return ""
	}
	switch node.Risk {
	case schema.RiskCritical:
		return "critical"
	case schema.RiskHigh:
		return "high"
	case schema.RiskMedium:
		return "medium"
	case schema.RiskLow:
		return "low"
	default:
		return "unknown"
	}
}
