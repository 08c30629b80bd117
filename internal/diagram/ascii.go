package diagram

import (
	"fmt"
	"strings"

	"github.com/jeevan-health/triage/pkg/schema"
)

// RenderASCII renders a DiagramModel as text, one row of boxes per level
// followed by the branch list.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", model.Title))
	}

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := findNode(model.Nodes, nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)
		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	if len(model.Edges) > 1 {
		b.WriteString("\nBranches:\n")
		for _, e := range model.Edges[1:] {
			mark := ""
			if e.Taken {
				mark = " *"
			}
			b.WriteString(fmt.Sprintf("  %s --%s--> %s%s\n", e.From, e.Label, e.To, mark))
		}
	}

	return b.String()
}

// riskTag returns a short ASCII indicator for a result node.
func riskTag(node *Node) string {
	if node.Kind != NodeKindResult && node.Kind != NodeKindMissing {
		return ""
	}
	switch node.Risk {
	case schema.RiskCritical:
		return "[CRIT]"
	case schema.RiskHigh:
		return "[HIGH]"
	case schema.RiskMedium:
		return "[MED]"
	case schema.RiskLow:
		return "[LOW]"
	default:
		return "[?]"
	}
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

func makeBox(node *Node) asciiBox {
	var contentLines []string

	label := firstLine(node.Label)
	if node.Kind == NodeKindQuestion || node.Kind == NodeKindResult {
		label = node.ID + ". " + label
	}
	contentLines = append(contentLines, label)
	if tag := riskTag(node); tag != "" {
		contentLines = append(contentLines, tag)
	}
	if node.Visited {
		contentLines = append(contentLines, "(visited)")
	}

	maxLen := 0
	for _, line := range contentLines {
		maxLen = max(maxLen, len([]rune(line)))
	}
	width := maxLen + 4 // 2 border + 2 padding

	lines := make([]string, 0, len(contentLines)+2)
	lines = append(lines, "┌"+strings.Repeat("─", width-2)+"┐")
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-len([]rune(content)))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")

	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		maxHeight = max(maxHeight, len(box.lines))
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
