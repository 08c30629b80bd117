package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/jeevan-health/triage/pkg/schema"
)

// RenderImage renders a DiagramModel as a PNG image using graphviz.
func RenderImage(ctx context.Context, model *DiagramModel) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr != nil {
			continue
		}
		if edge.Label != "" {
			e.SetLabel(edge.Label)
		}
		if edge.Taken {
			e.SetColor("#1a5276")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz attributes based on node kind and risk.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	switch node.Kind {
	case NodeKindQuestion:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindResult:
		gvNode.SetShape(cgraph.BoxShape)
		applyRiskColor(gvNode, node.Risk)
	case NodeKindMissing:
		gvNode.SetShape(cgraph.HexagonShape)
		gvNode.SetStyle(cgraph.DashedNodeStyle)
	case NodeKindStart:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	}
	if node.Visited && node.Kind != NodeKindResult {
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#d6e6f2")
	}
}

func applyRiskColor(gvNode *cgraph.Node, risk schema.RiskTier) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch risk {
	case schema.RiskCritical:
		gvNode.SetFillColor("#5c0e0e")
		gvNode.SetFontColor("white")
	case schema.RiskHigh:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case schema.RiskMedium:
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	case schema.RiskLow:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	default:
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	}
}
