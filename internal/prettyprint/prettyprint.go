// Package prettyprint renders a completed pipeline run as a colored,
// column-aligned terminal summary: headline counts followed by the
// surviving AAG nodes and edges, colored by the relation-strength label
// the §4.11 generator assigned them. It replaces the teacher's
// mermaidascii diagram renderer, which drew dependency graphs for the
// archive/purge plan rather than an attribute-affinity comparison; since
// an AAG is a dense attribute graph rather than a handful of tables, a
// Mermaid-style box diagram doesn't fit and a ranked, colored table does.
package prettyprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/goxplore/internal/aag"
	"github.com/dbsmedya/goxplore/internal/graphfilter"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/pipeline"
)

// relationStyle maps each §4.11 relation-strength label to the color its
// row is rendered in, strongest first.
var relationStyle = map[graphmodel.EdgeType]color.Color{
	aag.HighRelation:   color.FgRed,
	aag.MediumRelation: color.FgYellow,
	aag.LowRelation:    color.FgCyan,
	aag.Unassigned:     color.FgWhite,
}

// Summary renders result as a human-readable report: a headline block
// of counts, then one padded, colored line per surviving node and edge.
func Summary(result *pipeline.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", color.FgGreen.Render("=== Pipeline Run Complete ==="))
	fmt.Fprintf(&b, "Job:              %s\n", result.JobName)
	fmt.Fprintf(&b, "Duration:         %s\n", result.Duration)
	fmt.Fprintf(&b, "Source tables:    %d\n", result.SourceTables)
	fmt.Fprintf(&b, "Target tables:    %d\n", result.TargetTables)
	if result.Graph != nil {
		fmt.Fprintf(&b, "Graph nodes:      %d\n", len(result.Graph.Nodes()))
		fmt.Fprintf(&b, "Graph edges:      %d\n", len(result.Graph.Edges()))
	}
	fmt.Fprintf(&b, "Surviving nodes:  %d\n", len(result.Nodes))
	fmt.Fprintf(&b, "Surviving edges:  %d\n", len(result.Edges))
	fmt.Fprintf(&b, "Success:          %v\n", result.Success)

	if result.Graph != nil && len(result.Nodes) > 0 {
		b.WriteString("\n")
		b.WriteString(renderNodeTable(result))
	}
	if result.Graph != nil && len(result.Edges) > 0 {
		b.WriteString("\n")
		b.WriteString(renderEdgeTable(result))
	}

	return b.String()
}

func nodeLabel(g *graphmodel.Graph, id graphmodel.NodeID) string {
	n := g.Node(id)
	if n == nil {
		return fmt.Sprintf("#%d", id)
	}
	if n.Variable != "" {
		return fmt.Sprintf("%s.%s=%s", n.Table, n.Variable, n.Value.Raw())
	}
	return fmt.Sprintf("%s key #%d", n.Table, n.ID)
}

// padRight pads s with spaces up to width display columns, measuring
// width with go-runewidth so multi-byte attribute values (and the box
// borders around them) still line up in a monospace terminal.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func renderNodeTable(result *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(color.FgWhite.Render("Surviving nodes") + "\n")

	nodes := append([]graphfilter.NodeRecord(nil), result.Nodes...)
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].PrevalenceDifference > nodes[j].PrevalenceDifference
	})

	header := fmt.Sprintf("  %s  %s  %s",
		padRight("ATTRIBUTE", 40), padRight("DIFF", 8), padRight("DISTINCT", 8))
	b.WriteString(header + "\n")

	for _, n := range nodes {
		label := nodeLabel(result.Graph, n.ID)
		distinct := "no"
		if n.HasDistinction {
			distinct = "yes"
		}
		line := fmt.Sprintf("  %s  %s  %s",
			padRight(label, 40),
			padRight(fmt.Sprintf("%.3f", n.PrevalenceDifference), 8),
			padRight(distinct, 8),
		)
		b.WriteString(line + "\n")
	}
	return b.String()
}

func renderEdgeTable(result *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(color.FgWhite.Render("Surviving edges") + "\n")

	for _, e := range result.Edges {
		edgeType := result.EdgeTypes[pipeline.EdgeKey{From: e.From, To: e.To}]
		style, ok := relationStyle[edgeType]
		if !ok {
			style = color.FgWhite
		}
		from := nodeLabel(result.Graph, e.From)
		to := nodeLabel(result.Graph, e.To)
		line := fmt.Sprintf("  %s -> %s  [%s]", padRight(from, 36), padRight(to, 36), edgeType)
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}
