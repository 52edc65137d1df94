package prettyprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goxplore/internal/aag"
	"github.com/dbsmedya/goxplore/internal/graphfilter"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/pipeline"
)

func TestSummary(t *testing.T) {
	g := graphmodel.New()
	arm := g.AddAttributeNode("patient", "ARM", metadata.NewStringValue("treatment"))
	age := g.AddAttributeNode("patient", "AGE", metadata.NewIntegerValue(41))
	g.AddEdge(arm, age, aag.HighRelation)

	result := &pipeline.Result{
		JobName:      "arm-comparison",
		Duration:     250 * time.Millisecond,
		SourceTables: 1,
		TargetTables: 1,
		Graph:        g,
		Nodes: []graphfilter.NodeRecord{
			{ID: arm, PrevalenceDifference: 0.42, HasDistinction: true},
			{ID: age, PrevalenceDifference: 0.10},
		},
		Edges: []graphfilter.EdgeRecord{
			{From: arm, To: age},
		},
		EdgeTypes: map[pipeline.EdgeKey]graphmodel.EdgeType{
			{From: arm, To: age}: aag.HighRelation,
		},
		Success: true,
	}

	out := Summary(result)
	require.Contains(t, out, "arm-comparison")
	require.Contains(t, out, "Surviving nodes")
	require.Contains(t, out, "Surviving edges")
	require.Contains(t, out, "patient.ARM=treatment")
	require.Contains(t, out, "HIGH_RELATION")
}
