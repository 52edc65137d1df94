package aag

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/groupselect"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedResolver struct{ members []graphmodel.NodeID }

func (r fixedResolver) Members(groupselect.GroupSelector) ([]graphmodel.NodeID, error) {
	return r.members, nil
}

// buildS6Graph builds a 10-member group where 5 members have flagA=yes,
// 4 have flagB=yes, and exactly member 1 has both — the scenario S6
// fixture: count_A=5, count_B=4, missing=0, co_occurrence=1.
func buildS6Graph(t *testing.T) (*graphmodel.Graph, []graphmodel.NodeID, graphmodel.NodeID, graphmodel.NodeID) {
	t.Helper()
	g := graphmodel.New()

	aYesMembers := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	bYesMembers := map[int]bool{1: true, 6: true, 7: true, 8: true}

	var members []graphmodel.NodeID
	var aYesID, bYesID graphmodel.NodeID
	for i := 1; i <= 10; i++ {
		rawPK := fmt.Sprintf("%d", i)
		keyID := g.AddKeyNode("member", metadata.NewIntegerValue(int64(i)), rawPK)
		members = append(members, keyID)

		aValue := "no"
		if aYesMembers[i] {
			aValue = "yes"
		}
		aID := g.AddAttributeNode("member", "flagA", metadata.NewStringValue(aValue))
		g.AddEdge(keyID, aID, graphmodel.HasAttrVal)
		if aValue == "yes" {
			aYesID = aID
		}

		bValue := "no"
		if bYesMembers[i] {
			bValue = "yes"
		}
		bID := g.AddAttributeNode("member", "flagB", metadata.NewStringValue(bValue))
		g.AddEdge(keyID, bID, graphmodel.HasAttrVal)
		if bValue == "yes" {
			bYesID = bID
		}
	}
	return g, members, aYesID, bYesID
}

func TestGenerate_S6_PrevalenceAndConditionalStats(t *testing.T) {
	g, members, aYesID, bYesID := buildS6Graph(t)
	groups := map[string]groupselect.GroupSelector{
		"g": {GroupName: "g", GroupTable: "member"},
	}
	resolver := fixedResolver{members: members}

	result, err := Generate(context.Background(), g, groups, resolver, nil, DefaultThresholds(), nil)
	require.NoError(t, err)

	var aMetrics, bMetrics *NodeMetrics
	for i := range result.Nodes {
		switch result.Nodes[i].NodeID {
		case aYesID:
			aMetrics = &result.Nodes[i]
		case bYesID:
			bMetrics = &result.Nodes[i]
		}
	}
	require.NotNil(t, aMetrics)
	require.NotNil(t, bMetrics)
	assert.InDelta(t, 0.5, aMetrics.PerGroupPrevalence["g"], 1e-9)
	assert.InDelta(t, 0.4, bMetrics.PerGroupPrevalence["g"], 1e-9)
	assert.InDelta(t, 0.0, aMetrics.PerGroupMissingRatio["g"], 1e-9)

	var edgeAB *EdgeMetrics
	for i := range result.Edges {
		if result.Edges[i].From == aYesID && result.Edges[i].To == bYesID {
			edgeAB = &result.Edges[i]
		}
	}
	require.NotNil(t, edgeAB)
	assert.Equal(t, int64(1), edgeAB.PerGroupCoOccurrence["g"])
	assert.InDelta(t, 0.2, edgeAB.PerGroupCondPrevalence["g"], 1e-9)
	assert.InDelta(t, -0.2, edgeAB.PerGroupCondIncrease["g"], 1e-9)
	assert.InDelta(t, 0.5, edgeAB.PerGroupIncreaseRatio["g"], 1e-9)
}

func TestApplyCrossGroupStats_PosNegRatioPinnedToInfinity(t *testing.T) {
	nm := &NodeMetrics{PerGroupPrevalence: map[string]float64{"pos": 0.3, "neg": 0}}
	applyCrossGroupStats(nm, []string{"neg", "pos"}, &PosNegPair{Positive: "pos", Negative: "neg"})
	assert.InDelta(t, 0.3, nm.PrevalenceDifference, 1e-9)
	assert.True(t, math.IsInf(nm.PrevalenceRatio, 1))
}

func TestApplyCrossGroupStats_BothZeroRatioIsZero(t *testing.T) {
	nm := &NodeMetrics{PerGroupPrevalence: map[string]float64{"pos": 0, "neg": 0}}
	applyCrossGroupStats(nm, []string{"neg", "pos"}, &PosNegPair{Positive: "pos", Negative: "neg"})
	assert.Equal(t, 0.0, nm.PrevalenceDifference)
	assert.Equal(t, 0.0, nm.PrevalenceRatio)
}

func TestBoundedReach_RespectsMaxDepth(t *testing.T) {
	g := graphmodel.New()
	k1 := g.AddKeyNode("t", metadata.NewIntegerValue(1), "1")
	a1 := g.AddAttributeNode("t", "x", metadata.NewStringValue("v1"))
	g.AddEdge(k1, a1, graphmodel.HasAttrVal)
	k2 := g.AddKeyNode("t2", metadata.NewIntegerValue(2), "2")
	g.AddEdge(a1, k2, graphmodel.ConnectedTo)
	a2 := g.AddAttributeNode("t2", "y", metadata.NewStringValue("v2"))
	g.AddEdge(k2, a2, graphmodel.HasAttrVal)

	reachedShallow := boundedReach(g, k1, 1)
	assert.True(t, reachedShallow[a1])
	assert.False(t, reachedShallow[a2], "a2 is 3 hops away, beyond depth 1")

	reachedDeep := boundedReach(g, k1, 3)
	assert.True(t, reachedDeep[a2])
}
