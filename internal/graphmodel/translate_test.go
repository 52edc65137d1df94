package graphmodel

import (
	"testing"

	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSimpleMetaData(t *testing.T) *metadata.MetaData {
	t.Helper()
	md := metadata.New()

	parent := metadata.NewTableInfo("parent")
	require.NoError(t, parent.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, parent.AddVariable(&metadata.VariableInfo{Name: "city", VariableType: metadata.Categorical, DataType: metadata.String}))
	md.AddTable(parent)

	child := metadata.NewTableInfo("child")
	require.NoError(t, child.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	child.SetForeignKey("parent_id", "parent")
	require.NoError(t, child.AddVariable(&metadata.VariableInfo{Name: "parent_id", VariableType: metadata.ForeignKey, DataType: metadata.Integer}))
	require.NoError(t, child.AddVariable(&metadata.VariableInfo{Name: "score", VariableType: metadata.Metric, DataType: metadata.Decimal,
		Binning: &metadata.Binning{ShouldBin: true}}))
	md.AddTable(child)

	return md
}

func TestTranslate_KeyAttributeAndFKEdges(t *testing.T) {
	md := buildSimpleMetaData(t)

	loader := func(table string) ([]rowio.Row, error) {
		switch table {
		case "parent":
			return []rowio.Row{
				{"id": "0", "city": "Paris"},
				{"id": "1", "city": "Paris"},
			}, nil
		case "child":
			return []rowio.Row{
				{"id": "0", "parent_id": "0", "score": "1.0"},
				{"id": "1", "parent_id": "0", "score": "5.0"},
				{"id": "2", "parent_id": "9", "score": "9.0"}, // dangling FK, edge skipped
			}, nil
		}
		return nil, nil
	}

	g, err := Translate(md, loader, nil)
	require.NoError(t, err)

	var keyNodes, attrNodes, binNodes int
	for _, n := range g.Nodes() {
		switch n.Labels[0] {
		case LabelKey:
			keyNodes++
		case LabelAttribute:
			attrNodes++
		case LabelAttributeBin:
			binNodes++
		}
	}
	assert.Equal(t, 5, keyNodes) // 2 parent rows + 3 child rows
	// "Paris" attribute collapses to one node across both parent rows;
	// each child "score" value is distinct so none collapse.
	assert.Equal(t, 4, attrNodes)

	var hasAttr, connectedTo, assignedBin int
	for _, e := range g.Edges() {
		switch e.Type {
		case HasAttrVal:
			hasAttr++
		case ConnectedTo:
			connectedTo++
		case AssignedBin:
			assignedBin++
		}
	}
	assert.Equal(t, 5, hasAttr) // 2 city + 3 score
	assert.Equal(t, 2, connectedTo, "only 2 of 3 child rows have a resolvable parent_id")
	assert.Equal(t, 3, assignedBin)
	assert.True(t, binNodes > 0)

	parisID, ok := g.ResolveKey("parent", "0")
	require.True(t, ok)
	assert.Equal(t, "parent", g.Node(parisID).Name)
}
