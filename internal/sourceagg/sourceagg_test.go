package sourceagg

import (
	"context"
	"testing"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRootChildMD(t *testing.T) *metadata.MetaData {
	t.Helper()
	md := metadata.New()

	root := metadata.NewTableInfo("root")
	require.NoError(t, root.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	md.AddTable(root)

	third := metadata.NewTableInfo("third")
	require.NoError(t, third.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, third.AddVariable(&metadata.VariableInfo{Name: "root_id", VariableType: metadata.ForeignKey, DataType: metadata.Integer}))
	third.SetForeignKey("root_id", "root")
	require.NoError(t, third.AddVariable(&metadata.VariableInfo{Name: "v", VariableType: metadata.Metric, DataType: metadata.Decimal}))
	md.AddTable(third)

	return md
}

func TestResolveAggregate_S5Mean(t *testing.T) {
	md := buildRootChildMD(t)
	rootRows := []rowio.Row{{"id": "0"}}
	thirdRows := []rowio.Row{
		{"id": "0", "root_id": "0", "v": "0.7"},
		{"id": "1", "root_id": "0", "v": "0.7"},
		{"id": "2", "root_id": "0", "v": "0.9"},
	}

	ds, err := NewDataset(md, func(table string) ([]rowio.Row, error) {
		switch table {
		case "root":
			return rootRows, nil
		case "third":
			return thirdRows, nil
		}
		return nil, nil
	})
	require.NoError(t, err)

	mean := aggregate.Mean
	req := Requirement{Table: "third", Variable: "v", DataType: metadata.Decimal, Aggregator: &mean}
	resolver := NewResolver(ds, []Requirement{req})

	line, err := resolver.Resolve(context.Background(), "root", rootRows[0])
	require.NoError(t, err)

	res, ok := line.Aggregate("third", "v", metadata.Decimal, aggregate.Mean)
	require.True(t, ok)
	require.False(t, res.Unset)
	assert.InDelta(t, (0.7+0.7+0.9)/3, res.Value.AsDecimal(), 1e-9)
}

func TestResolveSingular_ForwardChain(t *testing.T) {
	md := metadata.New()
	parent := metadata.NewTableInfo("parent")
	require.NoError(t, parent.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, parent.AddVariable(&metadata.VariableInfo{Name: "name", VariableType: metadata.Categorical, DataType: metadata.String}))
	md.AddTable(parent)

	child := metadata.NewTableInfo("child")
	require.NoError(t, child.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, child.AddVariable(&metadata.VariableInfo{Name: "parent_id", VariableType: metadata.ForeignKey, DataType: metadata.Integer}))
	child.SetForeignKey("parent_id", "parent")
	md.AddTable(child)

	parentRows := []rowio.Row{{"id": "1", "name": "Ada"}}
	childRows := []rowio.Row{{"id": "10", "parent_id": "1"}}

	ds, err := NewDataset(md, func(table string) ([]rowio.Row, error) {
		if table == "parent" {
			return parentRows, nil
		}
		return childRows, nil
	})
	require.NoError(t, err)

	req := Requirement{Table: "parent", Variable: "name", DataType: metadata.String}
	resolver := NewResolver(ds, []Requirement{req})

	line, err := resolver.Resolve(context.Background(), "child", childRows[0])
	require.NoError(t, err)

	raw, ok := line.Singular("parent", "name")
	require.True(t, ok)
	assert.Equal(t, "Ada", raw)
}
