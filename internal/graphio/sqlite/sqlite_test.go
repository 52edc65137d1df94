package sqlite

import (
	"testing"

	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/groupselect"
	"github.com/dbsmedya/goxplore/internal/lattice"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMemberLattice(t *testing.T) *lattice.Lattice {
	t.Helper()
	md := metadata.New()
	member := metadata.NewTableInfo("member")
	require.NoError(t, member.AddVariable(&metadata.VariableInfo{Name: "id", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, member.AddVariable(&metadata.VariableInfo{Name: "flagA", VariableType: metadata.Categorical, DataType: metadata.String}))
	md.AddTable(member)
	l, err := lattice.Build(md)
	require.NoError(t, err)
	return l
}

func TestSinkThenSource_RoundTripsThroughSQLite(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	src := graphmodel.New()
	for i, val := range []string{"yes", "no", "yes"} {
		kid := src.AddKeyNode("member", metadata.NewIntegerValue(int64(i+1)), string(rune('1'+i)))
		aid := src.AddAttributeNode("member", "flagA", metadata.NewStringValue(val))
		src.AddEdge(kid, aid, graphmodel.HasAttrVal)
	}

	sink := NewSink(db)
	require.NoError(t, sink.Begin())
	for _, n := range src.Nodes() {
		require.NoError(t, sink.WriteNode(n.ID, n.Labels, n.Table, n.Variable, n.Name, n.Value, n.Description, n.HasRefRange, n.RefLow, n.RefHigh))
	}
	for _, e := range src.Edges() {
		require.NoError(t, sink.WriteEdge(e.Source, e.Target, e.Type))
	}
	require.NoError(t, sink.Commit())

	l := buildMemberLattice(t)
	source, err := NewSource(db, l)
	require.NoError(t, err)

	cond := &expr.StringAtom{Table: "member", Variable: "flagA", DataType: metadata.String, Value: "yes", Op: expr.OpIs}
	members, err := source.Members(groupselect.GroupSelector{GroupName: "yes_members", GroupTable: "member", Condition: cond})
	require.NoError(t, err)
	assert.Len(t, members, 2, "two of the three persisted rows have flagA = yes")
}

func TestLoadGraph_PreservesNodeAndEdgeCounts(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	src := graphmodel.New()
	kid := src.AddKeyNode("member", metadata.NewIntegerValue(1), "1")
	aid := src.AddAttributeNode("member", "flagA", metadata.NewStringValue("yes"))
	src.AddEdge(kid, aid, graphmodel.HasAttrVal)

	sink := NewSink(db)
	require.NoError(t, sink.Begin())
	for _, n := range src.Nodes() {
		require.NoError(t, sink.WriteNode(n.ID, n.Labels, n.Table, n.Variable, n.Name, n.Value, n.Description, n.HasRefRange, n.RefLow, n.RefHigh))
	}
	for _, e := range src.Edges() {
		require.NoError(t, sink.WriteEdge(e.Source, e.Target, e.Type))
	}
	require.NoError(t, sink.Commit())

	rebuilt, err := LoadGraph(db)
	require.NoError(t, err)
	assert.Len(t, rebuilt.Nodes(), len(src.Nodes()))
	assert.Len(t, rebuilt.Edges(), len(src.Edges()))
}

func TestSink_WriteNodeOutsideBeginErrors(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	sink := NewSink(db)
	err = sink.WriteNode(1, []string{graphmodel.LabelKey}, "member", "", "", metadata.NewIntegerValue(1), "", false, 0, 0)
	assert.Error(t, err)
}
