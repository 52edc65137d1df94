package memory

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

func TestSinkThenSource_MembersMatchesWrittenGraph(t *testing.T) {
	src := graphmodel.New()
	for i, val := range []string{"yes", "no", "yes"} {
		rawPK := string(rune('1' + i))
		kid := src.AddKeyNode("member", metadata.NewIntegerValue(int64(i+1)), rawPK)
		aid := src.AddAttributeNode("member", "flagA", metadata.NewStringValue(val))
		src.AddEdge(kid, aid, graphmodel.HasAttrVal)
	}

	sink := NewSink()
	require.NoError(t, sink.Begin())
	for _, n := range src.Nodes() {
		require.NoError(t, sink.WriteNode(n.ID, n.Labels, n.Table, n.Variable, n.Name, n.Value, n.Description, n.HasRefRange, n.RefLow, n.RefHigh))
	}
	for _, e := range src.Edges() {
		require.NoError(t, sink.WriteEdge(e.Source, e.Target, e.Type))
	}
	require.NoError(t, sink.Commit())

	l := buildMemberLattice(t)
	source := NewSource(sink.Graph(), l)

	cond := &expr.StringAtom{Table: "member", Variable: "flagA", DataType: metadata.String, Value: "yes", Op: expr.OpIs}
	members, err := source.Members(groupselect.GroupSelector{GroupName: "yes_members", GroupTable: "member", Condition: cond})
	require.NoError(t, err)
	assert.Len(t, members, 2, "two of the three rebuilt rows have flagA = yes")
}

func TestExecutePathQuery_RoundTripsThroughCompiledQuery(t *testing.T) {
	l := buildMemberLattice(t)
	g := graphmodel.New()
	for i, val := range []string{"yes", "no"} {
		kid := g.AddKeyNode("member", metadata.NewIntegerValue(int64(i+1)), string(rune('1'+i)))
		aid := g.AddAttributeNode("member", "flagA", metadata.NewStringValue(val))
		g.AddEdge(kid, aid, graphmodel.HasAttrVal)
	}
	source := NewSource(g, l)

	cond := &expr.StringAtom{Table: "member", Variable: "flagA", DataType: metadata.String, Value: "yes", Op: expr.OpIs}
	q, err := groupselect.Compile(groupselect.GroupSelector{GroupName: "g", GroupTable: "member", Condition: cond}, l)
	require.NoError(t, err)

	cursor, err := source.ExecutePathQuery(q)
	require.NoError(t, err)
	var matched int
	var firstPK string
	for {
		tup, ok, err := cursor.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		if matched == 0 {
			firstPK = tup["x_0"]
		}
		matched++
	}
	assert.Equal(t, 1, matched)
	assert.Equal(t, "1", firstPK)
}
