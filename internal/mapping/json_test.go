package mapping

import (
	"encoding/json"
	"testing"

	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_JSONRoundTrip(t *testing.T) {
	source := metadata.New()
	firstRoot := metadata.NewTableInfo("first_root")
	require.NoError(t, firstRoot.AddVariable(&metadata.VariableInfo{Name: "PK", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, firstRoot.AddVariable(&metadata.VariableInfo{Name: "ATTR1", VariableType: metadata.Categorical, DataType: metadata.String}))
	source.AddTable(firstRoot)

	target := metadata.New()
	root := metadata.NewTableInfo("root")
	require.NoError(t, root.AddVariable(&metadata.VariableInfo{Name: "ROOT_PK", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, root.AddVariable(&metadata.VariableInfo{Name: "OUT", VariableType: metadata.Categorical, DataType: metadata.String}))
	target.AddTable(root)

	m := New(source, target)
	cond := &expr.StringAtom{Table: "first_root", Variable: "ATTR1", DataType: metadata.String, Value: "Some", Op: expr.OpContains}
	m.SetTableMapping("root", NewOneToOne("first_root", cond))

	fixedA, err := conclusion.NewFixedReturn(metadata.String, "A")
	require.NoError(t, err)
	m.SetVariableMapping(&VariableMapping{
		TargetTable: "root", TargetVariable: "OUT",
		Cases: []MappingCase{{Condition: expr.AlwaysTrue{}, Conclusion: fixedA}},
	})

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]jsonMappingEntry
	require.NoError(t, json.Unmarshal(data, &raw))
	entry := raw["root"]
	require.NotNil(t, entry.TableMapping)
	assert.Equal(t, "OneToOne", *entry.TableMapping.Type)
	assert.Equal(t, []string{"first_root"}, entry.TableMapping.SourceTables)
	assert.Equal(t, expr.Print(cond), entry.TableMapping.Condition)
	require.Contains(t, entry.VariableMappings, "OUT")
	require.Len(t, entry.VariableMappings["OUT"].Cases, 1)
	assert.Equal(t, "(TRUE)", entry.VariableMappings["OUT"].Cases[0].If)
	assert.Equal(t, conclusion.Print(fixedA), entry.VariableMappings["OUT"].Cases[0].Then)

	restored := New(source, target)
	require.NoError(t, json.Unmarshal(data, restored))

	tm, ok := restored.TableMapping("root")
	require.True(t, ok)
	assert.Equal(t, OneToOne, tm.Kind)
	assert.Equal(t, []string{"first_root"}, tm.SourceTables)
	assert.Equal(t, expr.Print(cond), expr.Print(tm.Condition))

	vm, ok := restored.VariableMapping("root", "OUT")
	require.True(t, ok)
	require.Len(t, vm.Cases, 1)
	assert.Equal(t, conclusion.Print(fixedA), conclusion.Print(vm.Cases[0].Conclusion))
}
