package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/config"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/mapping"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/stretchr/testify/require"
)

// TestOrchestrator_EndToEnd runs a full job over a single "patient"
// table mapped one-to-one into a target schema of the same shape,
// grouped by treatment arm, and asserts the run completes with a
// non-empty, successful Result.
func TestOrchestrator_EndToEnd(t *testing.T) {
	source := metadata.New()
	patient := metadata.NewTableInfo("patient")
	require.NoError(t, patient.AddVariable(&metadata.VariableInfo{Name: "PK", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, patient.AddVariable(&metadata.VariableInfo{Name: "ARM", VariableType: metadata.Categorical, DataType: metadata.String}))
	require.NoError(t, patient.AddVariable(&metadata.VariableInfo{Name: "AGE", VariableType: metadata.Metric, DataType: metadata.Integer}))
	source.AddTable(patient)

	target := metadata.New()
	targetPatient := metadata.NewTableInfo("patient")
	require.NoError(t, targetPatient.AddVariable(&metadata.VariableInfo{Name: "PK", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	require.NoError(t, targetPatient.AddVariable(&metadata.VariableInfo{Name: "ARM", VariableType: metadata.Categorical, DataType: metadata.String}))
	require.NoError(t, targetPatient.AddVariable(&metadata.VariableInfo{Name: "AGE", VariableType: metadata.Metric, DataType: metadata.Integer}))
	target.AddTable(targetPatient)

	rows := []rowio.Row{
		{"PK": "0", "ARM": "treatment", "AGE": "41"},
		{"PK": "1", "ARM": "treatment", "AGE": "55"},
		{"PK": "2", "ARM": "control", "AGE": "39"},
		{"PK": "3", "ARM": "control", "AGE": "60"},
	}
	src := rowio.NewMemorySource([]string{"patient"}, map[string][]rowio.Row{"patient": rows})

	m := mapping.New(source, target)
	m.SetTableMapping("patient", mapping.NewOneToOne("patient", nil))

	copyArm, err := conclusion.NewCopy(metadata.String, "patient", "ARM")
	require.NoError(t, err)
	m.SetVariableMapping(&mapping.VariableMapping{
		TargetTable: "patient", TargetVariable: "ARM",
		Cases: []mapping.MappingCase{{Condition: expr.AlwaysTrue{}, Conclusion: copyArm}},
	})
	copyAge, err := conclusion.NewCopy(metadata.Integer, "patient", "AGE")
	require.NoError(t, err)
	m.SetVariableMapping(&mapping.VariableMapping{
		TargetTable: "patient", TargetVariable: "AGE",
		Cases: []mapping.MappingCase{{Condition: expr.AlwaysTrue{}, Conclusion: copyAge}},
	})

	dir := t.TempDir()

	targetData, err := target.MarshalJSON()
	require.NoError(t, err)
	targetPath := filepath.Join(dir, "target.json")
	require.NoError(t, os.WriteFile(targetPath, targetData, 0o644))

	mappingData, err := json.Marshal(m)
	require.NoError(t, err)
	mappingPath := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(mappingPath, mappingData, 0o644))

	treatmentCond := &expr.StringAtom{Table: "patient", Variable: "ARM", DataType: metadata.String, Value: "treatment", Op: expr.OpIs}
	controlCond := &expr.StringAtom{Table: "patient", Variable: "ARM", DataType: metadata.String, Value: "control", Op: expr.OpIs}

	cfg := &config.Config{
		Graph: config.GraphConfig{Backend: "memory"},
		Jobs: map[string]config.JobConfig{
			"arm-comparison": {
				MetadataPath: targetPath,
				MappingPath:  mappingPath,
				RootTable:    "patient",
				Groups: map[string]config.GroupConfig{
					"treatment": {Table: "patient", Condition: expr.Print(treatmentCond)},
					"control":   {Table: "patient", Condition: expr.Print(controlCond)},
				},
				PosNeg: &config.PosNegConfig{Positive: "treatment", Negative: "control"},
				AAG:    config.AAGConfig{},
				Filter: config.FilterConfig{},
			},
		},
	}

	orch, err := NewOrchestrator(cfg, "arm-comparison", src, nil)
	require.NoError(t, err)
	require.NoError(t, orch.Initialize())

	result, err := orch.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.SourceTables)
	require.Equal(t, 1, result.TargetTables)
	require.NotNil(t, result.Graph)
	require.NotEmpty(t, result.Graph.Nodes())
	require.NotEmpty(t, result.Graph.Edges())
}

// TestOrchestrator_RequiresInitialize checks that Execute refuses to run
// before Initialize has loaded the target metadata and lattice.
func TestOrchestrator_RequiresInitialize(t *testing.T) {
	source := metadata.New()
	target := metadata.New()
	targetTable := metadata.NewTableInfo("t")
	require.NoError(t, targetTable.AddVariable(&metadata.VariableInfo{Name: "PK", VariableType: metadata.PrimaryKey, DataType: metadata.Integer}))
	target.AddTable(targetTable)

	m := mapping.New(source, target)

	dir := t.TempDir()
	targetData, err := target.MarshalJSON()
	require.NoError(t, err)
	targetPath := filepath.Join(dir, "target.json")
	require.NoError(t, os.WriteFile(targetPath, targetData, 0o644))
	mappingData, err := json.Marshal(m)
	require.NoError(t, err)
	mappingPath := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(mappingPath, mappingData, 0o644))

	cfg := &config.Config{
		Graph: config.GraphConfig{Backend: "memory"},
		Jobs: map[string]config.JobConfig{
			"empty": {MetadataPath: targetPath, MappingPath: mappingPath, RootTable: "t"},
		},
	}
	src := rowio.NewMemorySource(nil, nil)

	orch, err := NewOrchestrator(cfg, "empty", src, nil)
	require.NoError(t, err)

	_, err = orch.Execute(context.Background())
	require.Error(t, err)
}
