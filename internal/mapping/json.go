package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/expr"
)

// jsonTableMapping is the persisted form of a TableMapping: top-level
// object keyed by target table name (spec §6's "Persisted mapping
// JSON").
type jsonTableMapping struct {
	Type         *string  `json:"type"`
	SourceTables []string `json:"source_tables"`
	ToInherit    *string  `json:"to_inherit"`
	Condition    string   `json:"condition"`
}

type jsonCase struct {
	If   string `json:"if"`
	Then string `json:"then"`
}

type jsonVariableMapping struct {
	TargetTable    string     `json:"target_table"`
	TargetVariable string     `json:"target_variable"`
	Cases          []jsonCase `json:"cases"`
}

type jsonMappingEntry struct {
	TableMapping     *jsonTableMapping              `json:"table_mapping"`
	VariableMappings map[string]*jsonVariableMapping `json:"variable_mappings"`
}

// MarshalJSON renders the mapping in the persisted form of §6: a
// top-level object keyed by target table name, in the order target
// tables were registered.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	buf := []byte("{")
	tableNames := m.Target.TableNames()
	first := true
	for _, tableName := range tableNames {
		tm, hasTM := m.tableMappings[tableName]
		byVar := m.variableMappings[tableName]
		if !hasTM && len(byVar) == 0 {
			continue
		}
		if !first {
			buf = append(buf, ',')
		}
		first = false

		entry := jsonMappingEntry{VariableMappings: map[string]*jsonVariableMapping{}}
		if hasTM {
			entry.TableMapping = tableMappingToJSON(tm)
		}
		table, _ := m.Target.Table(tableName)
		for _, varName := range table.VariableNames() {
			vm, ok := byVar[varName]
			if !ok {
				continue
			}
			jvm, err := variableMappingToJSON(vm)
			if err != nil {
				return nil, fmt.Errorf("mapping: table %q variable %q: %w", tableName, varName, err)
			}
			entry.VariableMappings[varName] = jvm
		}

		keyJSON, err := json.Marshal(tableName)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("mapping: table %q: %w", tableName, err)
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func tableMappingToJSON(tm *TableMapping) *jsonTableMapping {
	var kind *string
	s := tm.Kind.String()
	kind = &s
	var toInherit *string
	if tm.Kind == Inherited {
		v := tm.InheritFrom
		toInherit = &v
	}
	return &jsonTableMapping{
		Type:         kind,
		SourceTables: append([]string(nil), tm.SourceTables...),
		ToInherit:    toInherit,
		Condition:    expr.Print(tm.Condition),
	}
}

func variableMappingToJSON(vm *VariableMapping) (*jsonVariableMapping, error) {
	jvm := &jsonVariableMapping{TargetTable: vm.TargetTable, TargetVariable: vm.TargetVariable}
	for _, c := range vm.Cases {
		jvm.Cases = append(jvm.Cases, jsonCase{
			If:   expr.Print(c.Condition),
			Then: conclusion.Print(c.Conclusion),
		})
	}
	return jvm, nil
}

// UnmarshalJSON parses the persisted form of §6 back into a Mapping.
// Source and Target must already be set (via New) before calling this;
// UnmarshalJSON only populates the table/variable mapping rules.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("mapping: expected JSON object at top level")
	}
	if m.tableMappings == nil {
		m.tableMappings = make(map[string]*TableMapping)
	}
	if m.variableMappings == nil {
		m.variableMappings = make(map[string]map[string]*VariableMapping)
	}
	if m.inheritanceFK == nil {
		m.inheritanceFK = make(map[string]string)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		tableName, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("mapping: expected string target table name key")
		}
		var entry jsonMappingEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("mapping: table %q: %w", tableName, err)
		}
		if entry.TableMapping != nil {
			tm, err := tableMappingFromJSON(entry.TableMapping)
			if err != nil {
				return fmt.Errorf("mapping: table %q: %w", tableName, err)
			}
			m.tableMappings[tableName] = tm
		}
		for varName, jvm := range entry.VariableMappings {
			vm, err := variableMappingFromJSON(tableName, varName, jvm)
			if err != nil {
				return fmt.Errorf("mapping: table %q variable %q: %w", tableName, varName, err)
			}
			m.SetVariableMapping(vm)
		}
	}
	return nil
}

func tableMappingFromJSON(jt *jsonTableMapping) (*TableMapping, error) {
	cond, err := parseConditionOrTrue(jt.Condition)
	if err != nil {
		return nil, err
	}
	if jt.Type == nil {
		return nil, fmt.Errorf("missing table mapping type")
	}
	switch *jt.Type {
	case "OneToOne":
		if len(jt.SourceTables) != 1 {
			return nil, fmt.Errorf("OneToOne requires exactly one source table, got %d", len(jt.SourceTables))
		}
		return NewOneToOne(jt.SourceTables[0], cond), nil
	case "Merge":
		return NewMerge(jt.SourceTables, cond), nil
	case "Concatenate":
		return NewConcatenate(jt.SourceTables, cond), nil
	case "Inherited":
		if jt.ToInherit == nil {
			return nil, fmt.Errorf("Inherited table mapping missing to_inherit")
		}
		return NewInherited(*jt.ToInherit, cond), nil
	default:
		return nil, fmt.Errorf("unknown table mapping type %q", *jt.Type)
	}
}

func variableMappingFromJSON(tableName, varName string, jvm *jsonVariableMapping) (*VariableMapping, error) {
	vm := &VariableMapping{TargetTable: tableName, TargetVariable: varName}
	for i, jc := range jvm.Cases {
		cond, err := parseConditionOrTrue(jc.If)
		if err != nil {
			return nil, fmt.Errorf("case %d: parsing condition: %w", i, err)
		}
		concl, err := conclusion.Parse(jc.Then)
		if err != nil {
			return nil, fmt.Errorf("case %d: parsing conclusion: %w", i, err)
		}
		vm.Cases = append(vm.Cases, MappingCase{Condition: cond, Conclusion: concl})
	}
	return vm, nil
}

func parseConditionOrTrue(s string) (expr.Expr, error) {
	if s == "" {
		return expr.AlwaysTrue{}, nil
	}
	return expr.Parse(s)
}
