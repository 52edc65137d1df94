// Package mapping implements the data mapping & transformer (§4.8): a
// declarative, table-level plus per-variable case/conditional/
// conclusion language that produces a new tabular dataset from a
// source one, including row-aggregation across related tables.
package mapping

import (
	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// TableMappingKind selects how a target table's rows are produced from
// its source table(s).
type TableMappingKind int

const (
	OneToOne TableMappingKind = iota
	Merge
	Concatenate
	Inherited
)

func (k TableMappingKind) String() string {
	switch k {
	case OneToOne:
		return "OneToOne"
	case Merge:
		return "Merge"
	case Concatenate:
		return "Concatenate"
	case Inherited:
		return "Inherited"
	default:
		return "Unknown"
	}
}

// TableMapping describes how one target table's row-family-to-row
// translation works (§4.8).
type TableMapping struct {
	Kind          TableMappingKind
	SourceTables  []string // OneToOne: exactly one; Merge/Concatenate: one or more; Inherited: none
	InheritFrom   string   // Inherited only: the parent target table
	Condition     expr.Expr
}

// NewOneToOne builds a OneToOne table mapping.
func NewOneToOne(sourceTable string, condition expr.Expr) *TableMapping {
	return &TableMapping{Kind: OneToOne, SourceTables: []string{sourceTable}, Condition: orAlwaysTrue(condition)}
}

// NewMerge builds a Merge table mapping over two or more source tables.
func NewMerge(sourceTables []string, condition expr.Expr) *TableMapping {
	return &TableMapping{Kind: Merge, SourceTables: append([]string(nil), sourceTables...), Condition: orAlwaysTrue(condition)}
}

// NewConcatenate builds a Concatenate table mapping over two or more
// source tables, processed in the given order.
func NewConcatenate(sourceTables []string, condition expr.Expr) *TableMapping {
	return &TableMapping{Kind: Concatenate, SourceTables: append([]string(nil), sourceTables...), Condition: orAlwaysTrue(condition)}
}

// NewInherited builds an Inherited table mapping sharing row identity
// with parentTarget.
func NewInherited(parentTarget string, condition expr.Expr) *TableMapping {
	return &TableMapping{Kind: Inherited, InheritFrom: parentTarget, Condition: orAlwaysTrue(condition)}
}

func orAlwaysTrue(e expr.Expr) expr.Expr {
	if e == nil {
		return expr.AlwaysTrue{}
	}
	return e
}

// MappingCase is one (condition, conclusion) pair in a variable
// mapping's totally-ordered case list.
type MappingCase struct {
	Condition  expr.Expr
	Conclusion conclusion.Conclusion
}

// VariableMapping is the ordered case list for a single non-primary
// target variable.
type VariableMapping struct {
	TargetTable    string
	TargetVariable string
	Cases          []MappingCase
}

// Mapping is the data-mapping object: it owns read-only handles into
// the source and target MetaData instances it links (§3.4), plus the
// table- and variable-level mapping rules.
type Mapping struct {
	Source *metadata.MetaData
	Target *metadata.MetaData

	tableMappings    map[string]*TableMapping
	variableMappings map[string]map[string]*VariableMapping // target table -> variable -> mapping

	// inheritanceFK names the synthesized foreign-key variable an
	// Inherited target table uses to reach its parent target row, if
	// the caller requested one be materialized as a real FK variable.
	inheritanceFK map[string]string
}

// New builds an empty Mapping linking source and target.
func New(source, target *metadata.MetaData) *Mapping {
	return &Mapping{
		Source:            source,
		Target:            target,
		tableMappings:     make(map[string]*TableMapping),
		variableMappings:  make(map[string]map[string]*VariableMapping),
		inheritanceFK:     make(map[string]string),
	}
}

// SetTableMapping assigns tm as the table mapping for target table.
func (m *Mapping) SetTableMapping(targetTable string, tm *TableMapping) {
	m.tableMappings[targetTable] = tm
}

// TableMapping returns the table mapping assigned to targetTable, if
// any.
func (m *Mapping) TableMapping(targetTable string) (*TableMapping, bool) {
	tm, ok := m.tableMappings[targetTable]
	return tm, ok
}

// SetVariableMapping assigns vm as the variable mapping for one
// non-primary target variable.
func (m *Mapping) SetVariableMapping(vm *VariableMapping) {
	byVar, ok := m.variableMappings[vm.TargetTable]
	if !ok {
		byVar = make(map[string]*VariableMapping)
		m.variableMappings[vm.TargetTable] = byVar
	}
	byVar[vm.TargetVariable] = vm
}

// VariableMapping returns the variable mapping for (targetTable,
// targetVariable), if any.
func (m *Mapping) VariableMapping(targetTable, targetVariable string) (*VariableMapping, bool) {
	byVar, ok := m.variableMappings[targetTable]
	if !ok {
		return nil, false
	}
	vm, ok := byVar[targetVariable]
	return vm, ok
}

// SetInheritanceForeignKey records that targetTable (an Inherited
// table) reaches its parent via the named synthesized FK variable.
func (m *Mapping) SetInheritanceForeignKey(targetTable, fkVariable string) {
	m.inheritanceFK[targetTable] = fkVariable
}

// InheritanceForeignKey returns the synthesized FK variable name for an
// Inherited targetTable, if one was set.
func (m *Mapping) InheritanceForeignKey(targetTable string) (string, bool) {
	v, ok := m.inheritanceFK[targetTable]
	return v, ok
}

// TargetTables returns the target tables that have a table mapping
// assigned, in MetaData registration order.
func (m *Mapping) TargetTables() []string {
	var out []string
	for _, name := range m.Target.TableNames() {
		if _, ok := m.tableMappings[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
