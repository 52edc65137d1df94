// Package metadata holds the shared metadata model (§3 of the spec this
// module implements): data types, variable roles, tables, variables,
// value distributions and binning. Every other engine takes a read-only
// view of a *MetaData; only its owner mutates it (§3.4).
package metadata

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// DataType is the closed enumeration of cell value types.
type DataType int

const (
	String DataType = iota
	Integer
	Decimal
)

func (d DataType) String() string {
	switch d {
	case String:
		return "String"
	case Integer:
		return "Integer"
	case Decimal:
		return "Decimal"
	default:
		return fmt.Sprintf("DataType(%d)", int(d))
	}
}

// ParseDataType parses the textual form used by the logical-expression
// and conclusion printers/parsers (§4.2, §4.4) and by persisted JSON.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "String":
		return String, nil
	case "Integer":
		return Integer, nil
	case "Decimal":
		return Decimal, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

// VariableType is the closed enumeration of variable roles.
type VariableType int

const (
	PrimaryKey VariableType = iota
	ForeignKey
	Categorical
	Metric
)

func (v VariableType) String() string {
	switch v {
	case PrimaryKey:
		return "PrimaryKey"
	case ForeignKey:
		return "ForeignKey"
	case Categorical:
		return "Categorical"
	case Metric:
		return "Metric"
	default:
		return fmt.Sprintf("VariableType(%d)", int(v))
	}
}

func ParseVariableType(s string) (VariableType, error) {
	switch s {
	case "PrimaryKey":
		return PrimaryKey, nil
	case "ForeignKey":
		return ForeignKey, nil
	case "Categorical":
		return Categorical, nil
	case "Metric":
		return Metric, nil
	default:
		return 0, fmt.Errorf("unknown variable type %q", s)
	}
}

// Binning describes how a metric variable is coarsened into low/normal/high
// bin nodes during graph translation (§4.9).
type Binning struct {
	ShouldBin          bool
	RefLow             *float64
	RefHigh            *float64
	ExcludeFromBinning []string
}

// Valid checks the binning-specific invariant: ref_low <= ref_high, or both absent.
func (b *Binning) Valid() bool {
	if b == nil {
		return true
	}
	switch {
	case b.RefLow != nil && b.RefHigh != nil:
		return *b.RefLow <= *b.RefHigh
	case b.RefLow == nil && b.RefHigh == nil:
		return true
	default:
		return false
	}
}

// ValueDistribution is the tagged union of §3.3: either a MetricDistribution
// or a CategoricalDistribution. The unexported marker method closes the set.
type ValueDistribution interface {
	isValueDistribution()
}

// MetricDistribution is the value distribution of a Metric variable.
type MetricDistribution struct {
	Median       float64
	Q1           float64
	Q3           float64
	LowerFence   float64
	UpperFence   float64
	Outliers     []Value
	MissingCount int
	ArtifactCount int
}

func (MetricDistribution) isValueDistribution() {}

// CategoricalDistribution is the value distribution of a Categorical variable.
// CategoryCounts is insertion-ordered (descending frequency, as produced by
// the generator) so that repeated runs over the same input serialize to
// byte-identical JSON (§8.3).
type CategoricalDistribution struct {
	CategoryCounts *orderedmap.OrderedMap[Value, int64]
	OtherCount     int64
	MissingCount   int
	ArtifactCount  int
}

func (CategoricalDistribution) isValueDistribution() {}

// VariableInfo is the per-variable metadata record (§3.2).
type VariableInfo struct {
	Name                  string
	Table                 string
	Labels                []string
	VariableType          VariableType
	DataType              DataType
	Description           *string
	DefaultValue          *Value
	Reviewed              *bool
	Artifacts             []string
	Binning               *Binning
	ValueDistribution     ValueDistribution
	DataTypeDistribution  map[DataType]float64
}

// Validate checks the per-variable invariants of §3.2.
func (v *VariableInfo) Validate() error {
	if v.VariableType == PrimaryKey {
		if v.Binning != nil {
			return fmt.Errorf("variable %q: primary key variable must not have binning", v.Name)
		}
	}
	if v.VariableType == Metric && v.DataType == String {
		return fmt.Errorf("variable %q: metric variable must not be String", v.Name)
	}
	if v.Binning != nil && v.Binning.ShouldBin && v.DataType == String {
		return fmt.Errorf("variable %q: should_bin requires a non-String data type", v.Name)
	}
	if !v.Binning.Valid() {
		return fmt.Errorf("variable %q: binning reference range has ref_low > ref_high", v.Name)
	}
	if v.DefaultValue != nil && v.DefaultValue.Type != v.DataType {
		return fmt.Errorf("variable %q: default value type %s does not match declared data type %s", v.Name, v.DefaultValue.Type, v.DataType)
	}
	return nil
}

// TableInfo is the per-table metadata record (§3.2).
type TableInfo struct {
	Name        string
	Label       string
	PrimaryKey  *string
	ForeignKeys *orderedmap.OrderedMap[string, string] // variable name in this table -> referenced table
	Variables   *orderedmap.OrderedMap[string, *VariableInfo]
}

// NewTableInfo creates an empty TableInfo for the given table name, with
// label defaulting to the table name per §3.2.
func NewTableInfo(name string) *TableInfo {
	return &TableInfo{
		Name:        name,
		Label:       name,
		ForeignKeys: orderedmap.NewOrderedMap[string, string](),
		Variables:   orderedmap.NewOrderedMap[string, *VariableInfo](),
	}
}

// AddVariable registers a variable, enforcing the primary-key/foreign-key
// role invariants against the table's own declarations.
func (t *TableInfo) AddVariable(v *VariableInfo) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if v.VariableType == PrimaryKey {
		if t.PrimaryKey != nil && *t.PrimaryKey != v.Name {
			return fmt.Errorf("table %q already has primary key %q, cannot add second primary key %q", t.Name, *t.PrimaryKey, v.Name)
		}
		name := v.Name
		t.PrimaryKey = &name
	}
	if v.VariableType == ForeignKey {
		if _, ok := t.ForeignKeys.Get(v.Name); !ok {
			return fmt.Errorf("table %q: foreign key variable %q must be registered via SetForeignKey before AddVariable", t.Name, v.Name)
		}
	}
	v.Table = t.Name
	t.Variables.Set(v.Name, v)
	return nil
}

// SetForeignKey declares that variable name in this table references the
// primary key of table refTable.
func (t *TableInfo) SetForeignKey(name, refTable string) {
	t.ForeignKeys.Set(name, refTable)
}

// VariableNames returns variable names in declaration order.
func (t *TableInfo) VariableNames() []string {
	return t.Variables.Keys()
}

// Variable looks up a variable by name.
func (t *TableInfo) Variable(name string) (*VariableInfo, bool) {
	return t.Variables.Get(name)
}

// MetaData maps table names to TableInfo (§3.2). It is mutated only by its
// owner; downstream engines take *MetaData as a read-only view.
type MetaData struct {
	Tables *orderedmap.OrderedMap[string, *TableInfo]
}

// New creates an empty MetaData.
func New() *MetaData {
	return &MetaData{Tables: orderedmap.NewOrderedMap[string, *TableInfo]()}
}

// AddTable registers a table, keyed by its name.
func (m *MetaData) AddTable(t *TableInfo) {
	m.Tables.Set(t.Name, t)
}

// Table looks up a table by name.
func (m *MetaData) Table(name string) (*TableInfo, bool) {
	return m.Tables.Get(name)
}

// TableNames returns table names in registration order.
func (m *MetaData) TableNames() []string {
	return m.Tables.Keys()
}
