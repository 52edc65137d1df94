package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// jsonVariableInfo is the dictionary form of VariableInfo (§6): every
// optional field renders as JSON null when unset.
type jsonVariableInfo struct {
	Name                 string             `json:"name"`
	Table                string             `json:"table"`
	Labels               []string           `json:"labels"`
	VariableType         string             `json:"variable_type"`
	DataType             string             `json:"data_type"`
	Description          *string            `json:"description"`
	DefaultValue         *jsonValue         `json:"default_value"`
	Reviewed             *bool              `json:"reviewed"`
	Artifacts            []string           `json:"artifacts"`
	Binning              *jsonBinning       `json:"binning"`
	ValueDistribution    *jsonDistribution  `json:"value_distribution"`
	DataTypeDistribution map[string]float64 `json:"data_type_distribution"`
}

type jsonValue struct {
	Type string      `json:"type"`
	Raw  string      `json:"raw"`
}

type jsonBinning struct {
	ShouldBin          bool     `json:"should_bin"`
	RefLow             *float64 `json:"ref_low"`
	RefHigh            *float64 `json:"ref_high"`
	ExcludeFromBinning []string `json:"exclude_from_binning"`
}

type jsonDistribution struct {
	Kind string `json:"kind"` // "Metric" | "Categorical"

	// Metric
	Median        *float64     `json:"median,omitempty"`
	Q1            *float64     `json:"q1,omitempty"`
	Q3            *float64     `json:"q3,omitempty"`
	LowerFence    *float64     `json:"lower_fence,omitempty"`
	UpperFence    *float64     `json:"upper_fence,omitempty"`
	Outliers      []*jsonValue `json:"outliers,omitempty"`

	// Categorical
	CategoryCounts []jsonCategoryCount `json:"category_counts,omitempty"`
	OtherCount     *int64              `json:"other_count,omitempty"`

	MissingCount  int `json:"missing_count"`
	ArtifactCount int `json:"artifact_count"`
}

type jsonCategoryCount struct {
	Value jsonValue `json:"value"`
	Count int64     `json:"count"`
}

type jsonTableInfo struct {
	Label       string                       `json:"label"`
	PrimaryKey  *string                      `json:"primary_key"`
	ForeignKeys map[string]string            `json:"foreign_keys"`
	Variables   map[string]*jsonVariableInfo `json:"variables"`
}

func valueToJSON(v Value) *jsonValue {
	return &jsonValue{Type: v.Type.String(), Raw: v.Raw()}
}

func valueFromJSON(j *jsonValue) (Value, error) {
	if j == nil {
		return Value{}, fmt.Errorf("nil value")
	}
	dt, err := ParseDataType(j.Type)
	if err != nil {
		return Value{}, err
	}
	v, ok := Cast(j.Raw, dt)
	if !ok {
		return Value{}, fmt.Errorf("value %q does not cast to %s", j.Raw, j.Type)
	}
	return v, nil
}

func variableToJSON(v *VariableInfo) (*jsonVariableInfo, error) {
	out := &jsonVariableInfo{
		Name:         v.Name,
		Table:        v.Table,
		Labels:       v.Labels,
		VariableType: v.VariableType.String(),
		DataType:     v.DataType.String(),
		Description:  v.Description,
		Reviewed:     v.Reviewed,
		Artifacts:    v.Artifacts,
	}
	if v.DefaultValue != nil {
		out.DefaultValue = valueToJSON(*v.DefaultValue)
	}
	if v.Binning != nil {
		out.Binning = &jsonBinning{
			ShouldBin:          v.Binning.ShouldBin,
			RefLow:             v.Binning.RefLow,
			RefHigh:            v.Binning.RefHigh,
			ExcludeFromBinning: v.Binning.ExcludeFromBinning,
		}
	}
	if v.ValueDistribution != nil {
		jd, err := distributionToJSON(v.ValueDistribution)
		if err != nil {
			return nil, err
		}
		out.ValueDistribution = jd
	}
	if v.DataTypeDistribution != nil {
		out.DataTypeDistribution = make(map[string]float64, len(v.DataTypeDistribution))
		for dt, frac := range v.DataTypeDistribution {
			out.DataTypeDistribution[dt.String()] = frac
		}
	}
	return out, nil
}

func distributionToJSON(d ValueDistribution) (*jsonDistribution, error) {
	switch dist := d.(type) {
	case *MetricDistribution:
		out := &jsonDistribution{
			Kind:          "Metric",
			Median:        &dist.Median,
			Q1:            &dist.Q1,
			Q3:            &dist.Q3,
			LowerFence:    &dist.LowerFence,
			UpperFence:    &dist.UpperFence,
			MissingCount:  dist.MissingCount,
			ArtifactCount: dist.ArtifactCount,
		}
		for _, o := range dist.Outliers {
			out.Outliers = append(out.Outliers, valueToJSON(o))
		}
		return out, nil
	case *CategoricalDistribution:
		out := &jsonDistribution{
			Kind:          "Categorical",
			MissingCount:  dist.MissingCount,
			ArtifactCount: dist.ArtifactCount,
		}
		other := dist.OtherCount
		out.OtherCount = &other
		if dist.CategoryCounts != nil {
			for _, k := range dist.CategoryCounts.Keys() {
				count, _ := dist.CategoryCounts.Get(k)
				out.CategoryCounts = append(out.CategoryCounts, jsonCategoryCount{Value: *valueToJSON(k), Count: count})
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value distribution type %T", d)
	}
}

func distributionFromJSON(j *jsonDistribution) (ValueDistribution, error) {
	if j == nil {
		return nil, nil
	}
	switch j.Kind {
	case "Metric":
		md := &MetricDistribution{
			MissingCount:  j.MissingCount,
			ArtifactCount: j.ArtifactCount,
		}
		if j.Median != nil {
			md.Median = *j.Median
		}
		if j.Q1 != nil {
			md.Q1 = *j.Q1
		}
		if j.Q3 != nil {
			md.Q3 = *j.Q3
		}
		if j.LowerFence != nil {
			md.LowerFence = *j.LowerFence
		}
		if j.UpperFence != nil {
			md.UpperFence = *j.UpperFence
		}
		for _, o := range j.Outliers {
			v, err := valueFromJSON(o)
			if err != nil {
				return nil, err
			}
			md.Outliers = append(md.Outliers, v)
		}
		return md, nil
	case "Categorical":
		cd := &CategoricalDistribution{
			CategoryCounts: orderedmap.NewOrderedMap[Value, int64](),
			MissingCount:   j.MissingCount,
			ArtifactCount:  j.ArtifactCount,
		}
		if j.OtherCount != nil {
			cd.OtherCount = *j.OtherCount
		}
		for _, cc := range j.CategoryCounts {
			v, err := valueFromJSON(&cc.Value)
			if err != nil {
				return nil, err
			}
			cd.CategoryCounts.Set(v, cc.Count)
		}
		return cd, nil
	default:
		return nil, fmt.Errorf("unknown value distribution kind %q", j.Kind)
	}
}

func variableFromJSON(j *jsonVariableInfo) (*VariableInfo, error) {
	vt, err := ParseVariableType(j.VariableType)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", j.Name, err)
	}
	dt, err := ParseDataType(j.DataType)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", j.Name, err)
	}
	out := &VariableInfo{
		Name:         j.Name,
		Table:        j.Table,
		Labels:       j.Labels,
		VariableType: vt,
		DataType:     dt,
		Description:  j.Description,
		Reviewed:     j.Reviewed,
		Artifacts:    j.Artifacts,
	}
	if j.DefaultValue != nil {
		v, err := valueFromJSON(j.DefaultValue)
		if err != nil {
			return nil, fmt.Errorf("variable %q: default_value: %w", j.Name, err)
		}
		out.DefaultValue = &v
	}
	if j.Binning != nil {
		out.Binning = &Binning{
			ShouldBin:          j.Binning.ShouldBin,
			RefLow:             j.Binning.RefLow,
			RefHigh:            j.Binning.RefHigh,
			ExcludeFromBinning: j.Binning.ExcludeFromBinning,
		}
	}
	if j.ValueDistribution != nil {
		dist, err := distributionFromJSON(j.ValueDistribution)
		if err != nil {
			return nil, fmt.Errorf("variable %q: value_distribution: %w", j.Name, err)
		}
		out.ValueDistribution = dist
	}
	if j.DataTypeDistribution != nil {
		out.DataTypeDistribution = make(map[DataType]float64, len(j.DataTypeDistribution))
		for name, frac := range j.DataTypeDistribution {
			dt, err := ParseDataType(name)
			if err != nil {
				return nil, fmt.Errorf("variable %q: data_type_distribution: %w", j.Name, err)
			}
			out.DataTypeDistribution[dt] = frac
		}
	}
	return out, nil
}

// MarshalJSON renders the MetaData in the persisted form of §6: a
// top-level object keyed by table name, in table registration order.
func (m *MetaData) MarshalJSON() ([]byte, error) {
	buf := []byte("{")
	for i, name := range m.Tables.Keys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		table, _ := m.Tables.Get(name)
		jt := jsonTableInfo{
			Label:       table.Label,
			PrimaryKey:  table.PrimaryKey,
			ForeignKeys: map[string]string{},
			Variables:   map[string]*jsonVariableInfo{},
		}
		for _, fk := range table.ForeignKeys.Keys() {
			ref, _ := table.ForeignKeys.Get(fk)
			jt.ForeignKeys[fk] = ref
		}
		for _, vname := range table.Variables.Keys() {
			v, _ := table.Variables.Get(vname)
			jv, err := variableToJSON(v)
			if err != nil {
				return nil, fmt.Errorf("table %q: %w", name, err)
			}
			jt.Variables[vname] = jv
		}
		keyJSON, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(jt)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON parses the persisted form of §6 back into a MetaData.
// Table order follows the JSON object's key order as decoded by
// encoding/json (Go preserves object member order via json.Decoder's
// token stream, which this uses instead of a plain map).
func (m *MetaData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object at top level")
	}
	m.Tables = orderedmap.NewOrderedMap[string, *TableInfo]()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string table name key")
		}
		var jt jsonTableInfo
		if err := dec.Decode(&jt); err != nil {
			return fmt.Errorf("table %q: %w", name, err)
		}
		table := NewTableInfo(name)
		table.Label = jt.Label
		table.PrimaryKey = jt.PrimaryKey
		for fk, ref := range jt.ForeignKeys {
			table.SetForeignKey(fk, ref)
		}
		for vname, jv := range jt.Variables {
			jv.Name = vname
			jv.Table = name
			v, err := variableFromJSON(jv)
			if err != nil {
				return fmt.Errorf("table %q: %w", name, err)
			}
			table.Variables.Set(vname, v)
			if v.VariableType == PrimaryKey {
				pk := vname
				table.PrimaryKey = &pk
			}
		}
		m.Tables.Set(name, table)
	}
	return nil
}
