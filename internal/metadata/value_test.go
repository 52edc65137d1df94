package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCast_IntegerRejectsDecimalLookingString(t *testing.T) {
	_, ok := Cast("1.0", Integer)
	assert.False(t, ok)
}

func TestCast_DecimalAcceptsIntegerLookingString(t *testing.T) {
	v, ok := Cast("42", Decimal)
	require.True(t, ok)
	assert.Equal(t, 42.0, v.D)
}

func TestCast_Monotonicity(t *testing.T) {
	// Property §8.2: if cast(v, Integer) succeeds with k, cast(v, Decimal) == k as Decimal.
	for _, raw := range []string{"0", "42", "-17", "9999999"} {
		iv, ok := Cast(raw, Integer)
		require.True(t, ok, raw)
		dv, ok := Cast(raw, Decimal)
		require.True(t, ok, raw)
		assert.Equal(t, float64(iv.I), dv.D)
	}
}

func TestCast_StringAlwaysSucceeds(t *testing.T) {
	_, ok := Cast("anything at all", String)
	assert.True(t, ok)
}

func TestMetaDataJSONRoundTrip(t *testing.T) {
	md := New()
	table := NewTableInfo("patient")
	pk := &VariableInfo{Name: "id", VariableType: PrimaryKey, DataType: Integer}
	require.NoError(t, table.AddVariable(pk))
	desc := "age in years"
	age := &VariableInfo{Name: "age", VariableType: Metric, DataType: Integer, Description: &desc}
	require.NoError(t, table.AddVariable(age))
	md.AddTable(table)

	data, err := md.MarshalJSON()
	require.NoError(t, err)

	roundTripped := New()
	require.NoError(t, roundTripped.UnmarshalJSON(data))

	got, ok := roundTripped.Table("patient")
	require.True(t, ok)
	assert.Equal(t, "patient", got.Label)
	require.NotNil(t, got.PrimaryKey)
	assert.Equal(t, "id", *got.PrimaryKey)

	ageOut, ok := got.Variable("age")
	require.True(t, ok)
	require.NotNil(t, ageOut.Description)
	assert.Equal(t, desc, *ageOut.Description)
	assert.Equal(t, Metric, ageOut.VariableType)
}
