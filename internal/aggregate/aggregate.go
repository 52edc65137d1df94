// Package aggregate provides the named reduction vocabulary (§4.3) shared
// by logical-expression aggregate atoms, conclusions, and the source-data
// aggregator: COUNT, LIST, CONCATENATE, MIN, MAX, MEAN, MEDIAN, STD, SUM,
// AMPLITUDE, each with its own data-type compatibility and empty-input
// semantics.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Type is a named reduction over a multi-set of cast values.
type Type int

const (
	Count Type = iota
	List
	Concatenate
	Min
	Max
	Mean
	Median
	Std
	Sum
	Amplitude
)

func (t Type) String() string {
	switch t {
	case Count:
		return "COUNT"
	case List:
		return "LIST"
	case Concatenate:
		return "CONCATENATE"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Mean:
		return "MEAN"
	case Median:
		return "MEDIAN"
	case Std:
		return "STD"
	case Sum:
		return "SUM"
	case Amplitude:
		return "AMPLITUDE"
	default:
		return "UNKNOWN"
	}
}

// Parse recovers a Type from its textual token (as printed by String).
func Parse(s string) (Type, error) {
	switch s {
	case "COUNT":
		return Count, nil
	case "LIST":
		return List, nil
	case "CONCATENATE":
		return Concatenate, nil
	case "MIN":
		return Min, nil
	case "MAX":
		return Max, nil
	case "MEAN":
		return Mean, nil
	case "MEDIAN":
		return Median, nil
	case "STD":
		return Std, nil
	case "SUM":
		return Sum, nil
	case "AMPLITUDE":
		return Amplitude, nil
	default:
		return 0, fmt.Errorf("aggregate: unknown aggregator token %q", s)
	}
}

// Numeric reports whether t requires an Integer/Decimal source.
func (t Type) Numeric() bool {
	switch t {
	case Min, Max, Mean, Median, Std, Sum, Amplitude:
		return true
	default:
		return false
	}
}

// CompatibleWith reports whether t may be applied to a multi-set of dt
// values (§4.3 compatibility table).
func (t Type) CompatibleWith(dt metadata.DataType) bool {
	switch t {
	case Count, List:
		return true
	case Concatenate:
		return true // any source value is stringified before joining
	default:
		return dt == metadata.Integer || dt == metadata.Decimal
	}
}

// AllowedAsConclusion reports whether t may appear in a Conclusion
// (§4.4): List is excluded because it is not a single scalar value.
func (t Type) AllowedAsConclusion() bool {
	return t != List
}

// ResultType is the data type of t's result, for CompatibleWith callers
// that need to typecheck the RHS of a comparison.
func (t Type) ResultType() metadata.DataType {
	switch t {
	case Count:
		return metadata.Integer
	case List, Concatenate:
		return metadata.String
	default:
		return metadata.Decimal
	}
}

// Result is the outcome of applying an aggregator to a multi-set: either a
// cast Value, or Unset (the "no match" / empty-multiset case of §4.3,
// which propagates as false in predicates and None in conclusions).
type Result struct {
	Unset bool
	Value metadata.Value
}

// Apply reduces values (already filtered to those castable to dt, in
// encounter order) according to t. Concatenate is order-preserving; every
// other aggregator is order-independent (§8.6).
func Apply(t Type, dt metadata.DataType, values []metadata.Value) (Result, error) {
	if !t.CompatibleWith(dt) {
		return Result{}, fmt.Errorf("aggregate: %s is not compatible with data type %s", t, dt)
	}
	switch t {
	case Count:
		return Result{Value: metadata.NewIntegerValue(int64(len(values)))}, nil
	case List:
		if len(values) == 0 {
			return Result{Unset: true}, nil
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = v.Raw()
		}
		return Result{Value: metadata.NewStringValue(strings.Join(parts, ";"))}, nil
	case Concatenate:
		if len(values) == 0 {
			return Result{Unset: true}, nil
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = v.Raw()
		}
		return Result{Value: metadata.NewStringValue(strings.Join(parts, ";"))}, nil
	}

	if len(values) == 0 {
		return Result{Unset: true}, nil
	}
	nums := make([]float64, len(values))
	for i, v := range values {
		nums[i] = v.AsDecimal()
	}
	switch t {
	case Min:
		return Result{Value: metadata.NewDecimalValue(minOf(nums))}, nil
	case Max:
		return Result{Value: metadata.NewDecimalValue(maxOf(nums))}, nil
	case Sum:
		return Result{Value: metadata.NewDecimalValue(sumOf(nums))}, nil
	case Mean:
		return Result{Value: metadata.NewDecimalValue(sumOf(nums) / float64(len(nums)))}, nil
	case Median:
		return Result{Value: metadata.NewDecimalValue(medianOf(nums))}, nil
	case Std:
		return Result{Value: metadata.NewDecimalValue(stdOf(nums))}, nil
	case Amplitude:
		return Result{Value: metadata.NewDecimalValue(maxOf(nums) - minOf(nums))}, nil
	default:
		return Result{}, fmt.Errorf("aggregate: unhandled aggregator %s", t)
	}
}

func minOf(nums []float64) float64 {
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

func maxOf(nums []float64) float64 {
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return m
}

func sumOf(nums []float64) float64 {
	var s float64
	for _, n := range nums {
		s += n
	}
	return s
}

func medianOf(nums []float64) float64 {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stdOf(nums []float64) float64 {
	mean := sumOf(nums) / float64(len(nums))
	var variance float64
	for _, n := range nums {
		d := n - mean
		variance += d * d
	}
	variance /= float64(len(nums))
	return math.Sqrt(variance)
}
