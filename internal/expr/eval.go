package expr

import (
	"strings"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Context supplies the data an Eval needs to resolve an atom's
// left-hand side: a singular raw cell lookup for the non-aggregate
// atoms, and a pre-computed aggregate.Result lookup for AggregateAtom
// (the source-data aggregator of §4.7 computes these ahead of
// evaluation, since one pass over descendant rows serves every atom
// that needs the same (table, variable, data_type, aggregator) tuple).
type Context interface {
	Singular(table, variable string) (raw string, ok bool)
	Aggregate(table, variable string, dt metadata.DataType, agg aggregate.Type) (aggregate.Result, bool)
}

// Eval evaluates e against ctx. A missing singular value or an unset
// aggregate result makes the atom false, never an error — matching the
// "value cast failed" recovery policy of §7.
func Eval(e Expr, ctx Context) (bool, error) {
	switch v := e.(type) {
	case AlwaysTrue:
		return true, nil
	case *Not:
		r, err := Eval(v.Expr, ctx)
		if err != nil {
			return false, err
		}
		return !r, nil
	case *And:
		for _, sub := range v.Exprs {
			r, err := Eval(sub, ctx)
			if err != nil {
				return false, err
			}
			if !r {
				return false, nil
			}
		}
		return true, nil
	case *Or:
		for _, sub := range v.Exprs {
			r, err := Eval(sub, ctx)
			if err != nil {
				return false, err
			}
			if r {
				return true, nil
			}
		}
		return false, nil
	case *StringAtom:
		raw, ok := ctx.Singular(v.Table, v.Variable)
		if !ok {
			return false, nil
		}
		val, ok := metadata.Cast(raw, v.DataType)
		if !ok {
			return false, nil
		}
		return evalStringOp(v.Op, val.Raw(), v.Value), nil
	case *MetricAtom:
		raw, ok := ctx.Singular(v.Table, v.Variable)
		if !ok {
			return false, nil
		}
		val, ok := metadata.Cast(raw, v.DataType)
		if !ok {
			return false, nil
		}
		return evalMetricOp(v.Op, val.AsDecimal(), v.Value), nil
	case *InListAtom:
		raw, ok := ctx.Singular(v.Table, v.Variable)
		if !ok {
			return false, nil
		}
		val, ok := metadata.Cast(raw, v.DataType)
		if !ok {
			return false, nil
		}
		for _, cand := range v.Values {
			cv, ok := metadata.Cast(cand, v.DataType)
			if ok && cv.Equal(val) {
				return true, nil
			}
		}
		return false, nil
	case *AggregateAtom:
		res, ok := ctx.Aggregate(v.Table, v.Variable, v.SourceDataType, v.Aggregator)
		if !ok || res.Unset {
			return false, nil
		}
		if v.Op.IsStringOp() {
			return evalStringOp(v.Op, res.Value.Raw(), v.StringValue), nil
		}
		return evalMetricOp(v.Op, res.Value.AsDecimal(), v.NumericValue), nil
	default:
		return false, nil
	}
}

func evalStringOp(op Op, lhs, rhs string) bool {
	switch op {
	case OpIs:
		return lhs == rhs
	case OpContains:
		return strings.Contains(lhs, rhs)
	case OpUnequal:
		return lhs != rhs
	default:
		return false
	}
}

func evalMetricOp(op Op, lhs, rhs float64) bool {
	switch op {
	case OpEqual:
		return lhs == rhs
	case OpLess:
		return lhs < rhs
	case OpGreater:
		return lhs > rhs
	case OpLessEqual:
		return lhs <= rhs
	case OpGreaterEqual:
		return lhs >= rhs
	default:
		return false
	}
}
