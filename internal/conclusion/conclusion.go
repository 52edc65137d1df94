// Package conclusion implements the conclusion AST of §4.4: the value a
// mapping case produces once its condition holds. Three variants —
// FixedReturn, Copy, Aggregate — each with a reversible textual form.
package conclusion

import (
	"fmt"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// Conclusion is any node of the conclusion AST. The marker method is
// unexported so the variant set is closed to this package.
type Conclusion interface {
	isConclusion()
}

// FixedReturn always yields the same literal value. The literal is cast
// at construction time: an implementer supplementing §4.14's decision
// that a FixedReturn whose literal does not cast to its declared type is
// a construction-time error, not a deferred-to-evaluation miss (unlike
// Copy, below), since a FixedReturn has no row-dependent data that could
// ever make the cast succeed later.
type FixedReturn struct {
	DataType metadata.DataType
	Value    metadata.Value
}

func (*FixedReturn) isConclusion() {}

// NewFixedReturn casts raw to dataType, failing construction if the
// cast does not succeed.
func NewFixedReturn(dataType metadata.DataType, raw string) (*FixedReturn, error) {
	v, ok := metadata.Cast(raw, dataType)
	if !ok {
		return nil, &xplerr.TypeMismatchError{Msg: fmt.Sprintf("FixedReturn: %q does not cast to %s", raw, dataType)}
	}
	return &FixedReturn{DataType: dataType, Value: v}, nil
}

// Copy reads the single value of (OriginTable, Variable) in the current
// row family and casts it to DataType. Unlike FixedReturn, the cast
// cannot be checked at construction (the raw value is not known until
// evaluation), so a cast miss defers to evaluation time and yields an
// unset result rather than a construction error (§4.14).
type Copy struct {
	DataType    metadata.DataType
	OriginTable string
	Variable    string
}

func (*Copy) isConclusion() {}

// NewCopy builds a Copy conclusion. There is nothing to validate beyond
// field presence; reachability of OriginTable from the target table is
// a mapping-construction-time concern (§4.8), not this package's.
func NewCopy(dataType metadata.DataType, originTable, variable string) (*Copy, error) {
	if originTable == "" || variable == "" {
		return nil, fmt.Errorf("conclusion: Copy requires a non-empty origin table and variable")
	}
	return &Copy{DataType: dataType, OriginTable: originTable, Variable: variable}, nil
}

// Aggregate runs an aggregator over the multi-set drawn from descendant
// rows of (OriginTable, Variable). List is not permitted as a
// conclusion (§4.4) because it does not reduce to a single scalar cell
// value.
type Aggregate struct {
	SourceDataType metadata.DataType
	OriginTable    string
	Variable       string
	Aggregator     aggregate.Type
}

func (*Aggregate) isConclusion() {}

// NewAggregate builds an Aggregate conclusion, rejecting List at
// construction time.
func NewAggregate(sourceDataType metadata.DataType, originTable, variable string, agg aggregate.Type) (*Aggregate, error) {
	if !agg.AllowedAsConclusion() {
		return nil, &xplerr.ValidationError{Msg: fmt.Sprintf("conclusion: %s is not permitted as a conclusion aggregator", agg)}
	}
	if !agg.CompatibleWith(sourceDataType) {
		return nil, &xplerr.TypeMismatchError{Msg: fmt.Sprintf("conclusion: aggregator %s is not compatible with data type %s", agg, sourceDataType)}
	}
	if originTable == "" || variable == "" {
		return nil, fmt.Errorf("conclusion: Aggregate requires a non-empty origin table and variable")
	}
	return &Aggregate{SourceDataType: sourceDataType, OriginTable: originTable, Variable: variable, Aggregator: agg}, nil
}

// Result is the outcome of evaluating a Conclusion: either a cast
// Value, or Unset — which the caller renders as a missing (empty
// string) target cell (§7).
type Result struct {
	Unset bool
	Value metadata.Value
}

// Evaluate resolves c against ctx, the same row-family context the
// logical-expression evaluator uses (§4.7 pre-computes both singular
// lookups and aggregate reductions once per row family).
func Evaluate(c Conclusion, ctx expr.Context) (Result, error) {
	switch v := c.(type) {
	case *FixedReturn:
		return Result{Value: v.Value}, nil
	case *Copy:
		raw, ok := ctx.Singular(v.OriginTable, v.Variable)
		if !ok {
			return Result{Unset: true}, nil
		}
		val, ok := metadata.Cast(raw, v.DataType)
		if !ok {
			return Result{Unset: true}, nil
		}
		return Result{Value: val}, nil
	case *Aggregate:
		res, ok := ctx.Aggregate(v.OriginTable, v.Variable, v.SourceDataType, v.Aggregator)
		if !ok {
			return Result{Unset: true}, nil
		}
		return Result{Unset: res.Unset, Value: res.Value}, nil
	default:
		return Result{Unset: true}, nil
	}
}
