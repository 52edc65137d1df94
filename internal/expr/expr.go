// Package expr implements the logical-expression language of §4.2: a
// purely functional tagged AST of predicates over (table, variable)
// values, with a parser and printer whose textual forms round-trip
// byte-identically for every shape the printer emits.
//
// The dispatch style generalizes the teacher's graph.CycleInfo /
// EdgeMeta pattern of small tagged structs switched over by the
// consuming code, rather than a visitor-interface class hierarchy —
// exhaustive type switches over a closed, unexported marker interface.
package expr

import (
	"fmt"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Expr is any node of the logical-expression AST. The marker method is
// unexported so the variant set is closed to this package.
type Expr interface {
	isExpr()
}

// Op is a comparison operator token. Which subset is legal depends on
// context: StringAtom and the string branch of AggregateAtom accept
// OpIs/OpContains/OpUnequal; MetricAtom and the numeric branch of
// AggregateAtom accept the five relational operators.
type Op string

const (
	OpIs         Op = "IS"
	OpContains   Op = "CONTAINS"
	OpUnequal    Op = "<>"
	OpEqual      Op = "=="
	OpLess       Op = "<"
	OpGreater    Op = ">"
	OpLessEqual  Op = "<="
	OpGreaterEqual Op = ">="
)

// IsStringOp reports whether o is one of the three string-comparison
// operators.
func (o Op) IsStringOp() bool {
	switch o {
	case OpIs, OpContains, OpUnequal:
		return true
	default:
		return false
	}
}

// IsMetricOp reports whether o is one of the five relational operators.
func (o Op) IsMetricOp() bool {
	switch o {
	case OpEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		return true
	default:
		return false
	}
}

func parseOp(tok string) (Op, bool) {
	switch Op(tok) {
	case OpIs, OpContains, OpUnequal, OpEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		return Op(tok), true
	default:
		return "", false
	}
}

// AlwaysTrue is the trivially satisfied predicate.
type AlwaysTrue struct{}

func (AlwaysTrue) isExpr() {}

// StringAtom compares a variable's cast-then-rendered value against a
// string literal with a string operator.
type StringAtom struct {
	Table, Variable string
	DataType        metadata.DataType
	Value           string
	Op              Op
}

func (*StringAtom) isExpr() {}

// MetricAtom compares a variable's cast value against a numeric literal
// with a relational operator.
type MetricAtom struct {
	Table, Variable string
	DataType        metadata.DataType
	Value           float64
	Op              Op
}

func (*MetricAtom) isExpr() {}

// InListAtom tests multi-set membership of a variable's cast value
// among a fixed list of candidate literals.
type InListAtom struct {
	Table, Variable string
	DataType        metadata.DataType
	Values          []string
}

func (*InListAtom) isExpr() {}

// AggregateAtom applies an aggregator to the multi-set of (Table,
// Variable) values compatible with SourceDataType, then compares the
// reduction against a literal. Exactly one of StringValue (when Op is a
// string operator) or NumericValue (when Op is a relational operator)
// is meaningful, mirroring which aggregators produce string-typed vs.
// numeric-typed results (§4.3).
type AggregateAtom struct {
	Table, Variable string
	SourceDataType  metadata.DataType
	Aggregator      aggregate.Type
	Op              Op
	StringValue     string
	NumericValue    float64
}

func (*AggregateAtom) isExpr() {}

// Not negates a sub-expression.
type Not struct {
	Expr Expr
}

func (*Not) isExpr() {}

// And is an n-ary conjunction, arity >= 2.
type And struct {
	Exprs []Expr
}

func (*And) isExpr() {}

// Or is an n-ary disjunction, arity >= 2.
type Or struct {
	Exprs []Expr
}

func (*Or) isExpr() {}

// NewAnd validates arity before returning an And node.
func NewAnd(exprs []Expr) (*And, error) {
	if len(exprs) < 2 {
		return nil, fmt.Errorf("expr: AND requires at least 2 operands, got %d", len(exprs))
	}
	return &And{Exprs: exprs}, nil
}

// NewOr validates arity before returning an Or node.
func NewOr(exprs []Expr) (*Or, error) {
	if len(exprs) < 2 {
		return nil, fmt.Errorf("expr: OR requires at least 2 operands, got %d", len(exprs))
	}
	return &Or{Exprs: exprs}, nil
}
