package mapping

import (
	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/expr"
)

// referencedTables collects every source table name an expression and
// a conclusion mention, for the reachability check in Validate.
func referencedTables(c expr.Expr, concl conclusion.Conclusion) []string {
	var out []string
	walkExpr(c, &out)
	walkConclusion(concl, &out)
	return out
}

func walkExpr(e expr.Expr, out *[]string) {
	switch v := e.(type) {
	case *expr.StringAtom:
		*out = append(*out, v.Table)
	case *expr.MetricAtom:
		*out = append(*out, v.Table)
	case *expr.InListAtom:
		*out = append(*out, v.Table)
	case *expr.AggregateAtom:
		*out = append(*out, v.Table)
	case *expr.Not:
		walkExpr(v.Expr, out)
	case *expr.And:
		for _, sub := range v.Exprs {
			walkExpr(sub, out)
		}
	case *expr.Or:
		for _, sub := range v.Exprs {
			walkExpr(sub, out)
		}
	}
}

func walkConclusion(c conclusion.Conclusion, out *[]string) {
	switch v := c.(type) {
	case *conclusion.Copy:
		*out = append(*out, v.OriginTable)
	case *conclusion.Aggregate:
		*out = append(*out, v.OriginTable)
	}
}
