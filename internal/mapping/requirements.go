package mapping

import (
	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/sourceagg"
)

// collectRequirements walks a table mapping's condition and every case
// of its variable mappings, gathering the singular look-ups and
// aggregated reductions the source-data aggregator must resolve once
// per row family (§4.7).
func collectRequirements(tm *TableMapping, varMaps map[string]*VariableMapping) []sourceagg.Requirement {
	seen := make(map[string]sourceagg.Requirement)
	add := func(r sourceagg.Requirement) {
		key := r.Table + "\x00" + r.Variable
		if r.Aggregator != nil {
			key += "\x00" + r.Aggregator.String()
		}
		seen[key] = r
	}

	collectExprRequirements(tm.Condition, add)
	for _, vm := range varMaps {
		for _, c := range vm.Cases {
			collectExprRequirements(c.Condition, add)
			collectConclusionRequirements(c.Conclusion, add)
		}
	}

	out := make([]sourceagg.Requirement, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	return out
}

func collectExprRequirements(e expr.Expr, add func(sourceagg.Requirement)) {
	switch v := e.(type) {
	case *expr.StringAtom:
		add(sourceagg.Requirement{Table: v.Table, Variable: v.Variable, DataType: v.DataType})
	case *expr.MetricAtom:
		add(sourceagg.Requirement{Table: v.Table, Variable: v.Variable, DataType: v.DataType})
	case *expr.InListAtom:
		add(sourceagg.Requirement{Table: v.Table, Variable: v.Variable, DataType: v.DataType})
	case *expr.AggregateAtom:
		agg := v.Aggregator
		add(sourceagg.Requirement{Table: v.Table, Variable: v.Variable, DataType: v.SourceDataType, Aggregator: &agg})
	case *expr.Not:
		collectExprRequirements(v.Expr, add)
	case *expr.And:
		for _, sub := range v.Exprs {
			collectExprRequirements(sub, add)
		}
	case *expr.Or:
		for _, sub := range v.Exprs {
			collectExprRequirements(sub, add)
		}
	}
}

func collectConclusionRequirements(c conclusion.Conclusion, add func(sourceagg.Requirement)) {
	switch v := c.(type) {
	case *conclusion.Copy:
		add(sourceagg.Requirement{Table: v.OriginTable, Variable: v.Variable, DataType: v.DataType})
	case *conclusion.Aggregate:
		agg := v.Aggregator
		add(sourceagg.Requirement{Table: v.OriginTable, Variable: v.Variable, DataType: v.SourceDataType, Aggregator: &agg})
	}
}
