// Package groupselect compiles a GroupSelector (§4.10) into the neutral,
// backend-agnostic path-query form of §6: a small AST with a String()
// renderer, grounded on the teacher's internal/verifier building
// parameterized SQL fragments with sqlutil.QuoteIdentifier for every
// identifier it emits. A concrete Graph Source (§6) renders or interprets
// this form directly; groupselect itself never touches a database.
package groupselect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/lattice"
	"github.com/dbsmedya/goxplore/internal/sqlutil"
)

// GroupSelector identifies a group's member rows: every row of
// group_table for which condition holds over its resolved SourceDataLine.
type GroupSelector struct {
	GroupName  string
	GroupTable string
	Condition  expr.Expr
}

// Join is one hop of the match path from the anchor. Forward hops follow
// a table's own foreign-key declaration (singular: at most one target
// row); reverse hops follow the fan-out of rows declaring a foreign key
// back to the current table (aggregate: possibly many rows).
type Join struct {
	Alias      string // x_i
	Table      string
	FromAlias  string // x_{i-1}
	FKVariable string
	Reverse    bool
}

// Predicate binds a fresh variable to one condition atom, evaluated over
// the row(s) reached at Alias.
type Predicate struct {
	Alias   string // x_i, the atom's table alias
	Binding string // y_j or z_k (aggregate atoms use the z_ prefix)
	Text    string // expr.Print of the atom itself
}

// Query is the neutral form of §4.10/§6: MATCH path + WHERE/AGG bindings.
type Query struct {
	Anchor     string
	Joins      []Join
	Where      []Predicate
	Aggregates []Predicate
	Returns    []string
}

// String renders the SQL/Cypher-flavored pseudosyntax of §6. The exact
// grammar is not prescribed by the spec beyond "SQL-like"; a concrete
// Graph Source is free to interpret the Query struct directly instead of
// parsing this string — it exists for logging and for backends that do
// want a textual query.
func (q *Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (x_0:%s)", sqlutil.QuoteIdentifier(q.Anchor))
	for _, j := range q.Joins {
		if j.Reverse {
			fmt.Fprintf(&b, " <-[:%s]- (%s:%s)", sqlutil.QuoteIdentifier(j.FKVariable), j.Alias, sqlutil.QuoteIdentifier(j.Table))
		} else {
			fmt.Fprintf(&b, " -[:%s]-> (%s:%s)", sqlutil.QuoteIdentifier(j.FKVariable), j.Alias, sqlutil.QuoteIdentifier(j.Table))
		}
	}
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		parts := make([]string, len(q.Where))
		for i, w := range q.Where {
			parts[i] = fmt.Sprintf("%s AS %s: %s", w.Alias, w.Binding, w.Text)
		}
		b.WriteString(strings.Join(parts, " AND "))
	}
	for _, a := range q.Aggregates {
		fmt.Fprintf(&b, " AGG %s = %s AS %s", a.Alias, a.Text, a.Binding)
	}
	b.WriteString(" RETURN ")
	b.WriteString(strings.Join(q.Returns, ", "))
	return b.String()
}

// Compile walks gs.Condition, assigns a path alias to every distinct
// table the condition references (forward/singular for a plain atom,
// reverse/aggregate for an AggregateAtom), and returns the resulting
// neutral Query. l must already contain GroupTable and every table named
// by an atom in the condition.
func Compile(gs GroupSelector, l *lattice.Lattice) (*Query, error) {
	atoms := collectAtoms(gs.Condition)

	q := &Query{
		Anchor:  gs.GroupTable,
		Returns: []string{"x_0"},
	}

	aliasOf := map[string]string{gs.GroupTable: "x_0"}
	nextAlias := 1
	var wCount, zCount int

	for _, a := range atoms {
		table, isAggregate := atomTable(a)
		alias, ok := aliasOf[table]
		if !ok {
			dir := l.Forward
			if isAggregate {
				dir = l.Reverse
			}
			path, ok := l.ShortestPath(gs.GroupTable, table, dir)
			if !ok {
				return nil, fmt.Errorf("groupselect: %s: table %q is not reachable from %q via the required traversal direction", gs.GroupName, table, gs.GroupTable)
			}
			alias = appendJoins(q, &aliasOf, &nextAlias, l, path, isAggregate)
		}

		if isAggregate {
			zCount++
			q.Aggregates = append(q.Aggregates, Predicate{Alias: alias, Binding: fmt.Sprintf("z_%d", zCount), Text: expr.Print(a)})
		} else {
			wCount++
			q.Where = append(q.Where, Predicate{Alias: alias, Binding: fmt.Sprintf("y_%d", wCount), Text: expr.Print(a)})
		}
	}

	return q, nil
}

// appendJoins materializes every unseen table along path as a Join,
// updating aliasOf, and returns the alias assigned to path's last table.
func appendJoins(q *Query, aliasOf *map[string]string, nextAlias *int, l *lattice.Lattice, path []string, reverse bool) string {
	alias := (*aliasOf)[path[0]]
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		if a, ok := (*aliasOf)[to]; ok {
			alias = a
			continue
		}
		alias = "x_" + strconv.Itoa(*nextAlias)
		*nextAlias++

		var fkVar string
		if reverse {
			fkVar, _ = l.EdgeVariable(to, from)
		} else {
			fkVar, _ = l.EdgeVariable(from, to)
		}
		q.Joins = append(q.Joins, Join{Alias: alias, Table: to, FromAlias: (*aliasOf)[from], FKVariable: fkVar, Reverse: reverse})
		(*aliasOf)[to] = alias
	}
	return alias
}

func atomTable(e expr.Expr) (table string, isAggregate bool) {
	switch a := e.(type) {
	case *expr.StringAtom:
		return a.Table, false
	case *expr.MetricAtom:
		return a.Table, false
	case *expr.InListAtom:
		return a.Table, false
	case *expr.AggregateAtom:
		return a.Table, true
	default:
		return "", false
	}
}

// collectAtoms flattens a condition into its leaf atoms, in the textual
// left-to-right order they appear (AlwaysTrue contributes nothing).
func collectAtoms(e expr.Expr) []expr.Expr {
	switch v := e.(type) {
	case expr.AlwaysTrue:
		return nil
	case *expr.Not:
		return collectAtoms(v.Expr)
	case *expr.And:
		var out []expr.Expr
		for _, sub := range v.Exprs {
			out = append(out, collectAtoms(sub)...)
		}
		return out
	case *expr.Or:
		var out []expr.Expr
		for _, sub := range v.Exprs {
			out = append(out, collectAtoms(sub)...)
		}
		return out
	default:
		return []expr.Expr{e}
	}
}
