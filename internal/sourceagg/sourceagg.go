// Package sourceagg is the source-data aggregator (§4.7): for each
// target row, it computes the required single-value look-ups and
// multi-row aggregations across the source lattice.
//
// This is a heavy adaptation of the teacher's archiver/discovery.go:
// the same queue-based breadth-first traversal of a table graph from a
// set of root primary keys, generalized from "discover every
// descendant record of one archive root" to "resolve singular and
// aggregated values needed by a mapping's conditions and conclusions".
// Singular look-ups walk Lattice.Forward (a row's own foreign-key
// chain: deterministic, at most one row per hop); aggregated look-ups
// walk Lattice.Reverse (the fan-out of rows that reference this one).
package sourceagg

import (
	"context"
	"fmt"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/lattice"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// TableIndex is a pre-loaded table's rows, indexed by primary-key raw
// string and by foreign-key value for reverse traversal.
type TableIndex struct {
	Table   *metadata.TableInfo
	ByPK    map[string]rowio.Row
	rowList []rowio.Row
	// byFK[fkVariable][targetPKValue] -> rows in this table whose fkVariable equals targetPKValue
	byFK map[string]map[string][]rowio.Row
}

// BuildTableIndex loads every row of table from rows, indexing it by
// primary key and by each declared foreign key.
func BuildTableIndex(table *metadata.TableInfo, rows []rowio.Row) (*TableIndex, error) {
	idx := &TableIndex{
		Table:   table,
		ByPK:    make(map[string]rowio.Row),
		rowList: rows,
		byFK:    make(map[string]map[string][]rowio.Row),
	}
	for _, fk := range table.ForeignKeys.Keys() {
		idx.byFK[fk] = make(map[string][]rowio.Row)
	}
	for _, row := range rows {
		if table.PrimaryKey != nil {
			pkVal, ok := row[*table.PrimaryKey]
			if ok {
				idx.ByPK[pkVal] = row
			}
		}
		for _, fk := range table.ForeignKeys.Keys() {
			idx.byFK[fk][row[fk]] = append(idx.byFK[fk][row[fk]], row)
		}
	}
	return idx, nil
}

// Rows returns every row loaded for this table, in load order.
func (idx *TableIndex) Rows() []rowio.Row { return idx.rowList }

// PrimaryKeyVariable returns the table's primary-key variable name, if
// declared.
func (idx *TableIndex) PrimaryKeyVariable() (string, bool) {
	if idx.Table.PrimaryKey == nil {
		return "", false
	}
	return *idx.Table.PrimaryKey, true
}

// Dataset is the full set of loaded source tables, ready for
// traversal.
type Dataset struct {
	MetaData *metadata.MetaData
	Lattice  *lattice.Lattice
	Tables   map[string]*TableIndex
}

// NewDataset indexes every table named in md against the rows supplied
// via loader (one call per table).
func NewDataset(md *metadata.MetaData, loader func(table string) ([]rowio.Row, error)) (*Dataset, error) {
	lat, err := lattice.Build(md)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{MetaData: md, Lattice: lat, Tables: make(map[string]*TableIndex)}
	for _, name := range md.TableNames() {
		table, _ := md.Table(name)
		rows, err := loader(name)
		if err != nil {
			return nil, fmt.Errorf("sourceagg: loading table %q: %w", name, err)
		}
		idx, err := BuildTableIndex(table, rows)
		if err != nil {
			return nil, err
		}
		ds.Tables[name] = idx
	}
	return ds, nil
}

// Requirement names a single-value lookup or an aggregated reduction a
// mapping's conditions/conclusions need resolved for one row family.
type Requirement struct {
	Table      string
	Variable   string
	DataType   metadata.DataType
	Aggregator *aggregate.Type // nil for a singular (Forward) requirement
}

// aggKey returns the map key Requirement is stored under in a SourceDataLine's
// aggregated results.
func (r Requirement) aggKey() string {
	agg := ""
	if r.Aggregator != nil {
		agg = r.Aggregator.String()
	}
	return r.Table + "\x00" + r.Variable + "\x00" + r.DataType.String() + "\x00" + agg
}

// SourceDataLine is the combined singular + aggregated evidence for one
// target row's worth of source data (§4.7).
type SourceDataLine struct {
	singular map[string]string                  // "table\x00variable" -> raw
	agg      map[string]aggregate.Result         // Requirement.aggKey() -> Result
}

func newSourceDataLine() *SourceDataLine {
	return &SourceDataLine{singular: make(map[string]string), agg: make(map[string]aggregate.Result)}
}

// Singular implements expr.Context / conclusion evaluation.
func (l *SourceDataLine) Singular(table, variable string) (string, bool) {
	v, ok := l.singular[table+"\x00"+variable]
	return v, ok
}

// Aggregate implements expr.Context / conclusion evaluation.
func (l *SourceDataLine) Aggregate(table, variable string, dt metadata.DataType, agg aggregate.Type) (aggregate.Result, bool) {
	v, ok := l.agg[(Requirement{Table: table, Variable: variable, DataType: dt, Aggregator: &agg}).aggKey()]
	return v, ok
}

// Merge combines two partial SourceDataLine values, failing if both
// assign a conflicting non-empty singular value for the same key
// (§4.7: "conflicting non-null values for the same key are a hard
// error"). Used by a Merge table mapping to combine the row families
// resolved independently from each of its source tables.
func (l *SourceDataLine) Merge(o *SourceDataLine) error {
	for k, v := range o.singular {
		if existing, ok := l.singular[k]; ok && existing != v {
			return fmt.Errorf("sourceagg: conflicting singular values for %q: %q vs %q", k, existing, v)
		}
		l.singular[k] = v
	}
	for k, v := range o.agg {
		if existing, ok := l.agg[k]; ok {
			if !existing.Unset && !v.Unset && !existing.Value.Equal(v.Value) {
				return fmt.Errorf("sourceagg: conflicting aggregate values for key %q", k)
			}
		}
		l.agg[k] = v
	}
	return nil
}

// Resolver computes SourceDataLine values for rows of a minimal root
// table, given the Requirements a mapping needs resolved.
type Resolver struct {
	ds           *Dataset
	requirements []Requirement
}

// NewResolver builds a Resolver over ds for the given requirements.
func NewResolver(ds *Dataset, requirements []Requirement) *Resolver {
	return &Resolver{ds: ds, requirements: requirements}
}

// Resolve computes the SourceDataLine for one row of rootTable.
func (r *Resolver) Resolve(ctx context.Context, rootTable string, row rowio.Row) (*SourceDataLine, error) {
	select {
	case <-ctx.Done():
		return nil, xplerr.ErrCancelled
	default:
	}
	line := newSourceDataLine()
	for _, req := range r.requirements {
		if req.Aggregator == nil {
			if err := r.resolveSingular(ctx, rootTable, row, req, line); err != nil {
				return nil, err
			}
		} else {
			if err := r.resolveAggregate(ctx, rootTable, row, req, line); err != nil {
				return nil, err
			}
		}
	}
	return line, nil
}

// resolveSingular walks Forward edges (this row's own foreign-key
// chain) to find the unique row of req.Table reachable from row, and
// records its raw cell value.
func (r *Resolver) resolveSingular(ctx context.Context, table string, row rowio.Row, req Requirement, line *SourceDataLine) error {
	cur, curTable := row, table
	visited := map[string]bool{table: true}
	for curTable != req.Table {
		next, nextTable, found := r.stepForward(curTable, cur)
		if !found {
			return nil // unreachable for this row family: leave unset
		}
		if visited[nextTable] {
			return fmt.Errorf("sourceagg: cycle detected resolving singular value for table %q", req.Table)
		}
		visited[nextTable] = true
		cur, curTable = next, nextTable
	}
	raw, ok := cur[req.Variable]
	if !ok {
		return &xplerr.SchemaError{Table: req.Table, Variable: req.Variable, Msg: "column absent from row"}
	}
	line.singular[req.Table+"\x00"+req.Variable] = raw
	return nil
}

// stepForward finds the single row one forward (FK-declaration) hop
// away from row in curTable, trying curTable's foreign keys in declaration
// order and following the first one whose referenced row exists; it does
// not consider which table the walk came from (resolveSingular's visited
// set rejects a revisited table). Real mappings
// have at most one foreign-key hop per pair of adjacent lattice tables
// on any given descent, so the first match is authoritative.
func (r *Resolver) stepForward(curTable string, row rowio.Row) (rowio.Row, string, bool) {
	table, ok := r.ds.MetaData.Table(curTable)
	if !ok {
		return nil, "", false
	}
	for _, fk := range table.ForeignKeys.Keys() {
		refTable, _ := table.ForeignKeys.Get(fk)
		target := r.ds.Tables[refTable]
		if target == nil {
			continue
		}
		if refRow, ok := target.ByPK[row[fk]]; ok {
			return refRow, refTable, true
		}
	}
	return nil, "", false
}

// resolveAggregate walks Reverse edges (rows that declare a foreign key
// back to the current one) in breadth-first order — the same
// queue-based traversal shape as the teacher's discovery BFS — and
// feeds every encountered req.Table/req.Variable value into the
// aggregator.
func (r *Resolver) resolveAggregate(ctx context.Context, rootTable string, row rowio.Row, req Requirement, line *SourceDataLine) error {
	type frontier struct {
		table string
		row   rowio.Row
	}
	queue := []frontier{{table: rootTable, row: row}}
	var values []metadata.Value

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return xplerr.ErrCancelled
		default:
		}
		cur := queue[0]
		queue = queue[1:]

		if cur.table == req.Table {
			if raw, ok := cur.row[req.Variable]; ok {
				if v, castOK := metadata.Cast(raw, req.DataType); castOK {
					values = append(values, v)
				}
			}
		}

		for _, childTable := range r.ds.Lattice.Reverse(cur.table) {
			childIdx := r.ds.Tables[childTable]
			if childIdx == nil {
				continue
			}
			childMeta, _ := r.ds.MetaData.Table(childTable)
			for _, fk := range childMeta.ForeignKeys.Keys() {
				refTable, _ := childMeta.ForeignKeys.Get(fk)
				if refTable != cur.table {
					continue
				}
				pkVar := r.ds.Tables[cur.table].Table.PrimaryKey
				if pkVar == nil {
					continue
				}
				pkVal := cur.row[*pkVar]
				for _, childRow := range childIdx.byFK[fk][pkVal] {
					queue = append(queue, frontier{table: childTable, row: childRow})
				}
			}
		}
	}

	res, err := aggregate.Apply(*req.Aggregator, req.DataType, values)
	if err != nil {
		return err
	}
	line.agg[req.aggKey()] = res
	return nil
}
