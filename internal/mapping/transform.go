package mapping

import (
	"context"
	"fmt"

	"github.com/dbsmedya/goxplore/internal/conclusion"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/dbsmedya/goxplore/internal/sourceagg"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// Discarder is implemented by a rowio.Sink that can drop a table's
// pending buffer without committing it — the recovery path the
// Transformer uses to honor the per-table atomic-write guarantee of
// §7: a failure mid-table leaves that table empty, never partially
// written, and never taints a table already committed.
type Discarder interface {
	Discard(table string)
}

// emittedRow remembers, for one already-produced target row, the
// source row family it was built from — so an Inherited child table
// can resolve its own conditions/conclusions against the same root as
// its parent, and so it can read the parent's allocated PK for its
// synthesized inheritance foreign key.
type emittedRow struct {
	targetPK  string
	rootTable string
	rootRow   rowio.Row
}

// Transformer executes a complete Mapping against a loaded source
// Dataset, writing target rows to sink (§4.8's Transformation
// procedure).
type Transformer struct {
	mapping *Mapping
	ds      *sourceagg.Dataset
	sink    rowio.Sink

	emitted map[string][]emittedRow
}

// NewTransformer builds a Transformer. ds must have been built over
// mapping.Source.
func NewTransformer(mapping *Mapping, ds *sourceagg.Dataset, sink rowio.Sink) *Transformer {
	return &Transformer{mapping: mapping, ds: ds, sink: sink, emitted: make(map[string][]emittedRow)}
}

// Run transforms every target table in topological order over target
// inheritance, so an Inherited table is always processed after its
// parent.
func (t *Transformer) Run(ctx context.Context) error {
	order, err := t.topologicalOrder()
	if err != nil {
		return err
	}
	for _, tableName := range order {
		if err := t.transformTable(ctx, tableName); err != nil {
			if d, ok := t.sink.(Discarder); ok {
				d.Discard(tableName)
			}
			return fmt.Errorf("mapping: transforming table %q: %w", tableName, err)
		}
		if err := t.sink.Close(tableName); err != nil {
			return fmt.Errorf("mapping: committing table %q: %w", tableName, err)
		}
	}
	return nil
}

func (t *Transformer) topologicalOrder() ([]string, error) {
	tables := t.mapping.TargetTables()
	depends := make(map[string]string) // table -> parent (Inherited only)
	for _, table := range tables {
		tm, _ := t.mapping.TableMapping(table)
		if tm.Kind == Inherited {
			depends[table] = tm.InheritFrom
		}
	}
	var order []string
	visiting := make(map[string]int) // 0=unvisited 1=in-progress 2=done
	var visit func(string) error
	visit = func(table string) error {
		switch visiting[table] {
		case 2:
			return nil
		case 1:
			return &xplerr.ValidationError{Table: table, Msg: "inheritance cycle detected"}
		}
		visiting[table] = 1
		if parent, ok := depends[table]; ok {
			if err := visit(parent); err != nil {
				return err
			}
		}
		visiting[table] = 2
		order = append(order, table)
		return nil
	}
	for _, table := range tables {
		if err := visit(table); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (t *Transformer) transformTable(ctx context.Context, tableName string) error {
	tm, _ := t.mapping.TableMapping(tableName)
	table, _ := t.mapping.Target.Table(tableName)
	varMaps := t.mapping.variableMappings[tableName]
	inheritFK, _ := t.mapping.InheritanceForeignKey(tableName)

	requirements := collectRequirements(tm, varMaps)
	resolver := sourceagg.NewResolver(t.ds, requirements)

	var produced []emittedRow

	switch tm.Kind {
	case OneToOne:
		src := tm.SourceTables[0]
		idx := t.ds.Tables[src]
		pkVar, _ := idx.PrimaryKeyVariable()
		for _, srcRow := range idx.Rows() {
			line, err := resolver.Resolve(ctx, src, srcRow)
			if err != nil {
				return err
			}
			ok, err := expr.Eval(tm.Condition, line)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			pkValue := srcRow[pkVar]
			row, err := buildRow(table, pkValue, line, varMaps, inheritFK)
			if err != nil {
				return err
			}
			if err := t.sink.Write(ctx, tableName, row); err != nil {
				return err
			}
			produced = append(produced, emittedRow{targetPK: pkValue, rootTable: src, rootRow: srcRow})
		}

	case Merge:
		keys, perSource := t.mergeDrivingKeys(tm.SourceTables)
		for _, k := range keys {
			var line *sourceagg.SourceDataLine
			var rootTable string
			var rootRow rowio.Row
			for _, src := range tm.SourceTables {
				srcRow, ok := perSource[src][k]
				if !ok {
					continue
				}
				if rootRow == nil {
					rootTable, rootRow = src, srcRow
				}
				partial, err := resolver.Resolve(ctx, src, srcRow)
				if err != nil {
					return err
				}
				if line == nil {
					line = partial
				} else if err := line.Merge(partial); err != nil {
					return err
				}
			}
			if line == nil {
				continue
			}
			ok, err := expr.Eval(tm.Condition, line)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			row, err := buildRow(table, k, line, varMaps, inheritFK)
			if err != nil {
				return err
			}
			if err := t.sink.Write(ctx, tableName, row); err != nil {
				return err
			}
			produced = append(produced, emittedRow{targetPK: k, rootTable: rootTable, rootRow: rootRow})
		}

	case Concatenate:
		allocator := 0
		for _, src := range tm.SourceTables {
			idx := t.ds.Tables[src]
			for _, srcRow := range idx.Rows() {
				line, err := resolver.Resolve(ctx, src, srcRow)
				if err != nil {
					return err
				}
				ok, err := expr.Eval(tm.Condition, line)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				pkValue := fmt.Sprintf("%d", allocator)
				allocator++
				row, err := buildRow(table, pkValue, line, varMaps, inheritFK)
				if err != nil {
					return err
				}
				if err := t.sink.Write(ctx, tableName, row); err != nil {
					return err
				}
				produced = append(produced, emittedRow{targetPK: pkValue, rootTable: src, rootRow: srcRow})
			}
		}

	case Inherited:
		allocator := 0
		for _, parentRow := range t.emitted[tm.InheritFrom] {
			line, err := resolver.Resolve(ctx, parentRow.rootTable, parentRow.rootRow)
			if err != nil {
				return err
			}
			ok, err := expr.Eval(tm.Condition, line)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			pkValue := fmt.Sprintf("%d", allocator)
			allocator++
			row, err := buildRow(table, pkValue, line, varMaps, inheritFK)
			if err != nil {
				return err
			}
			if inheritFK != "" {
				row[inheritFK] = parentRow.targetPK
			}
			if err := t.sink.Write(ctx, tableName, row); err != nil {
				return err
			}
			produced = append(produced, emittedRow{targetPK: pkValue, rootTable: parentRow.rootTable, rootRow: parentRow.rootRow})
		}
	}

	t.emitted[tableName] = produced
	return nil
}

// mergeDrivingKeys computes the set of target PK values a Merge table
// mapping produces rows for, ordered by the first source table's row
// order, with any keys unique to later source tables appended in the
// order they are first encountered (§5's "Merge preserves the order of
// the first source table").
func (t *Transformer) mergeDrivingKeys(sourceTables []string) ([]string, map[string]map[string]rowio.Row) {
	perSource := make(map[string]map[string]rowio.Row, len(sourceTables))
	var keys []string
	seen := make(map[string]bool)
	for i, src := range sourceTables {
		idx := t.ds.Tables[src]
		pkVar, _ := idx.PrimaryKeyVariable()
		byKey := make(map[string]rowio.Row)
		for _, row := range idx.Rows() {
			k := row[pkVar]
			if _, exists := byKey[k]; !exists {
				byKey[k] = row
			}
			if i == 0 && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		perSource[src] = byKey
	}
	for _, src := range sourceTables[1:] {
		for _, row := range t.ds.Tables[src].Rows() {
			pkVar, _ := t.ds.Tables[src].PrimaryKeyVariable()
			k := row[pkVar]
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys, perSource
}

// buildRow evaluates every non-primary, non-inheritance-FK target
// variable's case list against line, writing the first matching case's
// conclusion value (or an empty cell if none match or the conclusion
// is unset).
func buildRow(table *metadata.TableInfo, pkValue string, line expr.Context, varMaps map[string]*VariableMapping, inheritFK string) (rowio.Row, error) {
	row := make(rowio.Row)
	hasPK := table.PrimaryKey != nil
	var pkVarName string
	if hasPK {
		pkVarName = *table.PrimaryKey
		row[pkVarName] = pkValue
	}
	for _, varName := range table.VariableNames() {
		if hasPK && varName == pkVarName {
			continue
		}
		if varName == inheritFK {
			row[varName] = ""
			continue
		}
		vm, ok := varMaps[varName]
		if !ok {
			row[varName] = ""
			continue
		}
		value, err := evaluateCases(vm, line)
		if err != nil {
			return nil, err
		}
		row[varName] = value
	}
	return row, nil
}

// evaluateCases walks a variable mapping's ordered case list, returning
// the first matching case's conclusion value. A case whose condition
// never matches, or whose matching conclusion evaluates unset, yields
// an empty cell (§7: a value that cannot be produced is a missing
// cell, never a hard error).
func evaluateCases(vm *VariableMapping, line expr.Context) (string, error) {
	for _, c := range vm.Cases {
		ok, err := expr.Eval(c.Condition, line)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		res, err := conclusion.Evaluate(c.Conclusion, line)
		if err != nil {
			return "", err
		}
		if res.Unset {
			return "", nil
		}
		return res.Value.Raw(), nil
	}
	return "", nil
}
