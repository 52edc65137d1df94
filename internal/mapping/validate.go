package mapping

import (
	"fmt"

	"github.com/dbsmedya/goxplore/internal/lattice"
	"github.com/dbsmedya/goxplore/internal/metadata"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// Validate performs the construction-time checks of §4.8:
//   - every target PK has PrimaryKey type (already enforced by metadata,
//     re-checked here since a Mapping may be built from a hand-assembled
//     target MetaData);
//   - every declared FK variable matches another target table's PK type;
//   - a target variable used as an inheritance FK must not also carry
//     its own variable mapping;
//   - every table mapping's source tables exist in Source.
//
// All problems found are returned together as xplerr.ValidationErrors,
// not just the first.
func (m *Mapping) Validate() error {
	var errs xplerr.ValidationErrors

	for _, tableName := range m.Target.TableNames() {
		table, _ := m.Target.Table(tableName)
		if table.PrimaryKey != nil {
			pk, ok := table.Variable(*table.PrimaryKey)
			if ok && pk.VariableType != metadata.PrimaryKey {
				errs = append(errs, &xplerr.ValidationError{
					Table: tableName, Variable: *table.PrimaryKey,
					Msg: "target primary key variable does not have VariableType PrimaryKey",
				})
			}
		}
		for _, fkVar := range table.ForeignKeys.Keys() {
			refTableName, _ := table.ForeignKeys.Get(fkVar)
			refTable, ok := m.Target.Table(refTableName)
			if !ok {
				errs = append(errs, &xplerr.ValidationError{
					Table: tableName, Variable: fkVar,
					Msg: fmt.Sprintf("foreign key references unknown target table %q", refTableName),
				})
				continue
			}
			if refTable.PrimaryKey == nil {
				errs = append(errs, &xplerr.ValidationError{
					Table: tableName, Variable: fkVar,
					Msg: fmt.Sprintf("referenced target table %q has no primary key", refTableName),
				})
				continue
			}
			fkInfo, _ := table.Variable(fkVar)
			pkInfo, _ := refTable.Variable(*refTable.PrimaryKey)
			if fkInfo != nil && pkInfo != nil && fkInfo.DataType != pkInfo.DataType {
				errs = append(errs, &xplerr.ValidationError{
					Table: tableName, Variable: fkVar,
					Msg: fmt.Sprintf("foreign key data type %s does not match referenced primary key data type %s", fkInfo.DataType, pkInfo.DataType),
				})
			}
		}

		if fkVar, ok := m.inheritanceFK[tableName]; ok {
			if _, hasMapping := m.VariableMapping(tableName, fkVar); hasMapping {
				errs = append(errs, &xplerr.ValidationError{
					Table: tableName, Variable: fkVar,
					Msg: "a target variable used as an inheritance foreign key must not also have a variable mapping",
				})
			}
		}
	}

	for targetTable, tm := range m.tableMappings {
		for _, src := range tm.SourceTables {
			if _, ok := m.Source.Table(src); !ok {
				errs = append(errs, &xplerr.ValidationError{
					Table: targetTable,
					Msg:   fmt.Sprintf("table mapping references unknown source table %q", src),
				})
			}
		}
		if tm.Kind == Inherited {
			if _, ok := m.tableMappings[tm.InheritFrom]; !ok {
				errs = append(errs, &xplerr.ValidationError{
					Table: targetTable,
					Msg:   fmt.Sprintf("Inherited table mapping references target table %q with no table mapping of its own", tm.InheritFrom),
				})
			}
		}
	}

	if err := m.validateReachability(); err != nil {
		if ve, ok := err.(xplerr.ValidationErrors); ok {
			errs = append(errs, ve...)
		} else if ve, ok := err.(*xplerr.ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateReachability checks that every source table referenced by a
// condition or conclusion is reachable from the owning target table's
// source table(s) via the source lattice.
func (m *Mapping) validateReachability() error {
	lat, err := lattice.Build(m.Source)
	if err != nil {
		return &xplerr.ValidationError{Msg: fmt.Sprintf("building source lattice: %v", err)}
	}

	var errs xplerr.ValidationErrors
	for targetTable, tm := range m.tableMappings {
		if tm.Kind == Inherited {
			continue
		}
		reachable := make(map[string]bool)
		for _, root := range tm.SourceTables {
			reachable[root] = true
			for _, d := range forwardClosure(lat, root) {
				reachable[d] = true
			}
			for _, a := range reverseClosure(lat, root) {
				reachable[a] = true
			}
		}
		byVar := m.variableMappings[targetTable]
		for varName, vm := range byVar {
			for _, c := range vm.Cases {
				for _, tbl := range referencedTables(c.Condition, c.Conclusion) {
					if !reachable[tbl] {
						errs = append(errs, &xplerr.ValidationError{
							Table: targetTable, Variable: varName,
							Msg: fmt.Sprintf("case references source table %q not reachable from %v", tbl, tm.SourceTables),
						})
					}
				}
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func forwardClosure(lat *lattice.Lattice, root string) []string {
	seen := map[string]bool{}
	queue := []string{root}
	var out []string
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, c := range lat.Forward(t) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
				queue = append(queue, c)
			}
		}
	}
	return out
}

func reverseClosure(lat *lattice.Lattice, root string) []string {
	seen := map[string]bool{}
	queue := []string{root}
	var out []string
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, p := range lat.Reverse(t) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
				queue = append(queue, p)
			}
		}
	}
	return out
}

// Complete reports whether every target table has an assigned
// TableMapping and every non-PK, non-inherited-FK target variable has
// a VariableMapping with at least one case (§4.8).
func (m *Mapping) Complete() bool {
	for _, tableName := range m.Target.TableNames() {
		if _, ok := m.tableMappings[tableName]; !ok {
			return false
		}
		table, _ := m.Target.Table(tableName)
		inheritFK := m.inheritanceFK[tableName]
		for _, varName := range table.VariableNames() {
			if table.PrimaryKey != nil && varName == *table.PrimaryKey {
				continue
			}
			if varName == inheritFK {
				continue
			}
			vm, ok := m.VariableMapping(tableName, varName)
			if !ok || len(vm.Cases) == 0 {
				return false
			}
		}
	}
	return true
}
