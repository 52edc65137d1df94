// Package lattice builds and walks the directed acyclic graph induced over
// a MetaData's tables by their foreign-key declarations (§4.1).
//
// Edge direction follows the spec literally: an edge parent -> child
// exists iff table parent declares a foreign-key variable referencing
// child's primary key. This is the FK-declaration direction, not the
// conventional "master references nothing, detail references master" ER
// direction — a table with many foreign keys of its own has many outgoing
// edges regardless of how many other tables reference it in turn. See
// DESIGN.md for the Open Question this resolves.
//
// This package is a generalization of the teacher's internal/graph
// package: the same adjacency-map-plus-side-table shape (here: forward,
// reverse, and per-edge metadata), the same Kahn-flavored BFS idiom, but
// over an arbitrary DAG instead of a single-root tree.
package lattice

import (
	"fmt"
	"sort"

	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Edge is a (parent, child) pair: parent declares the FK, child owns the
// referenced primary key.
type Edge struct {
	Parent string
	Child  string
}

// FKEdge carries the metadata attached to one lattice edge.
type FKEdge struct {
	Variable string // FK variable name in Parent
}

// Lattice is the DAG of tables induced by foreign keys.
type Lattice struct {
	tables  map[string]bool
	forward map[string][]string // parent -> children
	reverse map[string][]string // child -> parents
	edges   map[Edge]*FKEdge
}

// Build constructs a Lattice from a MetaData instance.
func Build(md *metadata.MetaData) (*Lattice, error) {
	l := &Lattice{
		tables:  make(map[string]bool),
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
		edges:   make(map[Edge]*FKEdge),
	}
	for _, name := range md.TableNames() {
		l.tables[name] = true
	}
	for _, name := range md.TableNames() {
		table, _ := md.Table(name)
		for _, fkVar := range table.ForeignKeys.Keys() {
			refTable, _ := table.ForeignKeys.Get(fkVar)
			if !l.tables[refTable] {
				return nil, fmt.Errorf("table %q: foreign key %q references unknown table %q", name, fkVar, refTable)
			}
			l.addEdge(name, refTable, fkVar)
		}
	}
	return l, nil
}

func (l *Lattice) addEdge(parent, child, fkVar string) {
	e := Edge{Parent: parent, Child: child}
	if _, exists := l.edges[e]; exists {
		return
	}
	l.forward[parent] = append(l.forward[parent], child)
	l.reverse[child] = append(l.reverse[child], parent)
	l.edges[e] = &FKEdge{Variable: fkVar}
}

// Tables returns all table names known to the lattice, sorted for
// deterministic iteration.
func (l *Lattice) Tables() []string {
	out := make([]string, 0, len(l.tables))
	for t := range l.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Forward returns the tables a given table declares a foreign key to.
func (l *Lattice) Forward(table string) []string { return append([]string(nil), l.forward[table]...) }

// Reverse returns the tables that declare a foreign key to the given table.
func (l *Lattice) Reverse(table string) []string { return append([]string(nil), l.reverse[table]...) }

// EdgeVariable returns the foreign-key variable name (in parent) that
// makes up the parent->child edge, if one exists.
func (l *Lattice) EdgeVariable(parent, child string) (string, bool) {
	e, ok := l.edges[Edge{Parent: parent, Child: child}]
	if !ok {
		return "", false
	}
	return e.Variable, true
}

// ShortestPath finds the shortest sequence of tables from `from` to `to`
// following dir (l.Forward or l.Reverse), via BFS with parent pointers.
// Shared by internal/groupselect (compiling a condition's table joins)
// and internal/graphio (walking a persisted graph the same way at query
// time).
func (l *Lattice) ShortestPath(from, to string, dir func(string) []string) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range dir(cur) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			if next == to {
				return buildPath(parent, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func buildPath(parent map[string]string, from, to string) []string {
	var rev []string
	for cur := to; ; {
		rev = append(rev, cur)
		if cur == from {
			break
		}
		cur = parent[cur]
	}
	path := make([]string, len(rev))
	for i, t := range rev {
		path[len(rev)-1-i] = t
	}
	return path
}

// Minimal returns tables with no incoming edges: nothing declares a
// foreign key referencing them.
func (l *Lattice) Minimal() []string {
	var out []string
	for _, t := range l.Tables() {
		if len(l.reverse[t]) == 0 {
			out = append(out, t)
		}
	}
	return out
}

// Maximal returns tables with no outgoing edges: they declare no foreign
// keys of their own.
func (l *Lattice) Maximal() []string {
	var out []string
	for _, t := range l.Tables() {
		if len(l.forward[t]) == 0 {
			out = append(out, t)
		}
	}
	return out
}

// bfs walks `next` from every seed, returning the set of all nodes
// reached (including the seeds). When restrict is non-nil, a neighbour is
// entered only if it is in restrict (restrictIsWhitelist) or only if it is
// not (otherwise).
func bfs(seeds []string, next map[string][]string, restrict map[string]bool, restrictIsWhitelist bool) map[string]bool {
	reached := make(map[string]bool)
	queue := append([]string(nil), seeds...)
	for _, s := range seeds {
		reached[s] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range next[cur] {
			if restrict != nil {
				if restrictIsWhitelist && !restrict[nb] {
					continue
				}
				if !restrictIsWhitelist && restrict[nb] {
					continue
				}
			}
			if !reached[nb] {
				reached[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return reached
}

// SubLatticeOptions restricts a descendant/ancestor sub-lattice extraction
// to a whitelist or a blacklist of table names (mutually exclusive).
type SubLatticeOptions struct {
	Whitelist []string
	Blacklist []string
}

func (o SubLatticeOptions) asRestrict() (map[string]bool, bool) {
	if len(o.Whitelist) > 0 {
		m := make(map[string]bool, len(o.Whitelist))
		for _, t := range o.Whitelist {
			m[t] = true
		}
		return m, true
	}
	if len(o.Blacklist) > 0 {
		m := make(map[string]bool, len(o.Blacklist))
		for _, t := range o.Blacklist {
			m[t] = true
		}
		return m, false
	}
	return nil, false
}

// checkNoSeedIsDescendantOfAnother fails if BFS-from-a-single-seed (along
// `next`) reaches any other seed.
func checkNoSeedIsDescendantOfAnother(seeds []string, next map[string][]string) error {
	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seedSet[s] = true
	}
	for _, s := range seeds {
		reached := bfs([]string{s}, next, nil, false)
		for other := range seedSet {
			if other == s {
				continue
			}
			if reached[other] {
				return fmt.Errorf("seed table %q is itself reachable from seed table %q", other, s)
			}
		}
	}
	return nil
}

// DescendantSubLattice performs a breadth-first descent from a set S of
// minimal seeds along forward (FK-declaration) edges, restricted to a
// whitelist or blacklist. It fails if any required table (named in a
// whitelist) is not reached, or if any element of S is itself reachable
// from another element of S.
func (l *Lattice) DescendantSubLattice(seeds []string, opts SubLatticeOptions) ([]string, error) {
	if err := checkNoSeedIsDescendantOfAnother(seeds, l.forward); err != nil {
		return nil, err
	}
	restrict, isWhitelist := opts.asRestrict()
	reached := bfs(seeds, l.forward, restrict, isWhitelist)
	if isWhitelist {
		for t := range restrict {
			if !reached[t] {
				return nil, fmt.Errorf("required table %q is not reachable (descendant) from seeds %v", t, seeds)
			}
		}
	}
	return sortedKeys(reached), nil
}

// AncestorSubLattice is the dual of DescendantSubLattice: it walks reverse
// (FK-referenced-by) edges from a set of seeds toward a set of required
// ancestor tables.
func (l *Lattice) AncestorSubLattice(seeds []string, opts SubLatticeOptions) ([]string, error) {
	if err := checkNoSeedIsDescendantOfAnother(seeds, l.reverse); err != nil {
		return nil, err
	}
	restrict, isWhitelist := opts.asRestrict()
	reached := bfs(seeds, l.reverse, restrict, isWhitelist)
	if isWhitelist {
		for t := range restrict {
			if !reached[t] {
				return nil, fmt.Errorf("required table %q is not reachable (ancestor) from seeds %v", t, seeds)
			}
		}
	}
	return sortedKeys(reached), nil
}

// MultiReferenced reports which tables in a sub-lattice are reached via two
// distinct descent paths from any single minimal seed — a hint that an
// aggregation over them could double-count rows.
func (l *Lattice) MultiReferenced(seeds []string) []string {
	pathCounts := make(map[string]int)
	for _, s := range seeds {
		counted := make(map[string]int)
		var walk func(string, map[string]bool)
		walk = func(cur string, onPath map[string]bool) {
			for _, child := range l.forward[cur] {
				if onPath[child] {
					continue // avoid infinite loop on this one walk; DAG so fine elsewhere
				}
				counted[child]++
				next := make(map[string]bool, len(onPath)+1)
				for k := range onPath {
					next[k] = true
				}
				next[child] = true
				walk(child, next)
			}
		}
		walk(s, map[string]bool{s: true})
		for t, c := range counted {
			if c > 1 {
				pathCounts[t] += c
			}
		}
	}
	var out []string
	for t := range pathCounts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// InheritanceSubLattice computes the transitive closure of a table ->
// inherited-from-table mapping rooted at root, so indirect inheritance
// (A inherits from B, B inherits from C) is materialized as A -> C too.
func InheritanceSubLattice(root string, inheritedFrom map[string]string) map[string]string {
	closure := make(map[string]string)
	for t := range inheritedFrom {
		from := t
		visited := map[string]bool{}
		for {
			parent, ok := inheritedFrom[from]
			if !ok || visited[parent] {
				break
			}
			visited[parent] = true
			from = parent
		}
		closure[t] = from
	}
	// Only entries reachable from root's inheritance chain are relevant;
	// callers filter using root as needed, but all closures are computed
	// since inheritance may fan out to several target tables.
	_ = root
	return closure
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
