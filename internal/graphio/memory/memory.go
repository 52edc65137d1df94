// Package memory implements internal/graphio's Sink and Source entirely
// in process, over a graphmodel.Graph. The Sink replays an already-built
// graph's nodes/edges (re-deduping through the same constructors the
// translator itself uses, so two Sinks fed the same stream converge to
// the same structure); the Source answers group-selector queries by
// walking the lattice directly from each candidate member row and
// evaluating the selector's condition with internal/expr.Eval — the same
// evaluator internal/conclusion and internal/sourceagg use, just fed by
// graph neighbors instead of loaded rows.
package memory

import (
	"fmt"

	"github.com/dbsmedya/goxplore/internal/aggregate"
	"github.com/dbsmedya/goxplore/internal/expr"
	"github.com/dbsmedya/goxplore/internal/graphio"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/groupselect"
	"github.com/dbsmedya/goxplore/internal/lattice"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Sink builds a graphmodel.Graph from a stream of write_node/write_edge
// calls, mapping each caller-supplied NodeID onto the internal ID the
// dedup-aware graphmodel constructors assign.
type Sink struct {
	g     *graphmodel.Graph
	idMap map[graphmodel.NodeID]graphmodel.NodeID
	open  bool
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{g: graphmodel.New(), idMap: make(map[graphmodel.NodeID]graphmodel.NodeID)}
}

// Graph returns the graph built so far.
func (s *Sink) Graph() *graphmodel.Graph { return s.g }

func (s *Sink) Begin() error {
	if s.open {
		return fmt.Errorf("graphio/memory: Begin called while a write is already open")
	}
	s.open = true
	return nil
}

func (s *Sink) Commit() error {
	if !s.open {
		return fmt.Errorf("graphio/memory: Commit called without a matching Begin")
	}
	s.open = false
	return nil
}

func (s *Sink) WriteNode(id graphmodel.NodeID, labels []string, table, variable, name string, value metadata.Value, description string, hasRefRange bool, refLow, refHigh float64) error {
	if !s.open {
		return fmt.Errorf("graphio/memory: WriteNode called outside Begin/Commit")
	}
	var internal graphmodel.NodeID
	switch {
	case hasLabel(labels, graphmodel.LabelKey):
		internal = s.g.AddKeyNode(table, value, value.Raw())
	case hasLabel(labels, graphmodel.LabelAttributeBin):
		internal = s.g.AddBinNode(table, variable, name, refLow, refHigh)
	default:
		internal = s.g.AddAttributeNode(table, variable, value)
	}
	if description != "" {
		s.g.Node(internal).Description = description
	}
	s.idMap[id] = internal
	return nil
}

func (s *Sink) WriteEdge(sourceID, targetID graphmodel.NodeID, edgeType graphmodel.EdgeType) error {
	if !s.open {
		return fmt.Errorf("graphio/memory: WriteEdge called outside Begin/Commit")
	}
	src, ok := s.idMap[sourceID]
	if !ok {
		return fmt.Errorf("graphio/memory: edge references unwritten node id %d", sourceID)
	}
	tgt, ok := s.idMap[targetID]
	if !ok {
		return fmt.Errorf("graphio/memory: edge references unwritten node id %d", targetID)
	}
	s.g.AddEdge(src, tgt, edgeType)
	return nil
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// Source answers group-selector and path-query lookups directly against
// an in-memory graphmodel.Graph.
type Source struct {
	g   *graphmodel.Graph
	lat *lattice.Lattice
}

// NewSource builds a Source over g, using lat to resolve Forward
// (singular) and Reverse (fan-out) table traversals.
func NewSource(g *graphmodel.Graph, lat *lattice.Lattice) *Source {
	return &Source{g: g, lat: lat}
}

// Members implements the GroupResolver the AAG generator (§4.11) needs:
// every Key node of sel.GroupTable whose resolved row context satisfies
// sel.Condition.
func (s *Source) Members(sel groupselect.GroupSelector) ([]graphmodel.NodeID, error) {
	var out []graphmodel.NodeID
	for _, anchor := range s.g.KeysForTable(sel.GroupTable) {
		ok, err := expr.Eval(sel.Condition, s.contextFor(anchor, sel.GroupTable))
		if err != nil {
			return nil, fmt.Errorf("graphio/memory: group %q: %w", sel.GroupName, err)
		}
		if ok {
			out = append(out, anchor)
		}
	}
	return out, nil
}

// ExecutePathQuery re-derives the condition from q's Where/Aggregate
// predicate text (internal/expr round-trips Print/Parse exactly, so this
// recovers the structured atoms a groupselect.Query only carries in
// rendered form) and evaluates it the same way Members does, returning
// one tuple per matching anchor row.
func (s *Source) ExecutePathQuery(q *groupselect.Query) (graphio.Cursor, error) {
	cond, err := conditionFromQuery(q)
	if err != nil {
		return nil, fmt.Errorf("graphio/memory: %w", err)
	}
	var tuples []graphio.Tuple
	for _, anchor := range s.g.KeysForTable(q.Anchor) {
		ok, err := expr.Eval(cond, s.contextFor(anchor, q.Anchor))
		if err != nil {
			return nil, err
		}
		if ok {
			tuples = append(tuples, graphio.Tuple{"x_0": s.g.Node(anchor).Value.Raw()})
		}
	}
	return &sliceCursor{tuples: tuples}, nil
}

// ExecuteAggregateQuery is identical to ExecutePathQuery: §4.10's
// neutral Query form folds aggregate atoms into the same predicate list
// as singular ones, so there is no separate grouping stage to execute.
func (s *Source) ExecuteAggregateQuery(q *groupselect.Query) (graphio.Cursor, error) {
	return s.ExecutePathQuery(q)
}

func conditionFromQuery(q *groupselect.Query) (expr.Expr, error) {
	var atoms []expr.Expr
	for _, p := range q.Where {
		a, err := expr.Parse(p.Text)
		if err != nil {
			return nil, fmt.Errorf("parsing WHERE predicate %q: %w", p.Text, err)
		}
		atoms = append(atoms, a)
	}
	for _, p := range q.Aggregates {
		a, err := expr.Parse(p.Text)
		if err != nil {
			return nil, fmt.Errorf("parsing AGG predicate %q: %w", p.Text, err)
		}
		atoms = append(atoms, a)
	}
	switch len(atoms) {
	case 0:
		return expr.AlwaysTrue{}, nil
	case 1:
		return atoms[0], nil
	default:
		return expr.NewAnd(atoms)
	}
}

type sliceCursor struct {
	tuples []graphio.Tuple
	pos    int
}

func (c *sliceCursor) Next() (graphio.Tuple, bool, error) {
	if c.pos >= len(c.tuples) {
		return nil, false, nil
	}
	t := c.tuples[c.pos]
	c.pos++
	return t, true, nil
}

func (c *sliceCursor) Close() error { return nil }

// nodeContext implements expr.Context over a graphmodel.Graph, resolving
// a (table, variable) reference relative to one anchor Key node: Forward
// traversal for a singular lookup, Reverse fan-out for an aggregate one.
// This is the graph-shaped counterpart of internal/sourceagg's
// SourceDataLine, grounded on the same resolveSingular/resolveAggregate
// split (Forward = at most one row per hop, Reverse = fan-out).
type nodeContext struct {
	s           *Source
	anchor      graphmodel.NodeID
	anchorTable string
}

func (s *Source) contextFor(anchor graphmodel.NodeID, anchorTable string) *nodeContext {
	return &nodeContext{s: s, anchor: anchor, anchorTable: anchorTable}
}

func (c *nodeContext) Singular(table, variable string) (string, bool) {
	target, ok := c.s.resolveSingular(c.anchor, c.anchorTable, table)
	if !ok {
		return "", false
	}
	node, ok := c.s.attributeNode(target, table, variable)
	if !ok {
		return "", false
	}
	return node.Value.Raw(), true
}

func (c *nodeContext) Aggregate(table, variable string, dt metadata.DataType, agg aggregate.Type) (aggregate.Result, bool) {
	targets, ok := c.s.resolveAggregateSet(c.anchor, c.anchorTable, table)
	if !ok || len(targets) == 0 {
		return aggregate.Result{Unset: true}, false
	}
	var values []metadata.Value
	for _, t := range targets {
		if node, ok := c.s.attributeNode(t, table, variable); ok {
			values = append(values, node.Value)
		}
	}
	if len(values) == 0 {
		return aggregate.Result{Unset: true}, false
	}
	res, err := aggregate.Apply(agg, dt, values)
	if err != nil {
		return aggregate.Result{Unset: true}, false
	}
	return res, true
}

// resolveSingular walks Forward hops from anchor to the unique Key node
// of targetTable reachable through declared foreign keys.
func (s *Source) resolveSingular(anchor graphmodel.NodeID, anchorTable, targetTable string) (graphmodel.NodeID, bool) {
	if anchorTable == targetTable {
		return anchor, true
	}
	path, ok := s.lat.ShortestPath(anchorTable, targetTable, s.lat.Forward)
	if !ok {
		return 0, false
	}
	cur := anchor
	for i := 1; i < len(path); i++ {
		next, found := s.stepToTable(cur, path[i])
		if !found {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// resolveAggregateSet walks Reverse hops (fan-out) from anchor,
// collecting every Key node of targetTable reachable at path's end.
func (s *Source) resolveAggregateSet(anchor graphmodel.NodeID, anchorTable, targetTable string) ([]graphmodel.NodeID, bool) {
	path, ok := s.lat.ShortestPath(anchorTable, targetTable, s.lat.Reverse)
	if !ok {
		return nil, false
	}
	current := []graphmodel.NodeID{anchor}
	for i := 1; i < len(path); i++ {
		seen := map[graphmodel.NodeID]bool{}
		var next []graphmodel.NodeID
		for _, cur := range current {
			for _, nb := range s.g.Neighbors(cur) {
				node := s.g.Node(nb)
				if node.Table == path[i] && isKey(node) && !seen[nb] {
					seen[nb] = true
					next = append(next, nb)
				}
			}
		}
		current = next
	}
	return current, true
}

func (s *Source) stepToTable(cur graphmodel.NodeID, table string) (graphmodel.NodeID, bool) {
	for _, nb := range s.g.Neighbors(cur) {
		node := s.g.Node(nb)
		if node.Table == table && isKey(node) {
			return nb, true
		}
	}
	return 0, false
}

func (s *Source) attributeNode(keyNode graphmodel.NodeID, table, variable string) (*graphmodel.Node, bool) {
	for _, nb := range s.g.Neighbors(keyNode) {
		node := s.g.Node(nb)
		if node.Table == table && node.Variable == variable && hasLabel(node.Labels, graphmodel.LabelAttribute) {
			return node, true
		}
	}
	return nil, false
}

func isKey(n *graphmodel.Node) bool { return hasLabel(n.Labels, graphmodel.LabelKey) }
