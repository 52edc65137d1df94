// Package graphio defines the Graph Sink and Graph Source interfaces of
// §6: the persistence boundary the graph translation stage (§4.9) writes
// through, and the query boundary the AAG generator (§4.11) reads
// through. Concrete implementations live in internal/graphio/memory (a
// pure in-process graphmodel.Graph) and internal/graphio/sqlite (backed
// by mattn/go-sqlite3).
//
// Grounded on the teacher's internal/rowio Source/Sink pair: the same
// shape — a write side that streams records under begin/commit and a
// read side that hands back a cursor — generalized from rows to graph
// nodes/edges and from a flat table scan to a path query.
package graphio

import (
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/groupselect"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

// Sink is the Graph Sink of §6: begin(); write_node(...); write_edge(...);
// commit(). id is the caller's stable NodeID (from a graphmodel.Graph
// already built in memory); a Sink implementation is responsible for
// mapping it onto whatever identity its own storage uses.
type Sink interface {
	Begin() error
	WriteNode(id graphmodel.NodeID, labels []string, table, variable, name string, value metadata.Value, description string, hasRefRange bool, refLow, refHigh float64) error
	WriteEdge(sourceID, targetID graphmodel.NodeID, edgeType graphmodel.EdgeType) error
	Commit() error
}

// Tuple is one result row of a Graph Source query: a binding name (the
// x_i/y_j/z_k names a groupselect.Query assigns) mapped to its rendered
// value.
type Tuple map[string]string

// Cursor iterates a Graph Source query's result tuples.
type Cursor interface {
	Next() (Tuple, bool, error)
	Close() error
}

// Source is the Graph Source of §6, consulted by the AAG generator (via
// a GroupResolver adapter) to resolve a compiled group selector against
// persisted graph data.
type Source interface {
	ExecutePathQuery(q *groupselect.Query) (Cursor, error)
	ExecuteAggregateQuery(q *groupselect.Query) (Cursor, error)
}
