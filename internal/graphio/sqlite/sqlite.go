// Package sqlite persists a graph (§4.6) to a SQLite database via
// mattn/go-sqlite3, and rehydrates it for query execution by handing the
// reconstructed graphmodel.Graph to internal/graphio/memory's Source —
// the same in-process query engine internal/graphio/memory already
// implements, rather than translating groupselect.Query into SQL joins a
// second time. Grounded on the teacher's internal/database connection
// management (a *sql.DB held by the Sink/Source, opened once and reused)
// and internal/rowio.MySQLSink's begin/buffer/commit-per-write shape,
// narrowed here to one transaction per Begin/Commit pair rather than
// per table, since a graph write is a single unit (§7: "a graph write
// either fully lands or fully rolls back").
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/dbsmedya/goxplore/internal/graphio/memory"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/lattice"
	"github.com/dbsmedya/goxplore/internal/metadata"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY,
	labels TEXT NOT NULL,
	table_name TEXT NOT NULL,
	variable TEXT NOT NULL,
	name TEXT NOT NULL,
	value_type TEXT NOT NULL,
	value_raw TEXT NOT NULL,
	description TEXT NOT NULL,
	has_ref_range INTEGER NOT NULL,
	ref_low REAL NOT NULL,
	ref_high REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS edges (
	source_id INTEGER NOT NULL,
	target_id INTEGER NOT NULL,
	type TEXT NOT NULL
);
`

// Open opens (creating if necessary) a SQLite database at path and
// ensures the graph schema exists.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("graphio/sqlite: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("graphio/sqlite: create schema: %w", err)
	}
	return db, nil
}

// Sink persists write_node/write_edge calls into db inside one
// transaction per Begin/Commit pair.
type Sink struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSink builds a Sink writing into db (already schema-initialized via
// Open).
func NewSink(db *sql.DB) *Sink { return &Sink{db: db} }

func (s *Sink) Begin() error {
	if s.tx != nil {
		return fmt.Errorf("graphio/sqlite: Begin called while a write is already open")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("graphio/sqlite: begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

func (s *Sink) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("graphio/sqlite: Commit called without a matching Begin")
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("graphio/sqlite: commit: %w", err)
	}
	return nil
}

func (s *Sink) WriteNode(id graphmodel.NodeID, labels []string, table, variable, name string, value metadata.Value, description string, hasRefRange bool, refLow, refHigh float64) error {
	if s.tx == nil {
		return fmt.Errorf("graphio/sqlite: WriteNode called outside Begin/Commit")
	}
	_, err := s.tx.Exec(
		`INSERT INTO nodes (id, labels, table_name, variable, name, value_type, value_raw, description, has_ref_range, ref_low, ref_high)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(id), strings.Join(labels, ","), table, variable, name, value.Type.String(), value.Raw(), description, hasRefRange, refLow, refHigh,
	)
	if err != nil {
		return fmt.Errorf("graphio/sqlite: insert node %d: %w", id, err)
	}
	return nil
}

func (s *Sink) WriteEdge(sourceID, targetID graphmodel.NodeID, edgeType graphmodel.EdgeType) error {
	if s.tx == nil {
		return fmt.Errorf("graphio/sqlite: WriteEdge called outside Begin/Commit")
	}
	_, err := s.tx.Exec(
		`INSERT INTO edges (source_id, target_id, type) VALUES (?, ?, ?)`,
		int64(sourceID), int64(targetID), string(edgeType),
	)
	if err != nil {
		return fmt.Errorf("graphio/sqlite: insert edge %d->%d: %w", sourceID, targetID, err)
	}
	return nil
}

// LoadGraph reads every node and edge back from db, in id/insertion
// order, replaying them through a memory.Sink so the rebuilt graph goes
// through the same dedup-aware constructors a live translation does.
func LoadGraph(db *sql.DB) (*graphmodel.Graph, error) {
	sink := memory.NewSink()
	if err := sink.Begin(); err != nil {
		return nil, err
	}

	nodeRows, err := db.Query(`SELECT id, labels, table_name, variable, name, value_type, value_raw, description, has_ref_range, ref_low, ref_high FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("graphio/sqlite: query nodes: %w", err)
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var (
			id                                                                            int64
			labelsCSV, table, variable, name, valueType, valueRaw, description             string
			hasRefRange                                                                    bool
			refLow, refHigh                                                                float64
		)
		if err := nodeRows.Scan(&id, &labelsCSV, &table, &variable, &name, &valueType, &valueRaw, &description, &hasRefRange, &refLow, &refHigh); err != nil {
			return nil, fmt.Errorf("graphio/sqlite: scan node: %w", err)
		}
		dt, err := metadata.ParseDataType(valueType)
		if err != nil {
			return nil, fmt.Errorf("graphio/sqlite: node %d: %w", id, err)
		}
		value, ok := metadata.Cast(valueRaw, dt)
		if !ok {
			return nil, fmt.Errorf("graphio/sqlite: node %d: cannot cast %q as %s", id, valueRaw, dt)
		}
		var labels []string
		if labelsCSV != "" {
			labels = strings.Split(labelsCSV, ",")
		}
		if err := sink.WriteNode(graphmodel.NodeID(id), labels, table, variable, name, value, description, hasRefRange, refLow, refHigh); err != nil {
			return nil, err
		}
	}
	if err := nodeRows.Err(); err != nil {
		return nil, fmt.Errorf("graphio/sqlite: iterate nodes: %w", err)
	}

	edgeRows, err := db.Query(`SELECT source_id, target_id, type FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("graphio/sqlite: query edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var source, target int64
		var edgeType string
		if err := edgeRows.Scan(&source, &target, &edgeType); err != nil {
			return nil, fmt.Errorf("graphio/sqlite: scan edge: %w", err)
		}
		if err := sink.WriteEdge(graphmodel.NodeID(source), graphmodel.NodeID(target), graphmodel.EdgeType(edgeType)); err != nil {
			return nil, err
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("graphio/sqlite: iterate edges: %w", err)
	}

	if err := sink.Commit(); err != nil {
		return nil, err
	}
	return sink.Graph(), nil
}

// NewSource rehydrates db's persisted graph into memory and returns a
// memory.Source over it, using lat to resolve Forward/Reverse table
// traversals during query execution.
func NewSource(db *sql.DB, lat *lattice.Lattice) (*memory.Source, error) {
	g, err := LoadGraph(db)
	if err != nil {
		return nil, err
	}
	return memory.NewSource(g, lat), nil
}
