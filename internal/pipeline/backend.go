package pipeline

import (
	"fmt"

	"github.com/dbsmedya/goxplore/internal/config"
	"github.com/dbsmedya/goxplore/internal/graphio"
	"github.com/dbsmedya/goxplore/internal/graphio/memory"
	"github.com/dbsmedya/goxplore/internal/graphio/sqlite"
	"github.com/dbsmedya/goxplore/internal/graphmodel"
	"github.com/dbsmedya/goxplore/internal/lattice"
)

// graphBackend is the pair of collaborators §6 names: the Sink a run
// persists its translated graph through, and a constructor for the
// Source the AAG generator (§4.11) later queries against once the write
// lands. Both graphio/memory and graphio/sqlite answer group-selector
// queries through a *memory.Source — graphio/sqlite.NewSource simply
// rehydrates one from the persisted rows — so a single constructor type
// covers both backends.
type graphBackend struct {
	sink         graphio.Sink
	openSource   func() (*memory.Source, error)
	closeBackend func() error
}

// openGraphBackend selects the Graph Sink/Source pair named by
// cfg.Graph.Backend. The sqlite backend opens (and schema-initializes)
// the configured file; closeBackend releases that handle once the run
// is done with it.
func openGraphBackend(cfg config.GraphConfig, lat *lattice.Lattice) (*graphBackend, error) {
	switch cfg.Backend {
	case "", "memory":
		sink := memory.NewSink()
		return &graphBackend{
			sink: sink,
			openSource: func() (*memory.Source, error) {
				return memory.NewSource(sink.Graph(), lat), nil
			},
			closeBackend: func() error { return nil },
		}, nil

	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("pipeline: graph backend %q requires graph.sqlite_path", cfg.Backend)
		}
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &graphBackend{
			sink: sqlite.NewSink(db),
			openSource: func() (*memory.Source, error) {
				return sqlite.NewSource(db, lat)
			},
			closeBackend: func() error { return db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("pipeline: unknown graph backend %q", cfg.Backend)
	}
}

// persistGraph replays every node and edge of g through sink's
// Begin/WriteNode/WriteEdge/Commit sequence (§6), the write a graph
// translation (§4.9) or a post-filtered AAG result commits as one unit.
func persistGraph(sink graphio.Sink, g *graphmodel.Graph) error {
	if err := sink.Begin(); err != nil {
		return fmt.Errorf("pipeline: begin graph write: %w", err)
	}
	for _, n := range g.Nodes() {
		if err := sink.WriteNode(n.ID, n.Labels, n.Table, n.Variable, n.Name, n.Value, n.Description, n.HasRefRange, n.RefLow, n.RefHigh); err != nil {
			return fmt.Errorf("pipeline: write node %d: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges() {
		if err := sink.WriteEdge(e.Source, e.Target, e.Type); err != nil {
			return fmt.Errorf("pipeline: write edge %d->%d: %w", e.Source, e.Target, err)
		}
	}
	return sink.Commit()
}
