package pipeline

import (
	"context"

	"github.com/dbsmedya/goxplore/internal/rowio"
	"github.com/dbsmedya/goxplore/internal/xplerr"
)

// loaderFor adapts a rowio.Source to the func(table string) ([]rowio.Row,
// error) shape internal/metagen.Generate, internal/sourceagg.NewDataset,
// and internal/graphmodel.Translate all take — draining one table's
// cursor fully into a slice. ctx is checked between rows so a cancelled
// run stops mid-scan instead of materializing the rest of a table (§5).
func loaderFor(ctx context.Context, src rowio.Source) func(table string) ([]rowio.Row, error) {
	return func(table string) ([]rowio.Row, error) {
		cur, err := src.Rows(table)
		if err != nil {
			return nil, err
		}
		defer cur.Close()

		var rows []rowio.Row
		for {
			if ctx.Err() != nil {
				return nil, xplerr.ErrCancelled
			}
			row, ok, err := cur.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return rows, nil
			}
			rows = append(rows, row)
		}
	}
}

// memorySinkLoader adapts a rowio.MemorySink's committed tables to the
// same loader shape, so the graph translation stage (§4.9) can read the
// rows the transformation stage (§4.8) just produced without a round
// trip through any storage technology.
func memorySinkLoader(sink *rowio.MemorySink) func(table string) ([]rowio.Row, error) {
	return func(table string) ([]rowio.Row, error) {
		return sink.Table(table), nil
	}
}
