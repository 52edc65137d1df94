package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/goxplore/internal/rowio"
)

// listSourceTables returns every base table in the connected database, in
// the order MySQL's SHOW TABLES reports them. The row source (§6) and the
// profiling stage (§3) both need a stable table list before they can read
// anything.
func listSourceTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// loaderFor adapts a rowio.Source to the func(table string) ([]rowio.Row,
// error) shape internal/metagen.Generate takes, draining one table's
// cursor fully into a slice. Grounded on internal/pipeline/rowsource.go's
// loaderFor, duplicated here since that helper is unexported.
func loaderFor(ctx context.Context, src rowio.Source) func(table string) ([]rowio.Row, error) {
	return func(table string) ([]rowio.Row, error) {
		cur, err := src.Rows(table)
		if err != nil {
			return nil, err
		}
		defer cur.Close()

		var rows []rowio.Row
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
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
