// Package rowio defines the Row Source / Row Sink collaborator
// interfaces of §6: the core consumes in-memory row streams without
// mandating any storage technology. A Row Source exposes a pull-based
// cursor per table (the engines are single-threaded per pipeline
// stage); a Row Sink accepts header-ordered rows and supports the
// per-table atomic-write discipline of §7.
package rowio

import (
	"context"
)

// Row is one record: column name to raw cell string. The first record
// read from a table defines its header order (tracked by the source,
// not by Row itself, since Go maps do not preserve key order).
type Row map[string]string

// Source lists the tables a dataset provides and yields a read cursor
// per table.
type Source interface {
	Tables() ([]string, error)
	Rows(table string) (Cursor, error)
}

// Cursor is a pull-based row iterator. Next returns (row, true, nil) for
// each record, and (nil, false, nil) once exhausted. Callers check ctx
// between calls to honor cooperative cancellation (§5).
type Cursor interface {
	Next(ctx context.Context) (Row, bool, error)
	Close() error
}

// Sink accepts header-ordered rows for a table and is closed once that
// table is fully written. Close commits the table; a Sink implementation
// that buffers per table supports the atomic-write requirement of §7
// (a failure mid-table must leave that table empty, not partially
// written) by discarding the buffer instead of calling Close.
type Sink interface {
	Write(ctx context.Context, table string, row Row) error
	Close(table string) error
}
