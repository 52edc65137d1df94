package rowio

import (
	"context"
	"fmt"
)

// MemorySource is an in-memory Source backed by a fixed table->rows map,
// used by tests and by callers staging a dataset already loaded into
// memory.
type MemorySource struct {
	tables []string
	rows   map[string][]Row
}

// NewMemorySource builds a MemorySource. Table iteration order follows
// the order table names first appear in tableOrder.
func NewMemorySource(tableOrder []string, rows map[string][]Row) *MemorySource {
	return &MemorySource{tables: append([]string(nil), tableOrder...), rows: rows}
}

func (m *MemorySource) Tables() ([]string, error) {
	return append([]string(nil), m.tables...), nil
}

func (m *MemorySource) Rows(table string) (Cursor, error) {
	rows, ok := m.rows[table]
	if !ok {
		return nil, fmt.Errorf("rowio: unknown table %q", table)
	}
	return &memoryCursor{rows: rows}, nil
}

type memoryCursor struct {
	rows []Row
	pos  int
}

func (c *memoryCursor) Next(ctx context.Context) (Row, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	if c.pos >= len(c.rows) {
		return nil, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *memoryCursor) Close() error { return nil }

// MemorySink is an in-memory Sink that buffers rows per table and only
// exposes them via Tables/Rows once Close(table) commits that table —
// modeling the atomic-write discipline of §7 at the smallest possible
// scale for tests.
type MemorySink struct {
	order     []string
	committed map[string][]Row
	pending   map[string][]Row
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		committed: make(map[string][]Row),
		pending:   make(map[string][]Row),
	}
}

func (s *MemorySink) Write(ctx context.Context, table string, row Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, seen := s.pending[table]; !seen {
		s.order = append(s.order, table)
	}
	s.pending[table] = append(s.pending[table], row)
	return nil
}

func (s *MemorySink) Close(table string) error {
	s.committed[table] = s.pending[table]
	delete(s.pending, table)
	return nil
}

// Discard drops a table's pending buffer without committing it, leaving
// that table empty — the transformer's recovery path on a per-table
// write failure (§7).
func (s *MemorySink) Discard(table string) {
	delete(s.pending, table)
}

// Table returns the committed rows for table, or nil if it was never
// committed.
func (s *MemorySink) Table(table string) []Row {
	return s.committed[table]
}

// CommittedTables returns the names of tables committed so far, in
// commit order.
func (s *MemorySink) CommittedTables() []string {
	var out []string
	for _, t := range s.order {
		if _, ok := s.committed[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
