package rowio

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/goxplore/internal/sqlutil"
)

// MySQLSource reads rows directly from a set of MySQL tables, each
// driven by a caller-supplied SELECT (typically "SELECT * FROM t" or a
// filtered variant). It is grounded on the teacher's database.Manager
// connection-pool pattern but narrowed to the row-streaming role the
// core needs.
type MySQLSource struct {
	db      *sql.DB
	tables  []string
	queries map[string]string
}

// NewMySQLSource builds a MySQLSource over db, one query per table. The
// map's default zero value ("") falls back to "SELECT * FROM `table`".
func NewMySQLSource(db *sql.DB, tableOrder []string, queries map[string]string) *MySQLSource {
	return &MySQLSource{db: db, tables: append([]string(nil), tableOrder...), queries: queries}
}

func (m *MySQLSource) Tables() ([]string, error) {
	return append([]string(nil), m.tables...), nil
}

func (m *MySQLSource) Rows(table string) (Cursor, error) {
	query := m.queries[table]
	if query == "" {
		query = fmt.Sprintf("SELECT * FROM %s", sqlutil.QuoteIdentifier(table))
	}
	rows, err := m.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("rowio: query table %q: %w", table, err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("rowio: columns for table %q: %w", table, err)
	}
	return &mysqlCursor{rows: rows, cols: cols}, nil
}

type mysqlCursor struct {
	rows *sql.Rows
	cols []string
}

func (c *mysqlCursor) Next(ctx context.Context) (Row, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	vals := make([]sql.NullString, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, false, fmt.Errorf("rowio: scan: %w", err)
	}
	row := make(Row, len(c.cols))
	for i, col := range c.cols {
		if vals[i].Valid {
			row[col] = vals[i].String
		} else {
			row[col] = ""
		}
	}
	return row, true, nil
}

func (c *mysqlCursor) Close() error { return c.rows.Close() }

// MySQLSink writes rows into MySQL tables via batched INSERTs, holding
// each table's rows in a pending buffer until Close(table) flushes them
// inside a single transaction — the §7 atomic-per-table-write guarantee:
// a failure mid-table rolls back that table's transaction and leaves it
// untouched, without affecting tables already committed.
type MySQLSink struct {
	db        *sql.DB
	batchSize int
	headers   map[string][]string
	pending   map[string][]Row
}

// NewMySQLSink builds a MySQLSink. batchSize bounds the row count per
// multi-row INSERT statement.
func NewMySQLSink(db *sql.DB, batchSize int) *MySQLSink {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &MySQLSink{db: db, batchSize: batchSize, headers: make(map[string][]string), pending: make(map[string][]Row)}
}

func (s *MySQLSink) Write(ctx context.Context, table string, row Row) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, ok := s.headers[table]; !ok {
		header := make([]string, 0, len(row))
		for col := range row {
			header = append(header, col)
		}
		s.headers[table] = header
	}
	s.pending[table] = append(s.pending[table], row)
	return nil
}

// Close flushes table's pending rows inside a transaction and commits
// it. On any error the transaction is rolled back and table's buffer is
// discarded, leaving it empty in the destination.
func (s *MySQLSink) Close(table string) error {
	rows := s.pending[table]
	delete(s.pending, table)
	if len(rows) == 0 {
		return nil
	}
	header := s.headers[table]
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("rowio: begin transaction for table %q: %w", table, err)
	}
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertBatch(tx, table, header, rows[start:end]); err != nil {
			tx.Rollback()
			return fmt.Errorf("rowio: writing table %q: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rowio: commit table %q: %w", table, err)
	}
	return nil
}

// Discard drops table's pending buffer without writing it, for a
// caller that abandons a table mid-transform before ever calling
// Close.
func (s *MySQLSink) Discard(table string) {
	delete(s.pending, table)
}

func insertBatch(tx *sql.Tx, table string, header []string, rows []Row) error {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = sqlutil.QuoteIdentifier(h)
	}
	placeholderRow := "(" + strings.TrimSuffix(strings.Repeat("?,", len(header)), ",") + ")"
	placeholders := strings.TrimSuffix(strings.Repeat(placeholderRow+",", len(rows)), ",")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", sqlutil.QuoteIdentifier(table), strings.Join(cols, ", "), placeholders)

	args := make([]any, 0, len(rows)*len(header))
	for _, row := range rows {
		for _, h := range header {
			args = append(args, row[h])
		}
	}
	_, err := tx.Exec(query, args...)
	return err
}
