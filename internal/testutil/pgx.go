package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ExecCall records one Exec statement and its arguments.
type ExecCall struct {
	SQL  string
	Args []any
}

// FakeConn satisfies the store and catalog connection interfaces. Queries
// are answered from QueryRows in order; Execs are recorded.
type FakeConn struct {
	Execs    []ExecCall
	ExecErr  error
	QueryErr error
	// QueryRows are consumed one result set per Query call.
	QueryRows [][][]any
	Queries   []ExecCall

	txs []*FakeTx
}

func (c *FakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.Execs = append(c.Execs, ExecCall{SQL: sql, Args: args})
	if c.ExecErr != nil {
		return pgconn.CommandTag{}, c.ExecErr
	}
	return pgconn.CommandTag{}, nil
}

func (c *FakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.Queries = append(c.Queries, ExecCall{SQL: sql, Args: args})
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	var rows [][]any
	if len(c.QueryRows) > 0 {
		rows = c.QueryRows[0]
		c.QueryRows = c.QueryRows[1:]
	}
	return &FakeRows{rows: rows, cursor: -1}, nil
}

func (c *FakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &FakeTx{}
	c.txs = append(c.txs, tx)
	return tx, nil
}

// LastTx returns the most recent transaction handed out by Begin.
func (c *FakeConn) LastTx() *FakeTx {
	if len(c.txs) == 0 {
		return nil
	}
	return c.txs[len(c.txs)-1]
}

// FakeTx records statements executed inside one transaction.
type FakeTx struct {
	Execs      []ExecCall
	ExecErr    error
	Committed  bool
	RolledBack bool
}

func (t *FakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.Execs = append(t.Execs, ExecCall{SQL: sql, Args: args})
	if t.ExecErr != nil {
		return pgconn.CommandTag{}, t.ExecErr
	}
	return pgconn.CommandTag{}, nil
}

func (t *FakeTx) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *FakeTx) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

func (t *FakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *FakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *FakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *FakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *FakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}

func (t *FakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return &FakeRows{cursor: -1}, nil
}

func (t *FakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &FakeRows{cursor: -1}
}

func (t *FakeTx) Conn() *pgx.Conn { return nil }

// FakeRows walks a fixed result set.
type FakeRows struct {
	rows   [][]any
	cursor int
	err    error
}

func (r *FakeRows) Next() bool {
	r.cursor++
	return r.cursor < len(r.rows)
}

func (r *FakeRows) Scan(dest ...any) error {
	if r.cursor < 0 || r.cursor >= len(r.rows) {
		return pgx.ErrNoRows
	}
	row := r.rows[r.cursor]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *FakeRows) Close()                                       {}
func (r *FakeRows) Err() error                                   { return r.err }
func (r *FakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *FakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *FakeRows) Values() ([]any, error)                       { return r.rows[r.cursor], nil }
func (r *FakeRows) RawValues() [][]byte                          { return nil }
func (r *FakeRows) Conn() *pgx.Conn                              { return nil }

func assign(dest, src any) error {
	switch d := dest.(type) {
	case *string:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to *string", src)
		}
		*d = s
	case *int:
		n, ok := src.(int)
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to *int", src)
		}
		*d = n
	case *time.Time:
		ts, ok := src.(time.Time)
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to *time.Time", src)
		}
		*d = ts
	default:
		return fmt.Errorf("scan: unsupported destination %T", dest)
	}
	return nil
}
