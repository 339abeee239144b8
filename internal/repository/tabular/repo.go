package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver

	"github.com/meridian-data/searchbridge/internal/domain"
)

// Column describes one column of a relational table.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Repo runs structured queries against the relational store. Table and
// column names are validated as SQL identifiers before interpolation;
// values always travel as placeholders.
type Repo struct {
	db *sql.DB
}

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Repo{db: db}, nil
}

// NewWithDB wraps an existing *sql.DB (tests, shared pools).
func NewWithDB(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Close releases the connection pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping verifies connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Query returns rows matching the conjunctive filters as field maps.
func (r *Repo) Query(ctx context.Context, table string, filters map[string]any, limit int) ([]map[string]any, error) {
	q, args, err := buildSelect(table, filters, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// RawQuery runs a caller-supplied read-only statement and returns the rows
// as field maps. Only SELECT/WITH statements are accepted; everything else
// goes through the structured mutation paths.
func (r *Repo) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	if err := validateReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Insert adds one row and returns the number of affected rows.
func (r *Repo) Insert(ctx context.Context, table string, values map[string]any) (int64, error) {
	q, args, err := buildInsert(table, values)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, q, args)
}

// Update modifies rows matching the filters and returns the affected count.
func (r *Repo) Update(ctx context.Context, table string, values, filters map[string]any) (int64, error) {
	q, args, err := buildUpdate(table, values, filters)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, q, args)
}

// Delete removes rows matching the filters and returns the affected count.
// An empty filter set is rejected; full-table deletes are never implicit.
func (r *Repo) Delete(ctx context.Context, table string, filters map[string]any) (int64, error) {
	q, args, err := buildDelete(table, filters)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, q, args)
}

// exec runs a mutation inside its own transaction.
func (r *Repo) exec(ctx context.Context, q string, args []any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return affected, nil
}

// TableSchema returns the column definitions of a table from the catalog.
func (r *Repo) TableSchema(ctx context.Context, table string) ([]Column, error) {
	if !isIdentifier(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidQuery, table)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Nullable = nullable == "YES"
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound
	}
	return cols, nil
}

// ListTables returns the public table names.
func (r *Repo) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// RowCount returns the row count of one table.
func (r *Repo) RowCount(ctx context.Context, table string) (int64, error) {
	if !isIdentifier(table) {
		return 0, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidQuery, table)
	}
	var n int64
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %q`, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// scanRows materializes sql.Rows into maps keyed by column name.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		m := make(map[string]any, len(cols))
		for i, c := range cols {
			switch v := vals[i].(type) {
			case []byte:
				m[c] = string(v)
			default:
				m[c] = v
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
