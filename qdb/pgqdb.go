package qdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pg-sharding/seqmgr/pkg/seqlog"
)

// PgQDB keeps the catalog in two PostgreSQL tables: table definitions and
// rows, each stored as jsonb.
type PgQDB struct {
	pool *pgxpool.Pool
}

var _ QDB = &PgQDB{}

const (
	pgCreateTablesTable = `CREATE TABLE IF NOT EXISTS seq_catalog_tables (
	name       text PRIMARY KEY,
	definition jsonb NOT NULL
)`
	pgCreateRowsTable = `CREATE TABLE IF NOT EXISTS seq_catalog_rows (
	table_name text NOT NULL REFERENCES seq_catalog_tables (name),
	row_key    text NOT NULL,
	row_data   jsonb NOT NULL,
	PRIMARY KEY (table_name, row_key)
)`
)

func NewPgQDB(ctx context.Context, connString string) (*PgQDB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	for _, stmt := range []string{pgCreateTablesTable, pgCreateRowsTable} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, err
		}
	}

	seqlog.Zero.Debug().
		Uint("pool", seqlog.GetPointer(pool)).
		Msg("pgqdb: NewPgQDB")

	return &PgQDB{pool: pool}, nil
}

// ==============================================================================
//                                   TABLES
// ==============================================================================

func (q *PgQDB) CreateTable(ctx context.Context, t *Table) error {
	seqlog.Zero.Debug().Str("table", t.Name).Msg("pgqdb: create table")

	if _, ok := t.column(t.Key); !ok {
		return fmt.Errorf("table %s: key column %s is not declared", t.Name, t.Key)
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}

	tag, err := q.pool.Exec(ctx,
		`INSERT INTO seq_catalog_tables (name, definition) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		t.Name, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	prev, err := q.GetTable(ctx, t.Name)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(prev, t) {
		return fmt.Errorf("table %s already exists with a different definition", t.Name)
	}
	return nil
}

func (q *PgQDB) GetTable(ctx context.Context, name string) (*Table, error) {
	seqlog.Zero.Debug().Str("table", name).Msg("pgqdb: get table")

	var raw []byte
	err := q.pool.QueryRow(ctx, `SELECT definition FROM seq_catalog_tables WHERE name = $1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, unknownTable(name)
	}
	if err != nil {
		return nil, err
	}

	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *PgQDB) ListTables(ctx context.Context) ([]*Table, error) {
	seqlog.Zero.Debug().Msg("pgqdb: list tables")

	rows, err := q.pool.Query(ctx, `SELECT definition FROM seq_catalog_tables ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []*Table
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t Table
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		ret = append(ret, &t)
	}
	return ret, rows.Err()
}

// ==============================================================================
//                                    ROWS
// ==============================================================================

type pgRow struct {
	key string
	row Row
}

func (q *PgQDB) InsertRow(ctx context.Context, table string, row Row) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Interface("row", row).Msg("pgqdb: insert row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}
	if err := t.CheckRow(row); err != nil {
		return false, err
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return false, err
	}

	tag, err := q.pool.Exec(ctx,
		`INSERT INTO seq_catalog_rows (table_name, row_key, row_data) VALUES ($1, $2, $3) ON CONFLICT (table_name, row_key) DO NOTHING`,
		table, t.KeyOf(row), raw)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// selectRows reads the rows of t whose field equals value. Inside a
// transaction forUpdate locks them until commit.
func selectRows(ctx context.Context, db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, t *Table, field string, value Value, forUpdate bool) ([]pgRow, error) {
	query := `SELECT row_key, row_data FROM seq_catalog_rows WHERE table_name = $1`
	args := []any{t.Name}
	if field == t.Key {
		query += ` AND row_key = $2`
		args = append(args, value.String())
	}
	query += ` ORDER BY row_key`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []pgRow
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, err
		}
		if v, ok := row[field]; !ok || !v.Equal(value) {
			continue
		}
		ret = append(ret, pgRow{key: key, row: row})
	}
	return ret, rows.Err()
}

func (q *PgQDB) FindRow(ctx context.Context, table string, field string, value Value) (Row, bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Str("value", value.String()).Msg("pgqdb: find row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return nil, false, err
	}
	rows, err := selectRows(ctx, q.pool, t, field, value, false)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].row, true, nil
}

func updateRowData(ctx context.Context, tx pgx.Tx, table, key string, row Row) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE seq_catalog_rows SET row_data = $3 WHERE table_name = $1 AND row_key = $2`,
		table, key, raw)
	return err
}

func (q *PgQDB) UpdateRow(ctx context.Context, table string, field string, value Value, updated Row) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Interface("update", updated).Msg("pgqdb: update row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}
	if err := t.CheckUpdate(updated); err != nil {
		return false, err
	}

	matched := false
	err = pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		rows, err := selectRows(ctx, tx, t, field, value, true)
		if err != nil {
			return err
		}
		matched = len(rows) > 0
		for _, r := range rows {
			if err := updateRowData(ctx, tx, table, r.key, merge(r.row, updated)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (q *PgQDB) CompareAndSwapRow(ctx context.Context, table string, key Value, expected Row, updated Row) (bool, error) {
	seqlog.Zero.Debug().
		Str("table", table).
		Str("key", key.String()).
		Interface("expected", expected).
		Interface("update", updated).
		Msg("pgqdb: compare and swap row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}
	if err := t.CheckUpdate(updated); err != nil {
		return false, err
	}

	swapped := false
	err = pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		rows, err := selectRows(ctx, tx, t, t.Key, key, true)
		if err != nil {
			return err
		}
		if len(rows) == 0 || !rows[0].row.Matches(expected) {
			return nil
		}
		if err := updateRowData(ctx, tx, table, rows[0].key, merge(rows[0].row, updated)); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (q *PgQDB) DeleteRow(ctx context.Context, table string, field string, value Value) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Str("value", value.String()).Msg("pgqdb: delete row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}

	matched := false
	err = pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		rows, err := selectRows(ctx, tx, t, field, value, true)
		if err != nil {
			return err
		}
		matched = len(rows) > 0
		for _, r := range rows {
			if _, err := tx.Exec(ctx,
				`DELETE FROM seq_catalog_rows WHERE table_name = $1 AND row_key = $2`,
				table, r.key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (q *PgQDB) ListRows(ctx context.Context, table string) ([]Row, error) {
	seqlog.Zero.Debug().Str("table", table).Msg("pgqdb: list rows")

	if _, err := q.GetTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := q.pool.Query(ctx,
		`SELECT row_data FROM seq_catalog_rows WHERE table_name = $1 ORDER BY row_key`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []Row
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, err
		}
		ret = append(ret, row)
	}
	return ret, rows.Err()
}

func (q *PgQDB) Close() error {
	q.pool.Close()
	return nil
}
