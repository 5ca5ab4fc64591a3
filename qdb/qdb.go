package qdb

//go:generate mockgen -source=qdb.go -destination=mock/qdb.go -package=mock

import (
	"context"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
)

// QDB is the catalog storage the sequence manager writes through.
//
// InsertRow is an atomic insert-if-absent on the table key and reports false
// when the key is taken. CompareAndSwapRow applies updated only if the row
// stored under key still matches every column of expected, and reports false
// on staleness. Update and delete calls report false when no row matched.
type QDB interface {
	CreateTable(ctx context.Context, t *Table) error
	GetTable(ctx context.Context, name string) (*Table, error)
	ListTables(ctx context.Context) ([]*Table, error)

	InsertRow(ctx context.Context, table string, row Row) (bool, error)
	FindRow(ctx context.Context, table string, field string, value Value) (Row, bool, error)
	UpdateRow(ctx context.Context, table string, field string, value Value, updated Row) (bool, error)
	CompareAndSwapRow(ctx context.Context, table string, key Value, expected Row, updated Row) (bool, error)
	DeleteRow(ctx context.Context, table string, field string, value Value) (bool, error)
	ListRows(ctx context.Context, table string) ([]Row, error)

	Close() error
}

func unknownTable(name string) error {
	return seqerror.Newf(seqerror.SEQ_UNKNOWN_TABLE, "catalog table %q does not exist", name)
}
