package qdb

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pg-sharding/seqmgr/pkg/seqlog"

	retry "github.com/sethvargo/go-retry"
)

type EtcdQDB struct {
	cli *clientv3.Client
}

var _ QDB = &EtcdQDB{}

func NewEtcdQDB(addr string) (*EtcdQDB, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{addr},
		DialTimeout: 5 * time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		return nil, err
	}

	seqlog.Zero.Debug().
		Str("address", addr).
		Uint("client", seqlog.GetPointer(cli)).
		Msg("etcdqdb: NewEtcdQDB")

	return &EtcdQDB{
		cli: cli,
	}, nil
}

const (
	tablesNamespace = "/tables/"
	rowsNamespace   = "/rows/"
)

func tableNodePath(name string) string {
	return path.Join(tablesNamespace, name)
}

func tableRowsPrefix(table string) string {
	return path.Join(rowsNamespace, table) + "/"
}

func rowNodePath(table, key string) string {
	return tableRowsPrefix(table) + key
}

// rowUpdateBackoff bounds the ModRevision retry loop of UpdateRow and DeleteRow.
func rowUpdateBackoff() retry.Backoff {
	return retry.WithMaxRetries(7, retry.NewFibonacci(10*time.Millisecond))
}

// ==============================================================================
//                                   TABLES
// ==============================================================================

func (q *EtcdQDB) CreateTable(ctx context.Context, t *Table) error {
	seqlog.Zero.Debug().Str("table", t.Name).Msg("etcdqdb: create table")

	if _, ok := t.column(t.Key); !ok {
		return fmt.Errorf("table %s: key column %s is not declared", t.Name, t.Key)
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}

	key := tableNodePath(t.Name)
	stat, err := q.cli.Txn(ctx).
		If(clientv3util.KeyMissing(key)).
		Then(clientv3.OpPut(key, string(raw))).
		Commit()
	if err != nil {
		return err
	}
	if stat.Succeeded {
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

func (q *EtcdQDB) GetTable(ctx context.Context, name string) (*Table, error) {
	seqlog.Zero.Debug().Str("table", name).Msg("etcdqdb: get table")

	resp, err := q.cli.Get(ctx, tableNodePath(name))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, unknownTable(name)
	}

	var t Table
	if err := json.Unmarshal(resp.Kvs[0].Value, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *EtcdQDB) ListTables(ctx context.Context) ([]*Table, error) {
	seqlog.Zero.Debug().Msg("etcdqdb: list tables")

	resp, err := q.cli.Get(ctx, tablesNamespace, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}

	ret := make([]*Table, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var t Table
		if err := json.Unmarshal(kv.Value, &t); err != nil {
			return nil, err
		}
		ret = append(ret, &t)
	}
	return ret, nil
}

// ==============================================================================
//                                    ROWS
// ==============================================================================

type etcdRow struct {
	key string
	row Row
	rev int64
}

func (q *EtcdQDB) InsertRow(ctx context.Context, table string, row Row) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Interface("row", row).Msg("etcdqdb: insert row")

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

	key := rowNodePath(table, t.KeyOf(row))
	stat, err := q.cli.Txn(ctx).
		If(clientv3util.KeyMissing(key)).
		Then(clientv3.OpPut(key, string(raw))).
		Commit()
	if err != nil {
		return false, err
	}

	seqlog.Zero.Debug().
		Bool("succeeded", stat.Succeeded).
		Int64("revision", stat.Header.Revision).
		Msg("etcdqdb: insert row committed")
	return stat.Succeeded, nil
}

// matchingRows fetches rows whose field equals value together with their
// mod revisions.
func (q *EtcdQDB) matchingRows(ctx context.Context, t *Table, field string, value Value) ([]etcdRow, error) {
	var resp *clientv3.GetResponse
	var err error
	if field == t.Key {
		resp, err = q.cli.Get(ctx, rowNodePath(t.Name, value.String()))
	} else {
		resp, err = q.cli.Get(ctx, tableRowsPrefix(t.Name), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	}
	if err != nil {
		return nil, err
	}

	var ret []etcdRow
	for _, kv := range resp.Kvs {
		var row Row
		if err := json.Unmarshal(kv.Value, &row); err != nil {
			return nil, err
		}
		if v, ok := row[field]; !ok || !v.Equal(value) {
			continue
		}
		ret = append(ret, etcdRow{key: string(kv.Key), row: row, rev: kv.ModRevision})
	}
	return ret, nil
}

func (q *EtcdQDB) FindRow(ctx context.Context, table string, field string, value Value) (Row, bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Str("value", value.String()).Msg("etcdqdb: find row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return nil, false, err
	}
	rows, err := q.matchingRows(ctx, t, field, value)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].row, true, nil
}

// putIfUnchanged writes row under key only if its revision is still rev.
func (q *EtcdQDB) putIfUnchanged(ctx context.Context, key string, rev int64, row Row) (bool, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return false, err
	}
	stat, err := q.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", rev)).
		Then(clientv3.OpPut(key, string(raw))).
		Commit()
	if err != nil {
		return false, err
	}
	return stat.Succeeded, nil
}

func (q *EtcdQDB) UpdateRow(ctx context.Context, table string, field string, value Value, updated Row) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Interface("update", updated).Msg("etcdqdb: update row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}
	if err := t.CheckUpdate(updated); err != nil {
		return false, err
	}

	matched := false
	err = retry.Do(ctx, rowUpdateBackoff(), func(ctx context.Context) error {
		rows, err := q.matchingRows(ctx, t, field, value)
		if err != nil {
			return err
		}
		matched = len(rows) > 0
		for _, r := range rows {
			ok, err := q.putIfUnchanged(ctx, r.key, r.rev, merge(r.row, updated))
			if err != nil {
				return err
			}
			if !ok {
				return retry.RetryableError(fmt.Errorf("row %s changed concurrently", r.key))
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (q *EtcdQDB) CompareAndSwapRow(ctx context.Context, table string, key Value, expected Row, updated Row) (bool, error) {
	seqlog.Zero.Debug().
		Str("table", table).
		Str("key", key.String()).
		Interface("expected", expected).
		Interface("update", updated).
		Msg("etcdqdb: compare and swap row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}
	if err := t.CheckUpdate(updated); err != nil {
		return false, err
	}

	rows, err := q.matchingRows(ctx, t, t.Key, key)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 || !rows[0].row.Matches(expected) {
		return false, nil
	}
	return q.putIfUnchanged(ctx, rows[0].key, rows[0].rev, merge(rows[0].row, updated))
}

func (q *EtcdQDB) DeleteRow(ctx context.Context, table string, field string, value Value) (bool, error) {
	seqlog.Zero.Debug().Str("table", table).Str("field", field).Str("value", value.String()).Msg("etcdqdb: delete row")

	t, err := q.GetTable(ctx, table)
	if err != nil {
		return false, err
	}

	matched := false
	err = retry.Do(ctx, rowUpdateBackoff(), func(ctx context.Context) error {
		rows, err := q.matchingRows(ctx, t, field, value)
		if err != nil {
			return err
		}
		matched = matched || len(rows) > 0
		for _, r := range rows {
			stat, err := q.cli.Txn(ctx).
				If(clientv3.Compare(clientv3.ModRevision(r.key), "=", r.rev)).
				Then(clientv3.OpDelete(r.key)).
				Commit()
			if err != nil {
				return err
			}
			if !stat.Succeeded {
				return retry.RetryableError(fmt.Errorf("row %s changed concurrently", r.key))
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (q *EtcdQDB) ListRows(ctx context.Context, table string) ([]Row, error) {
	seqlog.Zero.Debug().Str("table", table).Msg("etcdqdb: list rows")

	if _, err := q.GetTable(ctx, table); err != nil {
		return nil, err
	}

	resp, err := q.cli.Get(ctx, tableRowsPrefix(table), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}

	ret := make([]Row, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var row Row
		if err := json.Unmarshal(kv.Value, &row); err != nil {
			return nil, err
		}
		ret = append(ret, row)
	}
	return ret, nil
}

func (q *EtcdQDB) Close() error {
	return q.cli.Close()
}
