package qdb_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/qdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mockTable = qdb.NewTable("objects", "name",
	qdb.Column{Name: "name", Type: qdb.ColumnTypeVarchar},
	qdb.Column{Name: "owner", Type: qdb.ColumnTypeVarchar},
	qdb.Column{Name: "value", Type: qdb.ColumnTypeInteger},
)

func mockRow(name, owner string, value int64) qdb.Row {
	return qdb.Row{
		"name":  qdb.TextValue(name),
		"owner": qdb.TextValue(owner),
		"value": qdb.IntValue(value),
	}
}

func prepareDB(t *testing.T, backupPath string) *qdb.MemQDB {
	t.Helper()
	memqdb, err := qdb.RestoreQDB(backupPath)
	require.NoError(t, err)
	require.NoError(t, memqdb.CreateTable(context.TODO(), mockTable))
	return memqdb
}

func TestMemQDBInsertIfAbsent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	ok, err := memqdb.InsertRow(ctx, "objects", mockRow("a", "alice", 1))
	assert.NoError(err)
	assert.True(ok)

	ok, err = memqdb.InsertRow(ctx, "objects", mockRow("a", "bob", 2))
	assert.NoError(err)
	assert.False(ok)

	row, found, err := memqdb.FindRow(ctx, "objects", "name", qdb.TextValue("a"))
	assert.NoError(err)
	assert.True(found)
	assert.Equal(mockRow("a", "alice", 1), row)
}

func TestMemQDBUnknownTable(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	_, err := memqdb.InsertRow(ctx, "nope", mockRow("a", "alice", 1))
	assert.True(seqerror.HasCode(err, seqerror.SEQ_UNKNOWN_TABLE))

	_, _, err = memqdb.FindRow(ctx, "nope", "name", qdb.TextValue("a"))
	assert.True(seqerror.HasCode(err, seqerror.SEQ_UNKNOWN_TABLE))

	_, err = memqdb.UpdateRow(ctx, "nope", "name", qdb.TextValue("a"), qdb.Row{})
	assert.True(seqerror.HasCode(err, seqerror.SEQ_UNKNOWN_TABLE))

	_, err = memqdb.GetTable(ctx, "nope")
	assert.True(seqerror.HasCode(err, seqerror.SEQ_UNKNOWN_TABLE))
}

func TestMemQDBRowTypeChecks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	_, err := memqdb.InsertRow(ctx, "objects", qdb.Row{"name": qdb.TextValue("a")})
	assert.Error(err)

	bad := mockRow("a", "alice", 1)
	bad["value"] = qdb.TextValue("1")
	_, err = memqdb.InsertRow(ctx, "objects", bad)
	assert.Error(err)

	_, err = memqdb.InsertRow(ctx, "objects", mockRow("a", "alice", 1))
	assert.NoError(err)

	_, err = memqdb.UpdateRow(ctx, "objects", "name", qdb.TextValue("a"), qdb.Row{"name": qdb.TextValue("b")})
	assert.Error(err, "key column must not be updatable")

	_, err = memqdb.UpdateRow(ctx, "objects", "name", qdb.TextValue("a"), qdb.Row{"missing": qdb.IntValue(1)})
	assert.Error(err)
}

func TestMemQDBFindByNonKeyField(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	for _, r := range []qdb.Row{mockRow("b", "bob", 2), mockRow("a", "bob", 1), mockRow("c", "carol", 3)} {
		_, err := memqdb.InsertRow(ctx, "objects", r)
		assert.NoError(err)
	}

	row, found, err := memqdb.FindRow(ctx, "objects", "owner", qdb.TextValue("bob"))
	assert.NoError(err)
	assert.True(found)
	assert.Equal("a", row["name"].Text)

	_, found, err = memqdb.FindRow(ctx, "objects", "owner", qdb.TextValue("dave"))
	assert.NoError(err)
	assert.False(found)

	ok, err := memqdb.UpdateRow(ctx, "objects", "owner", qdb.TextValue("bob"), qdb.Row{"value": qdb.IntValue(10)})
	assert.NoError(err)
	assert.True(ok)

	rows, err := memqdb.ListRows(ctx, "objects")
	assert.NoError(err)
	assert.Equal([]qdb.Row{mockRow("a", "bob", 10), mockRow("b", "bob", 10), mockRow("c", "carol", 3)}, rows)
}

func TestMemQDBCompareAndSwap(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	_, err := memqdb.InsertRow(ctx, "objects", mockRow("a", "alice", 1))
	assert.NoError(err)

	ok, err := memqdb.CompareAndSwapRow(ctx, "objects", qdb.TextValue("a"),
		qdb.Row{"value": qdb.IntValue(5)}, qdb.Row{"value": qdb.IntValue(6)})
	assert.NoError(err)
	assert.False(ok, "stale expectation must not apply")

	ok, err = memqdb.CompareAndSwapRow(ctx, "objects", qdb.TextValue("a"),
		qdb.Row{"value": qdb.IntValue(1)}, qdb.Row{"value": qdb.IntValue(2)})
	assert.NoError(err)
	assert.True(ok)

	ok, err = memqdb.CompareAndSwapRow(ctx, "objects", qdb.TextValue("zzz"),
		qdb.Row{"value": qdb.IntValue(1)}, qdb.Row{"value": qdb.IntValue(2)})
	assert.NoError(err)
	assert.False(ok)

	row, _, err := memqdb.FindRow(ctx, "objects", "name", qdb.TextValue("a"))
	assert.NoError(err)
	assert.Equal(int64(2), row["value"].Int)
}

func TestMemQDBDeleteRow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	_, err := memqdb.InsertRow(ctx, "objects", mockRow("a", "alice", 1))
	assert.NoError(err)

	ok, err := memqdb.DeleteRow(ctx, "objects", "name", qdb.TextValue("a"))
	assert.NoError(err)
	assert.True(ok)

	ok, err = memqdb.DeleteRow(ctx, "objects", "name", qdb.TextValue("a"))
	assert.NoError(err)
	assert.False(ok)
}

func TestMemQDBCreateTableIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t, "")

	assert.NoError(memqdb.CreateTable(ctx, mockTable))
	assert.Error(memqdb.CreateTable(ctx, qdb.NewTable("objects", "name",
		qdb.Column{Name: "name", Type: qdb.ColumnTypeVarchar})))
	assert.Error(memqdb.CreateTable(ctx, qdb.NewTable("broken", "id",
		qdb.Column{Name: "name", Type: qdb.ColumnTypeVarchar})))

	tables, err := memqdb.ListTables(ctx)
	assert.NoError(err)
	assert.Len(tables, 1)
}

func TestMemQDBBackupRestore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	path := filepath.Join(t.TempDir(), "memqdb.json")

	memqdb := prepareDB(t, path)
	_, err := memqdb.InsertRow(ctx, "objects", mockRow("a", "alice", 1))
	assert.NoError(err)
	_, err = memqdb.UpdateRow(ctx, "objects", "name", qdb.TextValue("a"), qdb.Row{"value": qdb.IntValue(42)})
	assert.NoError(err)
	assert.NoError(memqdb.Close())

	restored, err := qdb.RestoreQDB(path)
	assert.NoError(err)

	row, found, err := restored.FindRow(ctx, "objects", "name", qdb.TextValue("a"))
	assert.NoError(err)
	assert.True(found)
	assert.Equal(mockRow("a", "alice", 42), row)

	ok, err := restored.InsertRow(ctx, "objects", mockRow("b", "bob", 2))
	assert.NoError(err)
	assert.True(ok)
}

func TestMemQDBBackupFailureRollsBack(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()

	// a backup path inside a missing directory makes every DumpState fail
	memqdb, err := qdb.NewMemQDB(filepath.Join(t.TempDir(), "missing", "memqdb.json"))
	assert.NoError(err)

	assert.Error(memqdb.CreateTable(ctx, mockTable))

	_, err = memqdb.GetTable(ctx, "objects")
	assert.True(seqerror.HasCode(err, seqerror.SEQ_UNKNOWN_TABLE))
}

// must run with -race
func TestMemqdbRacing(t *testing.T) {
	assert := assert.New(t)
	memqdb := prepareDB(t, "")

	var wg sync.WaitGroup
	ctx := context.TODO()

	methods := []func(){
		func() { _, _ = memqdb.InsertRow(ctx, "objects", mockRow("a", "alice", 1)) },
		func() { _, _, _ = memqdb.FindRow(ctx, "objects", "name", qdb.TextValue("a")) },
		func() { _, _, _ = memqdb.FindRow(ctx, "objects", "owner", qdb.TextValue("alice")) },
		func() {
			_, _ = memqdb.UpdateRow(ctx, "objects", "name", qdb.TextValue("a"), qdb.Row{"value": qdb.IntValue(3)})
		},
		func() {
			_, _ = memqdb.CompareAndSwapRow(ctx, "objects", qdb.TextValue("a"),
				qdb.Row{"value": qdb.IntValue(3)}, qdb.Row{"value": qdb.IntValue(4)})
		},
		func() { _, _ = memqdb.ListRows(ctx, "objects") },
		func() { _, _ = memqdb.ListTables(ctx) },
		func() { _, _ = memqdb.DeleteRow(ctx, "objects", "name", qdb.TextValue("a")) },
	}
	for i := 0; i < 10; i++ {
		for _, m := range methods {
			wg.Add(1)
			go func(m func()) {
				m()
				wg.Done()
			}(m)
		}
		wg.Wait()
	}

	_, err := memqdb.ListRows(ctx, "objects")
	assert.NoError(err)
}
