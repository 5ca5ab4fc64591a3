package ops_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/pg-sharding/seqmgr/pkg/models/sequences"
	"github.com/pg-sharding/seqmgr/qdb"
	mockqdb "github.com/pg-sharding/seqmgr/qdb/mock"
	"github.com/pg-sharding/seqmgr/qdb/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const MemQDBPath = ""

func ptr(v int64) *int64 {
	return &v
}

var brojac1 = sequences.Params{
	Name:       "brojac_1",
	StartValue: 1,
	Increment:  2,
	MinValue:   ptr(0),
	MaxValue:   ptr(100),
	Cycle:      true,
}

func prepareDB(t *testing.T) *qdb.MemQDB {
	t.Helper()
	memqdb, err := qdb.RestoreQDB(MemQDBPath)
	require.NoError(t, err)
	require.NoError(t, memqdb.CreateTable(context.TODO(), sequences.CatalogTable()))
	return memqdb
}

func mustSequence(t *testing.T, p sequences.Params) *sequences.Sequence {
	t.Helper()
	seq, err := p.Validate()
	require.NoError(t, err)
	return seq
}

func TestCreateSequenceWithChecks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t)

	seq := mustSequence(t, brojac1)
	seq.ObjID = 1
	assert.NoError(ops.CreateSequenceWithChecks(ctx, memqdb, seq))

	dup := mustSequence(t, sequences.Params{Name: "brojac_1", StartValue: 5, Increment: 1})
	err := ops.CreateSequenceWithChecks(ctx, memqdb, dup)
	assert.True(seqerror.HasCode(err, seqerror.SEQ_DUPLICATE_NAME))

	stored, err := ops.GetSequence(ctx, memqdb, "brojac_1")
	assert.NoError(err)
	assert.Equal(seq, stored, "duplicate must not overwrite the row")
}

func TestCreateSequenceRejectsInvalid(t *testing.T) {
	ctx := context.TODO()
	memqdb := prepareDB(t)

	err := ops.CreateSequenceWithChecks(ctx, memqdb, &sequences.Sequence{Name: "bad", MinValue: 10, MaxValue: 1})
	assert.True(t, seqerror.HasCode(err, seqerror.SEQ_INVALID_PARAMETERS))

	rows, err := memqdb.ListRows(ctx, sequences.SequenceTable)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateSequenceWithoutCatalog(t *testing.T) {
	memqdb, err := qdb.RestoreQDB(MemQDBPath)
	require.NoError(t, err)

	err = ops.CreateSequenceWithChecks(context.TODO(), memqdb, mustSequence(t, brojac1))
	assert.True(t, seqerror.HasCode(err, seqerror.SEQ_UNKNOWN_TABLE))
}

func TestUpdateSequenceValue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t)

	assert.NoError(ops.CreateSequenceWithChecks(ctx, memqdb, mustSequence(t, brojac1)))
	assert.NoError(ops.UpdateSequenceValue(ctx, memqdb, "brojac_1", 41))

	seq, err := ops.GetSequence(ctx, memqdb, "brojac_1")
	assert.NoError(err)
	assert.Equal(int64(41), seq.CurrentValue)
	assert.Equal(int64(1), seq.StartValue)

	err = ops.UpdateSequenceValue(ctx, memqdb, "missing", 1)
	assert.True(seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND))
}

func TestCompareAndUpdateSequenceValue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t)

	assert.NoError(ops.CreateSequenceWithChecks(ctx, memqdb, mustSequence(t, brojac1)))

	ok, err := ops.CompareAndUpdateSequenceValue(ctx, memqdb, "brojac_1", 1, 3)
	assert.NoError(err)
	assert.True(ok)

	ok, err = ops.CompareAndUpdateSequenceValue(ctx, memqdb, "brojac_1", 1, 3)
	assert.NoError(err)
	assert.False(ok)

	seq, err := ops.GetSequence(ctx, memqdb, "brojac_1")
	assert.NoError(err)
	assert.Equal(int64(3), seq.CurrentValue)

	_, err = ops.CompareAndUpdateSequenceValue(ctx, memqdb, "missing", 1, 3)
	assert.True(seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND))
}

func TestListAndDropSequences(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()
	memqdb := prepareDB(t)

	for _, name := range []string{"b", "a", "c"} {
		assert.NoError(ops.CreateSequenceWithChecks(ctx, memqdb, mustSequence(t, sequences.Params{Name: name, StartValue: 1, Increment: 1})))
	}

	names, err := ops.SequenceNames(ctx, memqdb)
	assert.NoError(err)
	assert.Equal([]string{"a", "b", "c"}, names)

	assert.NoError(ops.DropSequence(ctx, memqdb, "b"))
	err = ops.DropSequence(ctx, memqdb, "b")
	assert.True(seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND))

	_, err = ops.GetSequence(ctx, memqdb, "b")
	assert.True(seqerror.HasCode(err, seqerror.SEQ_NOT_FOUND))

	err = ops.DropSequence(ctx, memqdb, sequences.ObjectIDSequence)
	assert.True(seqerror.HasCode(err, seqerror.SEQ_INVALID_PARAMETERS))

	seqs, err := ops.ListSequences(ctx, memqdb)
	assert.NoError(err)
	assert.Len(seqs, 2)
}

func TestGetSequenceCorruptRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mockqdb.NewMockQDB(ctrl)
	ctx := context.TODO()

	db.EXPECT().FindRow(gomock.Any(), sequences.SequenceTable, sequences.ColName, qdb.TextValue("s")).
		Return(qdb.Row{sequences.ColName: qdb.TextValue("s")}, true, nil)

	_, err := ops.GetSequence(ctx, db, "s")
	assert.True(t, seqerror.HasCode(err, seqerror.SEQ_CORRUPT_ROW))
}

func TestCompareAndUpdateStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mockqdb.NewMockQDB(ctrl)
	ctx := context.TODO()

	storageErr := errors.New("connection reset")
	db.EXPECT().CompareAndSwapRow(gomock.Any(), sequences.SequenceTable, qdb.TextValue("s"), gomock.Any(), gomock.Any()).
		Return(false, storageErr)

	_, err := ops.CompareAndUpdateSequenceValue(ctx, db, "s", 1, 2)
	assert.ErrorIs(t, err, storageErr)
}
